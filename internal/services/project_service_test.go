package services

import (
	"fmt"

	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
)

func (suite *ServiceTestSuite) TestCreateProjectAddsLeaderAsMember() {
	pm := suite.createUser("pm@example.com", models.RoleProjectManager)
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)

	project, effects, err := suite.projects.CreateProject(suite.ctx, suite.as(suite.admin), CreateProjectInput{
		Title:       "Apollo",
		Description: "Moon landing",
		StartDate:   suite.date(2025, 1, 1),
		EndDate:     suite.date(2025, 6, 1),
		LeaderID:    pm.ID,
		Members:     []MemberInput{{UserID: dev.ID, ProjectRole: models.ProjectRoleFrontend}},
	})
	suite.Require().NoError(err)

	suite.Equal(models.ProjectStatusPlanning, project.Status)
	suite.Require().Len(project.Members, 2)
	roles := map[uint64]models.ProjectRole{}
	for _, m := range project.Members {
		roles[m.UserID] = m.ProjectRole
	}
	suite.Equal(models.ProjectRoleLeader, roles[pm.ID])
	suite.Equal(models.ProjectRoleFrontend, roles[dev.ID])

	suite.Len(effects, 2)
	for _, e := range effects {
		suite.Equal(models.NotificationProjectAssigned, e.Kind)
	}
}

func (suite *ServiceTestSuite) TestCreateProjectValidation() {
	pm := suite.createUser("pm@example.com", models.RoleProjectManager)
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)

	base := func() CreateProjectInput {
		return CreateProjectInput{
			Title:       "Apollo",
			Description: "Moon landing",
			StartDate:   suite.date(2025, 1, 1),
			EndDate:     suite.date(2025, 6, 1),
			LeaderID:    pm.ID,
		}
	}

	input := base()
	input.StartDate, input.EndDate = input.EndDate, input.StartDate
	_, _, err := suite.projects.CreateProject(suite.ctx, suite.as(suite.admin), input)
	suite.assertKind(err, apierrors.KindValidation, "Start date must be before end date.")

	input = base()
	input.Title = "  "
	_, _, err = suite.projects.CreateProject(suite.ctx, suite.as(suite.admin), input)
	suite.assertKind(err, apierrors.KindValidation, "All fields are required.")

	input = base()
	input.LeaderID = dev.ID
	_, _, err = suite.projects.CreateProject(suite.ctx, suite.as(suite.admin), input)
	suite.assertKind(err, apierrors.KindValidation, "Project leader must be a project manager. Current role: team_member")

	input = base()
	input.Members = []MemberInput{
		{UserID: dev.ID, ProjectRole: models.ProjectRoleBackend},
		{UserID: dev.ID, ProjectRole: models.ProjectRoleQAEngineer},
	}
	_, _, err = suite.projects.CreateProject(suite.ctx, suite.as(suite.admin), input)
	suite.assertKind(err, apierrors.KindState, "")

	input = base()
	input.Members = []MemberInput{{UserID: 999, ProjectRole: models.ProjectRoleBackend}}
	_, _, err = suite.projects.CreateProject(suite.ctx, suite.as(suite.admin), input)
	suite.assertKind(err, apierrors.KindValidation, "User 999 not found.")

	gone := suite.createUser("gone@example.com", models.RoleTeamMember)
	gone.MarkDeleted(suite.admin.ID, suite.now)
	suite.Require().NoError(suite.store.Users().Update(suite.ctx, gone))
	input = base()
	input.Members = []MemberInput{{UserID: gone.ID, ProjectRole: models.ProjectRoleBackend}}
	_, _, err = suite.projects.CreateProject(suite.ctx, suite.as(suite.admin), input)
	suite.assertKind(err, apierrors.KindValidation, fmt.Sprintf("User %d not found.", gone.ID))

	input = base()
	input.Members = []MemberInput{{UserID: suite.admin.ID, ProjectRole: models.ProjectRoleBackend}}
	_, _, err = suite.projects.CreateProject(suite.ctx, suite.as(suite.admin), input)
	suite.assertKind(err, apierrors.KindValidation,
		fmt.Sprintf("User %d must be a team member or project manager.", suite.admin.ID))

	_, _, err = suite.projects.CreateProject(suite.ctx, suite.as(pm), base())
	suite.assertKind(err, apierrors.KindForbidden, "Only admins can create projects.")
}

func (suite *ServiceTestSuite) TestGetProjectVisibility() {
	pm := suite.createUser("pm@example.com", models.RoleProjectManager)
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)
	outsider := suite.createUser("out@example.com", models.RoleTeamMember)
	project := suite.createProject("Apollo", pm, dev)

	_, err := suite.projects.GetProject(suite.ctx, suite.as(dev), project.ID)
	suite.NoError(err)

	_, err = suite.projects.GetProject(suite.ctx, suite.as(outsider), project.ID)
	suite.assertKind(err, apierrors.KindForbidden, "")

	_, err = suite.projects.GetProject(suite.ctx, suite.as(dev), 9999)
	suite.assertKind(err, apierrors.KindNotFound, "Project not found.")

	suite.Require().NoError(suite.projects.DeleteProject(suite.ctx, suite.as(suite.admin), project.ID))

	_, err = suite.projects.GetProject(suite.ctx, suite.as(dev), project.ID)
	suite.assertKind(err, apierrors.KindNotFound, "Project not found.")

	found, err := suite.projects.GetProject(suite.ctx, suite.as(suite.admin), project.ID)
	suite.Require().NoError(err)
	suite.True(found.IsDeleted)
}

func (suite *ServiceTestSuite) TestDeleteAndRestoreProject() {
	pm := suite.createUser("pm@example.com", models.RoleProjectManager)
	project := suite.createProject("Apollo", pm)

	err := suite.projects.DeleteProject(suite.ctx, suite.as(pm), project.ID)
	suite.assertKind(err, apierrors.KindForbidden, "Only admins can delete projects.")

	suite.Require().NoError(suite.projects.DeleteProject(suite.ctx, suite.as(suite.admin), project.ID))

	err = suite.projects.DeleteProject(suite.ctx, suite.as(suite.admin), project.ID)
	suite.assertKind(err, apierrors.KindNotFound, "")

	restored, err := suite.projects.RestoreProject(suite.ctx, suite.as(suite.admin), project.ID)
	suite.Require().NoError(err)
	suite.False(restored.IsDeleted)
	suite.Nil(restored.DeletedAt)
	suite.Nil(restored.DeletedBy)
	suite.Equal(project.Title, restored.Title)

	_, err = suite.projects.RestoreProject(suite.ctx, suite.as(suite.admin), project.ID)
	suite.assertKind(err, apierrors.KindNotFound, "")
}

func (suite *ServiceTestSuite) TestUpdateProjectChangesLeader() {
	pm := suite.createUser("pm@example.com", models.RoleProjectManager)
	pm2 := suite.createUser("pm2@example.com", models.RoleProjectManager)
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)
	project := suite.createProject("Apollo", pm, dev)

	title := "Artemis"
	_, _, err := suite.projects.UpdateProject(suite.ctx, suite.as(dev), project.ID, UpdateProjectInput{Title: &title})
	suite.assertKind(err, apierrors.KindForbidden, "")

	updated, effects, err := suite.projects.UpdateProject(suite.ctx, suite.as(pm), project.ID, UpdateProjectInput{
		Title:    &title,
		LeaderID: &pm2.ID,
	})
	suite.Require().NoError(err)
	suite.Equal("Artemis", updated.Title)
	suite.Equal(pm2.ID, updated.LeaderID)
	suite.True(updated.IsMember(pm2.ID))
	suite.True(updated.IsMember(dev.ID))
	for _, m := range updated.Members {
		if m.UserID == pm2.ID {
			suite.Equal(models.ProjectRoleLeader, m.ProjectRole)
		}
	}
	suite.Require().Len(effects, 1)
	suite.Equal(pm2.ID, effects[0].UserID)

	end := suite.date(2024, 1, 1)
	_, _, err = suite.projects.UpdateProject(suite.ctx, suite.as(suite.admin), project.ID, UpdateProjectInput{EndDate: end})
	suite.assertKind(err, apierrors.KindValidation, "Start date must be before end date.")
}

func (suite *ServiceTestSuite) TestProjectListAndStats() {
	pm := suite.createUser("pm@example.com", models.RoleProjectManager)
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)
	suite.createProject("Apollo", pm, dev)
	suite.createProject("Gemini", pm)
	other := suite.createProject("Mercury", suite.createUser("pm2@example.com", models.RoleProjectManager))

	active := models.ProjectStatusActive
	_, _, err := suite.projects.UpdateProject(suite.ctx, suite.as(suite.admin), other.ID, UpdateProjectInput{Status: &active})
	suite.Require().NoError(err)

	projects, total, err := suite.projects.ListProjects(suite.ctx, suite.as(dev), ListProjectsInput{})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal("Apollo", projects[0].Title)

	_, total, err = suite.projects.ListProjects(suite.ctx, suite.as(pm), ListProjectsInput{})
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)

	stats, err := suite.projects.Stats(suite.ctx, suite.as(suite.admin))
	suite.Require().NoError(err)
	suite.Equal(int64(3), stats.Total)
	suite.Equal(int64(2), stats.ByStatus[models.ProjectStatusPlanning])
	suite.Equal(int64(1), stats.ByStatus[models.ProjectStatusActive])
	suite.Equal(int64(0), stats.ByStatus[models.ProjectStatusCancelled])
}
