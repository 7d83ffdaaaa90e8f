package services

import (
	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/project-management-api/internal/authz"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
)

func statusPatch(s models.TaskStatus) TaskPatch {
	return TaskPatch{Status: &s}
}

func (suite *ServiceTestSuite) TestCreateTaskNumbersPerProject() {
	pm := suite.createUser("pm@example.com", models.RoleProjectManager)
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)
	apollo := suite.createProject("apollo", pm, dev)
	gemini := suite.createProject("Gemini", pm)

	first, effects, err := suite.tasks.CreateTask(suite.ctx, suite.as(pm), CreateTaskInput{
		Title:      "Build rocket",
		ProjectID:  apollo.ID,
		AssignedTo: &dev.ID,
	})
	suite.Require().NoError(err)
	suite.Equal("APO-1", first.TaskNumber)
	suite.Equal(models.TaskStatusPending, first.Status)
	suite.Equal(models.TaskPriorityLow, first.Priority)
	suite.Require().Len(effects, 1)
	suite.Equal(models.NotificationTaskAssigned, effects[0].Kind)
	suite.Equal(dev.ID, effects[0].UserID)

	second := suite.createTask(apollo, "Fuel", nil)
	suite.Equal("APO-2", second.TaskNumber)

	other := suite.createTask(gemini, "Capsule", nil)
	suite.Equal("GEM-1", other.TaskNumber)
}

func (suite *ServiceTestSuite) TestCreateTaskRules() {
	pm := suite.createUser("pm@example.com", models.RoleProjectManager)
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)
	outsider := suite.createUser("out@example.com", models.RoleTeamMember)
	project := suite.createProject("Apollo", pm, dev)

	_, _, err := suite.tasks.CreateTask(suite.ctx, suite.as(pm), CreateTaskInput{ProjectID: project.ID})
	suite.assertKind(err, apierrors.KindValidation, "Title and Project ID are required.")

	_, _, err = suite.tasks.CreateTask(suite.ctx, suite.as(pm), CreateTaskInput{Title: "x", ProjectID: 9999})
	suite.assertKind(err, apierrors.KindNotFound, "Project not found.")

	_, _, err = suite.tasks.CreateTask(suite.ctx, suite.as(dev), CreateTaskInput{Title: "x", ProjectID: project.ID})
	suite.assertKind(err, apierrors.KindForbidden, "You don't have permission to create this task.")

	_, _, err = suite.tasks.CreateTask(suite.ctx, suite.as(pm), CreateTaskInput{Title: "x", ProjectID: project.ID, AssignedTo: &outsider.ID})
	suite.assertKind(err, apierrors.KindValidation, "Assigned user is not a member of this project.")

	_, _, err = suite.tasks.CreateTask(suite.ctx, suite.as(pm), CreateTaskInput{Title: "x", ProjectID: project.ID, AssignedTo: &pm.ID})
	suite.assertKind(err, apierrors.KindValidation, "Assigned user must be an active team member.")

	_, _, err = suite.tasks.CreateTask(suite.ctx, suite.as(pm), CreateTaskInput{
		Title:     "x",
		ProjectID: project.ID,
		StartDate: suite.date(2025, 5, 1),
		EndDate:   suite.date(2025, 4, 1),
	})
	suite.assertKind(err, apierrors.KindValidation, "Start date must be before end date.")
}

func (suite *ServiceTestSuite) TestTaskStatusLifecycle() {
	pm := suite.createUser("pm@example.com", models.RoleProjectManager)
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)
	project := suite.createProject("Apollo", pm, dev)
	task := suite.createTask(project, "Build rocket", dev)

	_, _, err := suite.tasks.UpdateTask(suite.ctx, suite.as(dev), task.ID, statusPatch(models.TaskStatusDone))
	suite.assertKind(err, apierrors.KindState, "Invalid transition from pending to done.")

	for _, next := range []models.TaskStatus{
		models.TaskStatusOpen,
		models.TaskStatusInProgress,
		models.TaskStatusReview,
	} {
		updated, _, err := suite.tasks.UpdateTask(suite.ctx, suite.as(dev), task.ID, statusPatch(next))
		suite.Require().NoError(err)
		suite.Equal(next, updated.Status)
		suite.Nil(updated.CompletedAt)
	}

	_, _, err = suite.tasks.UpdateTask(suite.ctx, suite.as(dev), task.ID, statusPatch(models.TaskStatusPending))
	suite.assertKind(err, apierrors.KindState, "Invalid transition from review to pending.")

	done, _, err := suite.tasks.UpdateTask(suite.ctx, suite.as(dev), task.ID, statusPatch(models.TaskStatusDone))
	suite.Require().NoError(err)
	suite.Require().NotNil(done.CompletedAt)
	suite.True(done.CompletedAt.Equal(suite.now))

	// Self transition keeps the first completion time
	suite.now = suite.now.AddDate(0, 0, 1)
	again, _, err := suite.tasks.UpdateTask(suite.ctx, suite.as(dev), task.ID, statusPatch(models.TaskStatusDone))
	suite.Require().NoError(err)
	suite.True(again.CompletedAt.Equal(*done.CompletedAt))

	stored := suite.reloadTask(task.ID)
	suite.Equal(models.TaskStatusDone, stored.Status)
	suite.NotNil(stored.CompletedAt)
}

func (suite *ServiceTestSuite) TestTaskFieldRestrictions() {
	pm := suite.createUser("pm@example.com", models.RoleProjectManager)
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)
	peer := suite.createUser("peer@example.com", models.RoleTeamMember)
	project := suite.createProject("Apollo", pm, dev, peer)
	task := suite.createTask(project, "Build rocket", dev)

	title := "Renamed"
	_, _, err := suite.tasks.UpdateTask(suite.ctx, suite.as(dev), task.ID, TaskPatch{Title: &title})
	suite.assertKind(err, apierrors.KindForbidden, authz.MsgRestrictedFields)

	hours := 3.5
	updated, _, err := suite.tasks.UpdateTask(suite.ctx, suite.as(dev), task.ID, TaskPatch{ActualHours: &hours})
	suite.Require().NoError(err)
	suite.Equal(3.5, updated.ActualHours)

	_, _, err = suite.tasks.UpdateTask(suite.ctx, suite.as(peer), task.ID, statusPatch(models.TaskStatusOpen))
	suite.assertKind(err, apierrors.KindForbidden, "You don't have permission to update this task.")

	_, _, err = suite.tasks.UpdateTask(suite.ctx, suite.as(pm), task.ID, TaskPatch{})
	suite.assertKind(err, apierrors.KindValidation, "No fields to update.")

	reassigned, effects, err := suite.tasks.UpdateTask(suite.ctx, suite.as(pm), task.ID, TaskPatch{Title: &title, AssignedTo: &peer.ID})
	suite.Require().NoError(err)
	suite.Equal("Renamed", reassigned.Title)
	suite.True(reassigned.IsAssignedTo(peer.ID))
	suite.Require().Len(effects, 1)
	suite.Equal(peer.ID, effects[0].UserID)

	// The previous assignee loses assignee rights but keeps read access as a member
	_, _, err = suite.tasks.UpdateTask(suite.ctx, suite.as(dev), task.ID, statusPatch(models.TaskStatusOpen))
	suite.assertKind(err, apierrors.KindForbidden, "")
	_, err = suite.tasks.GetTask(suite.ctx, suite.as(dev), task.ID)
	suite.NoError(err)
}

func (suite *ServiceTestSuite) TestSubtasks() {
	pm := suite.createUser("pm@example.com", models.RoleProjectManager)
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)
	project := suite.createProject("Apollo", pm, dev)
	parent := suite.createTask(project, "Build rocket", dev)
	other := suite.createTask(project, "Paint rocket", nil)

	sub, effects, err := suite.tasks.CreateSubtask(suite.ctx, suite.as(pm), parent.ID, CreateTaskInput{Title: "Engine"})
	suite.Require().NoError(err)
	suite.Equal("APO-3", sub.TaskNumber)
	suite.Require().NotNil(sub.ParentTaskID)
	suite.Equal(parent.ID, *sub.ParentTaskID)
	suite.True(sub.IsAssignedTo(dev.ID))
	suite.Len(effects, 1)

	subs, err := suite.tasks.ListSubtasks(suite.ctx, suite.as(dev), parent.ID)
	suite.Require().NoError(err)
	suite.Require().Len(subs, 1)
	suite.Equal(sub.ID, subs[0].ID)

	_, err = suite.tasks.GetSubtask(suite.ctx, suite.as(dev), other.ID, sub.ID)
	suite.assertKind(err, apierrors.KindNotFound, "Subtask not found.")

	_, err = suite.tasks.GetSubtask(suite.ctx, suite.as(dev), 9999, sub.ID)
	suite.assertKind(err, apierrors.KindNotFound, "Parent task not found.")

	got, err := suite.tasks.GetSubtask(suite.ctx, suite.as(dev), parent.ID, sub.ID)
	suite.Require().NoError(err)
	suite.Equal(parent.ID, got.Parent.ID)

	open := models.TaskStatusOpen
	updated, _, err := suite.tasks.UpdateSubtask(suite.ctx, suite.as(dev), parent.ID, sub.ID, TaskPatch{Status: &open})
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusOpen, updated.Status)

	tasks, total, err := suite.tasks.ListTasks(suite.ctx, suite.as(dev), ListTasksInput{TopLevelOnly: true})
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	for _, t := range tasks {
		suite.False(t.IsSubtask())
	}
}

func (suite *ServiceTestSuite) TestDeleteParentWithLiveSubtask() {
	pm := suite.createUser("pm@example.com", models.RoleProjectManager)
	project := suite.createProject("Apollo", pm)
	parent := suite.createTask(project, "Build rocket", nil)
	sub, _, err := suite.tasks.CreateSubtask(suite.ctx, suite.as(pm), parent.ID, CreateTaskInput{Title: "Engine"})
	suite.Require().NoError(err)

	err = suite.tasks.DeleteTask(suite.ctx, suite.as(pm), parent.ID)
	suite.assertKind(err, apierrors.KindState, "Cannot delete task with subtasks.")
	suite.False(suite.reloadTask(parent.ID).IsDeleted)

	suite.Require().NoError(suite.tasks.DeleteSubtask(suite.ctx, suite.as(pm), parent.ID, sub.ID))
	suite.Require().NoError(suite.tasks.DeleteTask(suite.ctx, suite.as(pm), parent.ID))

	deleted := suite.reloadTask(parent.ID)
	suite.True(deleted.IsDeleted)
	suite.Require().NotNil(deleted.DeletedBy)
	suite.Equal(pm.ID, *deleted.DeletedBy)

	// A subtask cannot come back while its parent is deleted
	_, err = suite.tasks.RestoreTask(suite.ctx, suite.as(pm), sub.ID)
	suite.assertKind(err, apierrors.KindState, "Parent task is deleted or not found.")

	_, err = suite.tasks.RestoreTask(suite.ctx, suite.as(pm), parent.ID)
	suite.Require().NoError(err)
	restored, err := suite.tasks.RestoreSubtask(suite.ctx, suite.as(pm), parent.ID, sub.ID)
	suite.Require().NoError(err)
	suite.False(restored.IsDeleted)
	suite.Nil(restored.DeletedAt)
	suite.Nil(restored.DeletedBy)

	_, err = suite.tasks.RestoreTask(suite.ctx, suite.as(pm), parent.ID)
	suite.assertKind(err, apierrors.KindNotFound, "Deleted task not found.")
}

func (suite *ServiceTestSuite) TestListTasksScope() {
	pm := suite.createUser("pm@example.com", models.RoleProjectManager)
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)
	outsider := suite.createUser("out@example.com", models.RoleTeamMember)
	project := suite.createProject("Apollo", pm, dev)
	suite.createTask(project, "Build rocket", dev)
	suite.createTask(project, "Fuel", nil)

	_, total, err := suite.tasks.ListTasks(suite.ctx, suite.as(outsider), ListTasksInput{})
	suite.Require().NoError(err)
	suite.Equal(int64(0), total)

	_, _, err = suite.tasks.ListTasks(suite.ctx, suite.as(outsider), ListTasksInput{ProjectID: &project.ID})
	suite.assertKind(err, apierrors.KindForbidden, "")

	tasks, total, err := suite.tasks.ListTasks(suite.ctx, suite.as(dev), ListTasksInput{AssignedTo: &dev.ID})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	assert.Equal(suite.T(), "Build rocket", tasks[0].Title)

	_, total, err = suite.tasks.ListTasks(suite.ctx, suite.as(suite.admin), ListTasksInput{Search: "fuel"})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)

	bogus := models.TaskStatus("blocked")
	_, _, err = suite.tasks.ListTasks(suite.ctx, suite.as(dev), ListTasksInput{Status: &bogus})
	suite.assertKind(err, apierrors.KindValidation, "")
}

func (suite *ServiceTestSuite) TestTaskNumberPrefix() {
	suite.Equal("APO", TaskNumberPrefix("apollo"))
	suite.Equal("AB", TaskNumberPrefix(" ab "))
	suite.Equal("ÉTÉ", TaskNumberPrefix("été"))
}
