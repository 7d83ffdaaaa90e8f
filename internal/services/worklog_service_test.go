package services

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/authz"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/utils"
)

type worklogFixture struct {
	pm, dev, peer *models.User
	project       *models.Project
	task          *models.Task
}

func (suite *ServiceTestSuite) worklogFixture() worklogFixture {
	f := worklogFixture{
		pm:   suite.createUser("pm@example.com", models.RoleProjectManager),
		dev:  suite.createUser("dev@example.com", models.RoleTeamMember),
		peer: suite.createUser("peer@example.com", models.RoleTeamMember),
	}
	f.project = suite.createProject("Apollo", f.pm, f.dev, f.peer)
	f.task = suite.createTask(f.project, "Build rocket", f.dev)
	return f
}

func (suite *ServiceTestSuite) logHours(caller *models.User, task *models.Task, at time.Time, hours float64) *models.Worklog {
	w, err := suite.worklogs.CreateWorklog(suite.ctx, suite.as(caller), CreateWorklogInput{
		TaskID:      task.ID,
		Date:        at,
		Hours:       hours,
		Description: "worked on it",
	})
	suite.Require().NoError(err)
	return w
}

func march(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC)
}

func (suite *ServiceTestSuite) TestWorklogOvertimeAndActualHours() {
	f := suite.worklogFixture()

	first := suite.logHours(f.dev, f.task, march(1, 9), 5)
	suite.False(first.IsOvertime)
	suite.Equal(f.dev.ID, first.UserID)

	second := suite.logHours(f.dev, f.task, march(1, 15), 4)
	suite.True(second.IsOvertime)
	suite.Equal(9.0, suite.reloadTask(f.task.ID).ActualHours)

	// A different day starts from zero
	third := suite.logHours(f.dev, f.task, march(2, 8), 3)
	suite.False(third.IsOvertime)
	suite.Equal(12.0, suite.reloadTask(f.task.ID).ActualHours)
}

func (suite *ServiceTestSuite) TestWorklogUpdateDeleteRestoreKeepTotals() {
	f := suite.worklogFixture()
	suite.logHours(f.dev, f.task, march(1, 9), 5)
	second := suite.logHours(f.dev, f.task, march(1, 15), 4)

	hours := 2.0
	updated, err := suite.worklogs.UpdateWorklog(suite.ctx, suite.as(f.dev), second.ID, UpdateWorklogInput{Hours: &hours})
	suite.Require().NoError(err)
	suite.False(updated.IsOvertime)
	suite.Equal(7.0, suite.reloadTask(f.task.ID).ActualHours)

	// Updating the description alone leaves the hours untouched
	desc := "refactored the engine"
	_, err = suite.worklogs.UpdateWorklog(suite.ctx, suite.as(f.dev), second.ID, UpdateWorklogInput{Description: &desc})
	suite.Require().NoError(err)
	suite.Equal(7.0, suite.reloadTask(f.task.ID).ActualHours)

	hours = 6
	updated, err = suite.worklogs.UpdateWorklog(suite.ctx, suite.as(f.dev), second.ID, UpdateWorklogInput{Hours: &hours})
	suite.Require().NoError(err)
	suite.True(updated.IsOvertime)
	suite.Equal(11.0, suite.reloadTask(f.task.ID).ActualHours)

	suite.Require().NoError(suite.worklogs.DeleteWorklog(suite.ctx, suite.as(f.dev), second.ID))
	suite.Equal(5.0, suite.reloadTask(f.task.ID).ActualHours)

	_, err = suite.worklogs.GetWorklog(suite.ctx, suite.as(f.dev), second.ID)
	suite.assertKind(err, apierrors.KindNotFound, "Worklog not found.")

	restored, err := suite.worklogs.RestoreWorklog(suite.ctx, suite.as(f.dev), second.ID)
	suite.Require().NoError(err)
	suite.False(restored.IsDeleted)
	suite.Nil(restored.DeletedAt)
	suite.True(restored.IsOvertime)
	suite.Equal(11.0, suite.reloadTask(f.task.ID).ActualHours)

	_, err = suite.worklogs.RestoreWorklog(suite.ctx, suite.as(f.dev), second.ID)
	suite.assertKind(err, apierrors.KindNotFound, "Deleted worklog not found.")
}

func (suite *ServiceTestSuite) TestWorklogValidation() {
	f := suite.worklogFixture()
	input := func() CreateWorklogInput {
		return CreateWorklogInput{TaskID: f.task.ID, Date: march(1, 9), Hours: 2, Description: "worked on it"}
	}

	in := input()
	in.Hours = 0.1
	_, err := suite.worklogs.CreateWorklog(suite.ctx, suite.as(f.dev), in)
	suite.assertKind(err, apierrors.KindValidation, "Hours must be between 0.25 and 24.")

	in = input()
	in.Hours = 24.5
	_, err = suite.worklogs.CreateWorklog(suite.ctx, suite.as(f.dev), in)
	suite.assertKind(err, apierrors.KindValidation, "Hours must be between 0.25 and 24.")

	in = input()
	in.Date = suite.now.Add(time.Hour)
	_, err = suite.worklogs.CreateWorklog(suite.ctx, suite.as(f.dev), in)
	suite.assertKind(err, apierrors.KindValidation, "Date cannot be in the future.")

	in = input()
	in.Description = "ok"
	_, err = suite.worklogs.CreateWorklog(suite.ctx, suite.as(f.dev), in)
	suite.assertKind(err, apierrors.KindValidation, "Description must be between 3 and 500 characters.")

	in = input()
	in.TaskID = 9999
	_, err = suite.worklogs.CreateWorklog(suite.ctx, suite.as(f.dev), in)
	suite.assertKind(err, apierrors.KindNotFound, "Task not found.")

	_, err = suite.worklogs.CreateWorklog(suite.ctx, suite.as(f.dev), CreateWorklogInput{TaskID: f.task.ID})
	suite.assertKind(err, apierrors.KindValidation, "All fields are required.")

	suite.Equal(0.0, suite.reloadTask(f.task.ID).ActualHours)
}

func (suite *ServiceTestSuite) TestWorklogAuthorization() {
	f := suite.worklogFixture()
	otherPM := suite.createUser("pm2@example.com", models.RoleProjectManager)

	_, err := suite.worklogs.CreateWorklog(suite.ctx, suite.as(f.peer), CreateWorklogInput{
		TaskID: f.task.ID, Date: march(1, 9), Hours: 2, Description: "worked on it",
	})
	suite.assertKind(err, apierrors.KindForbidden, authz.MsgNotAssigned)

	_, err = suite.worklogs.CreateWorklog(suite.ctx, suite.as(otherPM), CreateWorklogInput{
		TaskID: f.task.ID, Date: march(1, 9), Hours: 2, Description: "worked on it",
	})
	suite.assertKind(err, apierrors.KindForbidden, authz.MsgNotProjectManager)

	leaderLog := suite.logHours(f.pm, f.task, march(1, 9), 1)
	suite.Equal(f.pm.ID, leaderLog.UserID)

	w := suite.logHours(f.dev, f.task, march(1, 10), 2)

	_, err = suite.worklogs.GetWorklog(suite.ctx, suite.as(f.peer), w.ID)
	suite.assertKind(err, apierrors.KindForbidden, "")

	got, err := suite.worklogs.GetWorklog(suite.ctx, suite.as(f.pm), w.ID)
	suite.Require().NoError(err)
	suite.Equal(w.ID, got.ID)

	// Owners lose delete rights 24 hours after creation; the leader does not
	suite.now = time.Now().Add(48 * time.Hour)
	err = suite.worklogs.DeleteWorklog(suite.ctx, suite.as(f.dev), w.ID)
	suite.assertKind(err, apierrors.KindForbidden, authz.MsgDeleteWindow)

	suite.Require().NoError(suite.worklogs.DeleteWorklog(suite.ctx, suite.as(f.pm), w.ID))
	suite.Equal(1.0, suite.reloadTask(f.task.ID).ActualHours)
}

func (suite *ServiceTestSuite) TestListWorklogsScope() {
	f := suite.worklogFixture()
	peerTask := suite.createTask(f.project, "Paint rocket", f.peer)
	suite.logHours(f.dev, f.task, march(1, 9), 2)
	suite.logHours(f.peer, peerTask, march(1, 9), 3)

	otherPM := suite.createUser("pm2@example.com", models.RoleProjectManager)
	page := utils.PaginationParams{Page: 1, Limit: 10}

	logs, total, err := suite.worklogs.ListWorklogs(suite.ctx, suite.as(f.dev), WorklogQuery{}, page)
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(f.dev.ID, logs[0].UserID)

	_, total, err = suite.worklogs.ListWorklogs(suite.ctx, suite.as(f.pm), WorklogQuery{}, page)
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)

	_, total, err = suite.worklogs.ListWorklogs(suite.ctx, suite.as(otherPM), WorklogQuery{}, page)
	suite.Require().NoError(err)
	suite.Equal(int64(0), total)

	_, total, err = suite.worklogs.ListWorklogs(suite.ctx, suite.as(suite.admin), WorklogQuery{UserID: &f.peer.ID}, page)
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)

	// Date filters cover whole days
	_, total, err = suite.worklogs.ListWorklogs(suite.ctx, suite.as(suite.admin), WorklogQuery{
		StartDate: suite.date(2025, 3, 1),
		EndDate:   suite.date(2025, 3, 1),
	}, page)
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)

	_, total, err = suite.worklogs.ListWorklogs(suite.ctx, suite.as(suite.admin), WorklogQuery{StartDate: suite.date(2025, 3, 2)}, page)
	suite.Require().NoError(err)
	suite.Equal(int64(0), total)
}

func (suite *ServiceTestSuite) TestWorklogSummary() {
	f := suite.worklogFixture()
	outsider := suite.createUser("out@example.com", models.RoleTeamMember)
	suite.logHours(f.dev, f.task, march(1, 9), 5)
	suite.logHours(f.dev, f.task, march(1, 15), 4)
	peerTask := suite.createTask(f.project, "Paint rocket", f.peer)
	suite.logHours(f.peer, peerTask, march(2, 9), 3)

	summary, err := suite.worklogs.Summary(suite.ctx, suite.as(f.pm), WorklogQuery{}, repository.GroupByUser)
	suite.Require().NoError(err)
	suite.Require().Len(summary.Groups, 2)

	top := summary.Groups[0]
	suite.Equal("Test User", top.Label)
	suite.Equal("dev@example.com", top.Extra)
	suite.Equal(9.0, top.TotalHours)
	suite.Equal(5.0, top.RegularHours)
	suite.Equal(4.0, top.OvertimeHours)
	suite.Equal(int64(2), top.WorklogCount)
	suite.Equal(4.5, top.AvgHoursPerLog)
	suite.Equal(44.44, top.OvertimePercentage)

	suite.Equal(12.0, summary.Overall.TotalHours)
	suite.Equal(int64(3), summary.Overall.WorklogCount)
	suite.Equal(4.0, summary.Overall.AvgHoursPerLog)
	suite.Equal(33.33, summary.Overall.OvertimePercentage)

	own, err := suite.worklogs.Summary(suite.ctx, suite.as(f.dev), WorklogQuery{}, repository.GroupByDate)
	suite.Require().NoError(err)
	suite.Require().Len(own.Groups, 1)
	suite.Equal("2025-03-01", own.Groups[0].Key)

	byTask, err := suite.worklogs.Summary(suite.ctx, suite.as(suite.admin), WorklogQuery{ProjectID: &f.project.ID}, repository.GroupByTask)
	suite.Require().NoError(err)
	suite.Require().Len(byTask.Groups, 2)
	suite.Equal(f.task.TaskNumber+" Build rocket", byTask.Groups[0].Label)
	suite.Equal("Apollo", byTask.Groups[0].Extra)

	_, err = suite.worklogs.Summary(suite.ctx, suite.as(outsider), WorklogQuery{ProjectID: &f.project.ID}, repository.GroupByUser)
	suite.assertKind(err, apierrors.KindForbidden, "Access denied to this project.")

	missing := uint64(9999)
	_, err = suite.worklogs.Summary(suite.ctx, suite.as(suite.admin), WorklogQuery{ProjectID: &missing}, repository.GroupByUser)
	suite.assertKind(err, apierrors.KindNotFound, "Project not found.")

	_, err = suite.worklogs.Summary(suite.ctx, suite.as(suite.admin), WorklogQuery{}, repository.SummaryGroup("week"))
	suite.assertKind(err, apierrors.KindValidation, "")

	empty, err := suite.worklogs.Summary(suite.ctx, suite.as(outsider), WorklogQuery{}, "")
	suite.Require().NoError(err)
	suite.Equal(repository.GroupByUser, empty.GroupBy)
	suite.Empty(empty.Groups)
	suite.Equal(0.0, empty.Overall.AvgHoursPerLog)
}
