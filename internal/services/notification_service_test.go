package services

import (
	"time"

	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/utils"
)

func (suite *ServiceTestSuite) notify(user *models.User, title string, expires time.Time) *models.Notification {
	n := &models.Notification{
		UserID:    user.ID,
		Type:      models.NotificationTaskAssigned,
		Title:     title,
		Message:   title,
		Priority:  models.NotificationPriorityMedium,
		ExpiresAt: expires,
	}
	suite.Require().NoError(suite.store.Notifications().Create(suite.ctx, n))
	return n
}

func (suite *ServiceTestSuite) TestNotificationInbox() {
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)
	peer := suite.createUser("peer@example.com", models.RoleTeamMember)
	later := suite.now.Add(24 * time.Hour)

	first := suite.notify(dev, "first", later)
	second := suite.notify(dev, "second", later)
	suite.notify(dev, "expired", suite.now.Add(-time.Hour))
	foreign := suite.notify(peer, "not yours", later)

	page := utils.PaginationParams{Page: 1, Limit: 10}
	inbox, err := suite.notifications.List(suite.ctx, suite.as(dev), false, page)
	suite.Require().NoError(err)
	suite.Equal(int64(2), inbox.Total)
	suite.Equal(int64(2), inbox.Unread)

	read, err := suite.notifications.MarkRead(suite.ctx, suite.as(dev), first.ID)
	suite.Require().NoError(err)
	suite.True(read.Read)
	suite.Require().NotNil(read.ReadAt)

	count, err := suite.notifications.UnreadCount(suite.ctx, suite.as(dev))
	suite.Require().NoError(err)
	suite.Equal(int64(1), count)

	unread, err := suite.notifications.List(suite.ctx, suite.as(dev), true, page)
	suite.Require().NoError(err)
	suite.Require().Len(unread.Items, 1)
	suite.Equal(second.ID, unread.Items[0].ID)

	_, err = suite.notifications.MarkRead(suite.ctx, suite.as(dev), foreign.ID)
	suite.assertKind(err, apierrors.KindNotFound, "Notification not found.")
	err = suite.notifications.Delete(suite.ctx, suite.as(dev), foreign.ID)
	suite.assertKind(err, apierrors.KindNotFound, "Notification not found.")

	changed, err := suite.notifications.MarkAllRead(suite.ctx, suite.as(dev))
	suite.Require().NoError(err)
	suite.GreaterOrEqual(changed, int64(1))

	count, err = suite.notifications.UnreadCount(suite.ctx, suite.as(dev))
	suite.Require().NoError(err)
	suite.Equal(int64(0), count)

	suite.Require().NoError(suite.notifications.Delete(suite.ctx, suite.as(dev), second.ID))
	inbox, err = suite.notifications.List(suite.ctx, suite.as(dev), false, page)
	suite.Require().NoError(err)
	suite.Equal(int64(1), inbox.Total)
}
