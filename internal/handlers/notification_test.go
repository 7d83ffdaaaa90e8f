package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
)

func (suite *HandlerTestSuite) addNotification(user *models.User, title string) *models.Notification {
	n := &models.Notification{
		UserID:    user.ID,
		Type:      models.NotificationWelcome,
		Title:     title,
		Message:   title + " message",
		Priority:  models.NotificationPriorityMedium,
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}
	suite.Require().NoError(suite.store.Notifications().Create(context.Background(), n))
	return n
}

func (suite *HandlerTestSuite) TestNotificationInbox() {
	n := suite.addNotification(suite.dev, "Welcome")
	suite.addNotification(suite.pm, "Not yours")

	w := suite.request(http.MethodGet, "/notifications", suite.dev, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var list struct {
		Notifications []dto.NotificationDTO `json:"notifications"`
		UnreadCount   int64                 `json:"unread_count"`
	}
	suite.decode(w, &list)
	suite.Require().Len(list.Notifications, 1)
	suite.Equal("Welcome", list.Notifications[0].Title)
	suite.Equal(int64(1), list.UnreadCount)

	w = suite.request(http.MethodPatch, fmt.Sprintf("/notifications/%d/read", n.ID), suite.dev, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var read dto.NotificationDTO
	suite.decode(w, &read)
	suite.True(read.Read)
	suite.NotNil(read.ReadAt)

	w = suite.request(http.MethodGet, "/notifications/unread-count", suite.dev, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var count struct {
		UnreadCount int64 `json:"unread_count"`
	}
	suite.decode(w, &count)
	suite.Equal(int64(0), count.UnreadCount)
}

func (suite *HandlerTestSuite) TestMarkReadOtherUsersNotification() {
	n := suite.addNotification(suite.pm, "Private")

	w := suite.request(http.MethodPatch, fmt.Sprintf("/notifications/%d/read", n.ID), suite.dev, nil)
	suite.assertError(w, http.StatusNotFound, apierrors.ErrCodeNotFound, "")
}
