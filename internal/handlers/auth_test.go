package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
)

func (suite *HandlerTestSuite) TestLoginAndMe() {
	w := suite.request(http.MethodPost, "/auth/login", nil, gin.H{
		"email":    "DEV@example.com",
		"password": testPassword,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var login struct {
		User   dto.UserDTO   `json:"user"`
		Tokens tokenResponse `json:"tokens"`
		Temp   bool          `json:"is_temp_password"`
	}
	suite.decode(w, &login)
	suite.Equal(suite.dev.ID, login.User.ID)
	suite.Equal("Bearer", login.Tokens.TokenType)
	suite.NotEmpty(login.Tokens.AccessToken)
	suite.NotEmpty(login.Tokens.RefreshToken)
	suite.Equal(int64(15*60), login.Tokens.ExpiresIn)
	suite.False(login.Temp)

	suite.createProject("Apollo")

	w = suite.request(http.MethodGet, "/auth/me", suite.dev, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var profile dto.ProfileDTO
	suite.decode(w, &profile)
	suite.Equal("dev@example.com", profile.Email)
	suite.Require().Len(profile.ProjectAssignments, 1)
	suite.Equal("Apollo", profile.ProjectAssignments[0].ProjectTitle)
	suite.Equal(models.ProjectRoleBackend, profile.ProjectAssignments[0].ProjectRole)
}

func (suite *HandlerTestSuite) TestLoginRejectsBadCredentials() {
	w := suite.request(http.MethodPost, "/auth/login", nil, gin.H{
		"email":    "dev@example.com",
		"password": "wrong-password",
	})
	suite.assertError(w, http.StatusUnauthorized, apierrors.ErrCodeInvalidCredentials, "Invalid credentials.")

	w = suite.request(http.MethodPost, "/auth/login", nil, gin.H{"email": "dev@example.com"})
	suite.assertError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Email and password are required.")
}

func (suite *HandlerTestSuite) TestProtectedRouteNeedsToken() {
	w := suite.request(http.MethodGet, "/auth/me", nil, nil)
	suite.assertError(w, http.StatusUnauthorized, apierrors.ErrCodeUnauthorized, "Access token required")
}

func (suite *HandlerTestSuite) TestRequestPasswordResetIsGeneric() {
	w := suite.request(http.MethodPost, "/auth/request-password-reset", nil, gin.H{"email": "nobody@example.com"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var body map[string]string
	suite.decode(w, &body)
	suite.Equal(constants.GenericOTPResponse, body["message"])
	suite.Empty(suite.dispatcher.effects)

	w = suite.request(http.MethodPost, "/auth/request-password-reset", nil, gin.H{"email": "dev@example.com"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &body)
	suite.Equal(constants.GenericOTPResponse, body["message"])
	suite.Equal([]models.NotificationType{models.NotificationPasswordResetOTP}, suite.dispatcher.kinds())
	suite.Len(suite.dispatcher.effects[0].Secret, constants.OTPLength)
}
