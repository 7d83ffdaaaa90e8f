package services

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/authz"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
)

func (suite *ServiceTestSuite) TestLogin() {
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)

	result, err := suite.auth.Login(suite.ctx, LoginInput{Email: "DEV@example.com ", Password: testPassword})
	suite.Require().NoError(err)
	suite.Equal(dev.ID, result.User.ID)
	suite.NotEmpty(result.Tokens.AccessToken)
	suite.NotEmpty(result.Tokens.RefreshToken)
	suite.False(result.IsTempPassword)

	user, err := suite.auth.Authenticate(suite.ctx, result.Tokens.AccessToken)
	suite.Require().NoError(err)
	suite.Equal(dev.ID, user.ID)

	_, err = suite.auth.Authenticate(suite.ctx, result.Tokens.RefreshToken)
	suite.assertKind(err, apierrors.KindUnauthenticated, "")

	_, err = suite.auth.Login(suite.ctx, LoginInput{Email: "dev@example.com", Password: "wrong"})
	suite.ErrorIs(err, ErrInvalidCredentials)

	_, err = suite.auth.Login(suite.ctx, LoginInput{Email: "nobody@example.com", Password: testPassword})
	suite.ErrorIs(err, ErrInvalidCredentials)

	dev.IsActive = false
	suite.Require().NoError(suite.store.Users().Update(suite.ctx, dev))
	_, err = suite.auth.Login(suite.ctx, LoginInput{Email: "dev@example.com", Password: testPassword})
	suite.assertKind(err, apierrors.KindForbidden, authz.MsgInactive)
}

func (suite *ServiceTestSuite) TestRefreshRotatesToken() {
	suite.createUser("dev@example.com", models.RoleTeamMember)
	result, err := suite.auth.Login(suite.ctx, LoginInput{Email: "dev@example.com", Password: testPassword})
	suite.Require().NoError(err)

	pair, err := suite.auth.Refresh(suite.ctx, result.Tokens.RefreshToken)
	suite.Require().NoError(err)
	suite.NotEqual(result.Tokens.RefreshToken, pair.RefreshToken)

	_, err = suite.auth.Refresh(suite.ctx, result.Tokens.RefreshToken)
	suite.ErrorIs(err, ErrInvalidRefresh)

	_, err = suite.auth.Refresh(suite.ctx, result.Tokens.AccessToken)
	suite.ErrorIs(err, ErrInvalidRefresh)

	suite.Require().NoError(suite.auth.Logout(suite.ctx, result.User.ID))
	_, err = suite.auth.Refresh(suite.ctx, pair.RefreshToken)
	suite.ErrorIs(err, ErrInvalidRefresh)

	sessions, err := suite.auth.Sessions(suite.ctx, result.User.ID)
	suite.Require().NoError(err)
	suite.Require().Len(sessions, 1)
	suite.False(sessions[0].HasActiveSession)
}

func (suite *ServiceTestSuite) TestSetNewPasswordReplacesTemporaryPassword() {
	user, effects, err := suite.users.CreateUser(suite.ctx, suite.as(suite.admin), CreateUserInput{
		Fname:      "Ada",
		Email:      "ada@example.com",
		GlobalRole: models.RoleTeamMember,
	})
	suite.Require().NoError(err)
	temp := effects[0].Secret

	login, err := suite.auth.Login(suite.ctx, LoginInput{Email: "ada@example.com", Password: temp})
	suite.Require().NoError(err)
	suite.True(login.IsTempPassword)

	_, err = suite.auth.SetNewPassword(suite.ctx, user.ID, "weak")
	suite.assertKind(err, apierrors.KindValidation, "")

	out, err := suite.auth.SetNewPassword(suite.ctx, user.ID, "N3w!Password")
	suite.Require().NoError(err)
	suite.Require().Len(out, 1)
	suite.Equal(models.NotificationPasswordChanged, out[0].Kind)

	login, err = suite.auth.Login(suite.ctx, LoginInput{Email: "ada@example.com", Password: "N3w!Password"})
	suite.Require().NoError(err)
	suite.False(login.IsTempPassword)

	_, err = suite.auth.SetNewPassword(suite.ctx, user.ID, "An0ther!Password")
	suite.ErrorIs(err, ErrPasswordAlreadySet)
}

func (suite *ServiceTestSuite) TestPasswordResetFlow() {
	suite.createUser("dev@example.com", models.RoleTeamMember)

	effects, err := suite.auth.RequestPasswordReset(suite.ctx, "nobody@example.com")
	suite.NoError(err)
	suite.Empty(effects)

	effects, err = suite.auth.RequestPasswordReset(suite.ctx, "dev@example.com")
	suite.Require().NoError(err)
	suite.Require().Len(effects, 1)
	code := effects[0].Secret
	suite.Len(code, 6)

	_, err = suite.auth.ChangePassword(suite.ctx, ChangePasswordInput{Email: "dev@example.com", OTP: code, NewPassword: "N3w!Password"})
	suite.ErrorIs(err, ErrOTPNotVerified)

	err = suite.auth.VerifyPasswordReset(suite.ctx, "dev@example.com", "000000")
	suite.assertKind(err, apierrors.KindNotFound, "Invalid OTP.")

	suite.Require().NoError(suite.auth.VerifyPasswordReset(suite.ctx, "dev@example.com", code))

	err = suite.auth.VerifyPasswordReset(suite.ctx, "dev@example.com", code)
	suite.assertKind(err, apierrors.KindNotFound, "OTP not found or expired.")

	_, err = suite.auth.ChangePassword(suite.ctx, ChangePasswordInput{Email: "dev@example.com", OTP: code, NewPassword: "password"})
	suite.assertKind(err, apierrors.KindValidation, "")

	out, err := suite.auth.ChangePassword(suite.ctx, ChangePasswordInput{Email: "dev@example.com", OTP: code, NewPassword: "N3w!Password"})
	suite.Require().NoError(err)
	suite.Len(out, 1)

	_, err = suite.auth.Login(suite.ctx, LoginInput{Email: "dev@example.com", Password: testPassword})
	suite.ErrorIs(err, ErrInvalidCredentials)
	_, err = suite.auth.Login(suite.ctx, LoginInput{Email: "dev@example.com", Password: "N3w!Password"})
	suite.NoError(err)

	// The OTP is consumed by the change
	_, err = suite.auth.ChangePassword(suite.ctx, ChangePasswordInput{Email: "dev@example.com", OTP: code, NewPassword: "An0ther!Password"})
	suite.ErrorIs(err, ErrOTPNotVerified)
}

func (suite *ServiceTestSuite) TestPasswordResetExpiry() {
	suite.createUser("dev@example.com", models.RoleTeamMember)
	effects, err := suite.auth.RequestPasswordReset(suite.ctx, "dev@example.com")
	suite.Require().NoError(err)

	suite.now = suite.now.Add(11 * time.Minute)
	err = suite.auth.VerifyPasswordReset(suite.ctx, "dev@example.com", effects[0].Secret)
	suite.assertKind(err, apierrors.KindNotFound, "OTP not found or expired.")
}

func (suite *ServiceTestSuite) TestMeListsLiveAssignments() {
	pm := suite.createUser("pm@example.com", models.RoleProjectManager)
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)
	suite.createProject("Apollo", pm, dev)
	gone := suite.createProject("Gemini", pm, dev)
	suite.Require().NoError(suite.projects.DeleteProject(suite.ctx, suite.as(suite.admin), gone.ID))

	profile, err := suite.auth.Me(suite.ctx, dev.ID)
	suite.Require().NoError(err)
	suite.Equal(dev.ID, profile.User.ID)
	suite.Require().Len(profile.Assignments, 1)
	suite.Equal("Apollo", profile.Assignments[0].Project.Title)
}
