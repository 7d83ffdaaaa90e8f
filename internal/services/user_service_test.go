package services

import (
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/utils"
)

func (suite *ServiceTestSuite) TestCreateUser() {
	user, effects, err := suite.users.CreateUser(suite.ctx, suite.as(suite.admin), CreateUserInput{
		Fname:      " Ada ",
		Lname:      "Lovelace",
		Email:      "Ada@Example.com",
		GlobalRole: models.RoleProjectManager,
	})
	suite.Require().NoError(err)
	suite.Equal("ada@example.com", user.Email)
	suite.Equal("Ada", user.Fname)
	suite.True(user.IsTempPasswordActive)
	suite.True(user.IsActive)
	suite.Require().NotNil(user.CreatedBy)
	suite.Equal(suite.admin.ID, *user.CreatedBy)

	suite.Require().Len(effects, 1)
	suite.Equal(models.NotificationWelcome, effects[0].Kind)
	suite.NoError(utils.ValidatePasswordStrength(effects[0].Secret))
	suite.NotEqual(effects[0].Secret, user.PasswordHash)

	_, _, err = suite.users.CreateUser(suite.ctx, suite.as(suite.admin), CreateUserInput{
		Fname: "Other", Email: "ada@example.com", GlobalRole: models.RoleTeamMember,
	})
	suite.assertKind(err, apierrors.KindState, "User with this email already exists.")

	_, _, err = suite.users.CreateUser(suite.ctx, suite.as(suite.admin), CreateUserInput{
		Fname: "Other", Email: "x@example.com", GlobalRole: "owner",
	})
	suite.assertKind(err, apierrors.KindValidation, "")

	_, _, err = suite.users.CreateUser(suite.ctx, suite.as(user), CreateUserInput{
		Fname: "Other", Email: "y@example.com", GlobalRole: models.RoleTeamMember,
	})
	suite.assertKind(err, apierrors.KindForbidden, "Only admins can manage users.")
}

func (suite *ServiceTestSuite) TestUserStatusAndDeletion() {
	dev := suite.createUser("dev@example.com", models.RoleTeamMember)
	admin := suite.as(suite.admin)

	_, _, err := suite.users.SetUserStatus(suite.ctx, admin, suite.admin.ID, false)
	suite.assertKind(err, apierrors.KindValidation, "You cannot change your own status.")

	_, _, err = suite.users.SetUserStatus(suite.ctx, admin, dev.ID, true)
	suite.assertKind(err, apierrors.KindState, "User is already active.")

	updated, effects, err := suite.users.SetUserStatus(suite.ctx, admin, dev.ID, false)
	suite.Require().NoError(err)
	suite.False(updated.IsActive)
	suite.Require().Len(effects, 1)
	suite.Equal(models.NotificationAccountStatus, effects[0].Kind)

	err = suite.users.DeleteUser(suite.ctx, admin, suite.admin.ID)
	suite.assertKind(err, apierrors.KindValidation, "You cannot delete yourself.")

	suite.Require().NoError(suite.users.DeleteUser(suite.ctx, admin, dev.ID))
	_, err = suite.users.GetUser(suite.ctx, admin, dev.ID)
	suite.assertKind(err, apierrors.KindNotFound, "User not found.")

	name := "Renamed"
	_, err = suite.users.UpdateUser(suite.ctx, admin, dev.ID, UpdateUserInput{Fname: &name})
	suite.assertKind(err, apierrors.KindNotFound, "Restore deleted user for update.")

	users, total, err := suite.users.ListUsers(suite.ctx, admin, ListUsersInput{IncludeDeleted: true, Search: "dev@"})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.True(users[0].IsDeleted)

	restored, err := suite.users.RestoreUser(suite.ctx, admin, dev.ID)
	suite.Require().NoError(err)
	suite.False(restored.IsDeleted)
	suite.Nil(restored.DeletedAt)
	suite.Nil(restored.DeletedBy)
	suite.Equal("dev@example.com", restored.Email)

	updatedUser, err := suite.users.UpdateUser(suite.ctx, admin, dev.ID, UpdateUserInput{Fname: &name})
	suite.Require().NoError(err)
	suite.Equal("Renamed", updatedUser.Fname)

	taken := "admin@example.com"
	_, err = suite.users.UpdateUser(suite.ctx, admin, dev.ID, UpdateUserInput{Email: &taken})
	suite.assertKind(err, apierrors.KindState, "")
}

func (suite *ServiceTestSuite) TestListUsersFilters() {
	suite.createUser("pm@example.com", models.RoleProjectManager)
	suite.createUser("dev1@example.com", models.RoleTeamMember)
	suite.createUser("dev2@example.com", models.RoleTeamMember)

	role := models.RoleTeamMember
	users, total, err := suite.users.ListUsers(suite.ctx, suite.as(suite.admin), ListUsersInput{
		Role:       &role,
		Pagination: utils.PaginationParams{Page: 1, Limit: 1, Offset: 0},
	})
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	suite.Len(users, 1)
}

func (suite *ServiceTestSuite) TestSeedAdmin() {
	user, created, err := suite.users.SeedAdmin(suite.ctx, SeedAdminInput{
		Email: " Root@Example.com ", Password: testPassword, Fname: "Root",
	})
	suite.Require().NoError(err)
	suite.True(created)
	suite.Equal("root@example.com", user.Email)
	suite.Equal(models.RoleAdmin, user.GlobalRole)
	suite.False(user.IsTempPasswordActive)

	result, err := suite.auth.Login(suite.ctx, LoginInput{Email: "root@example.com", Password: testPassword})
	suite.Require().NoError(err)
	suite.False(result.IsTempPassword)

	again, created, err := suite.users.SeedAdmin(suite.ctx, SeedAdminInput{
		Email: "root@example.com", Password: testPassword, Fname: "Other",
	})
	suite.Require().NoError(err)
	suite.False(created)
	suite.Equal(user.ID, again.ID)
	suite.Equal("Root", again.Fname)

	_, _, err = suite.users.SeedAdmin(suite.ctx, SeedAdminInput{Email: "weak@example.com", Password: "short", Fname: "Weak"})
	suite.assertKind(err, apierrors.KindValidation, utils.ErrPasswordTooShort.Error())
	var apiErr *apierrors.Error
	suite.Require().ErrorAs(err, &apiErr)
	suite.Equal(map[string][]string{"password": utils.PasswordProblems("short")}, apiErr.Details)
}
