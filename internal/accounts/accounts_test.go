package accounts

import (
	"context"
	"testing"
	"time"

	"trip-ledger/internal/apperr"
	"trip-ledger/internal/models"
	"trip-ledger/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AccountsTestSuite struct {
	suite.Suite
	ctx      context.Context
	db       *storage.DB
	svc      *Service
	admin    *models.User
	employee *models.User
}

func (suite *AccountsTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err)
	suite.db = db
	suite.ctx = context.Background()
	suite.svc = New(db)
	suite.svc.now = func() time.Time { return time.Date(2024, 5, 17, 13, 0, 0, 0, time.UTC) }

	suite.admin, err = suite.svc.Register(suite.ctx, NewUser{Name: "Admin", Email: "Admin@Example.com", Role: models.RoleAdmin, Password: "secret"})
	require.NoError(suite.T(), err)
	suite.employee, err = suite.svc.Register(suite.ctx, NewUser{Name: "Carla", Email: "carla@example.com", Password: "secret"})
	require.NoError(suite.T(), err)
}

func (suite *AccountsTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *AccountsTestSuite) TestRegisterDefaultsAndValidation() {
	assert.Equal(suite.T(), "admin@example.com", suite.admin.Email)
	assert.Equal(suite.T(), models.RoleEmployee, suite.employee.Role)
	assert.NotEqual(suite.T(), "secret", suite.employee.PasswordHash)

	tests := []struct {
		name string
		in   NewUser
	}{
		{"no name", NewUser{Email: "a@b.c", Password: "x"}},
		{"bad email", NewUser{Name: "A", Email: "nope", Password: "x"}},
		{"bad role", NewUser{Name: "A", Email: "a@b.c", Role: "root", Password: "x"}},
		{"no password", NewUser{Name: "A", Email: "a@b.c"}},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.svc.Register(suite.ctx, tt.in)
			assert.ErrorIs(suite.T(), err, apperr.ErrValidation)
		})
	}

	_, err := suite.svc.Register(suite.ctx, NewUser{Name: "Dup", Email: "CARLA@example.com", Password: "x"})
	assert.ErrorIs(suite.T(), err, apperr.ErrIntegrity)
}

func (suite *AccountsTestSuite) TestCreateUserRequiresAdmin() {
	_, err := suite.svc.CreateUser(suite.ctx, suite.employee, NewUser{Name: "B", Email: "b@example.com", Password: "x"})
	assert.ErrorIs(suite.T(), err, apperr.ErrPermissionDenied)

	u, err := suite.svc.CreateUser(suite.ctx, suite.admin, NewUser{Name: "B", Email: "b@example.com", Password: "x"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "B", u.Name)
}

func (suite *AccountsTestSuite) TestAuthenticate() {
	u, err := suite.svc.Authenticate(suite.ctx, " carla@EXAMPLE.com ", "secret")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.employee.ID, u.ID)

	_, err = suite.svc.Authenticate(suite.ctx, "carla@example.com", "wrong")
	assert.ErrorIs(suite.T(), err, apperr.ErrUnauthenticated)

	_, err = suite.svc.Authenticate(suite.ctx, "ghost@example.com", "secret")
	assert.ErrorIs(suite.T(), err, apperr.ErrUnauthenticated)

	_, err = suite.svc.Authenticate(suite.ctx, "", "secret")
	assert.ErrorIs(suite.T(), err, apperr.ErrValidation)
}

func (suite *AccountsTestSuite) TestSessions() {
	suite.svc.now = time.Now

	token, expires, err := suite.svc.OpenSession(suite.ctx, suite.employee.ID, models.SessionAPI, time.Hour)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), token, 64)
	assert.WithinDuration(suite.T(), time.Now().Add(time.Hour), expires, time.Minute)

	u, err := suite.db.ValidateSession(suite.ctx, token, models.SessionAPI)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.employee.ID, u.ID)

	require.NoError(suite.T(), suite.svc.CloseSession(suite.ctx, token))
	_, err = suite.db.ValidateSession(suite.ctx, token, models.SessionAPI)
	assert.ErrorIs(suite.T(), err, apperr.ErrUnauthenticated, "token stops working after logout")
}

func (suite *AccountsTestSuite) TestDeleteUserGuards() {
	err := suite.svc.DeleteUser(suite.ctx, suite.employee, suite.admin.ID)
	assert.ErrorIs(suite.T(), err, apperr.ErrPermissionDenied)

	err = suite.svc.DeleteUser(suite.ctx, suite.admin, suite.admin.ID)
	assert.ErrorIs(suite.T(), err, apperr.ErrPermissionDenied, "self deletion is refused")

	err = suite.svc.DeleteUser(suite.ctx, suite.admin, 999)
	assert.ErrorIs(suite.T(), err, apperr.ErrNotFound)

	second, err := suite.svc.Register(suite.ctx, NewUser{Name: "Bia", Email: "bia@example.com", Role: models.RoleAdmin, Password: "x"})
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.svc.DeleteUser(suite.ctx, suite.admin, second.ID))

	// Once Caio removes the original admin, Caio is the only admin left.
	third, err := suite.svc.Register(suite.ctx, NewUser{Name: "Caio", Email: "caio@example.com", Role: models.RoleAdmin, Password: "x"})
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.svc.DeleteUser(suite.ctx, third, suite.admin.ID))
	err = suite.svc.DeleteUser(suite.ctx, suite.admin, third.ID)
	assert.ErrorIs(suite.T(), err, apperr.ErrPermissionDenied, "last admin cannot be removed")

	require.NoError(suite.T(), suite.svc.DeleteUser(suite.ctx, third, suite.employee.ID))
	_, err = suite.db.GetUser(suite.ctx, suite.employee.ID)
	assert.ErrorIs(suite.T(), err, apperr.ErrNotFound)
}

func (suite *AccountsTestSuite) TestDeleteUserWithTripsIsRefused() {
	_, err := suite.svc.CreateTrip(suite.ctx, suite.admin, NewTrip{UserID: suite.employee.ID, Title: "Recife"})
	require.NoError(suite.T(), err)

	err = suite.svc.DeleteUser(suite.ctx, suite.admin, suite.employee.ID)
	assert.ErrorIs(suite.T(), err, apperr.ErrIntegrity)
}

func (suite *AccountsTestSuite) TestSetPassword() {
	err := suite.svc.SetPassword(suite.ctx, suite.employee, suite.admin.ID, "new")
	assert.ErrorIs(suite.T(), err, apperr.ErrPermissionDenied)

	err = suite.svc.SetPassword(suite.ctx, suite.admin, suite.employee.ID, " ")
	assert.ErrorIs(suite.T(), err, apperr.ErrValidation)

	require.NoError(suite.T(), suite.svc.SetPassword(suite.ctx, suite.admin, suite.employee.ID, "reset"))
	_, err = suite.svc.Authenticate(suite.ctx, "carla@example.com", "reset")
	assert.NoError(suite.T(), err)

	err = suite.svc.SetPassword(suite.ctx, suite.admin, 999, "x")
	assert.ErrorIs(suite.T(), err, apperr.ErrNotFound)
}

func (suite *AccountsTestSuite) TestUpdateProfile() {
	u, err := suite.svc.UpdateProfile(suite.ctx, suite.employee, ProfileUpdate{Name: " Carla Souza ", BankInfo: "PIX carla@example.com"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Carla Souza", u.Name)
	assert.Equal(suite.T(), "PIX carla@example.com", u.BankInfo)

	_, err = suite.svc.Authenticate(suite.ctx, "carla@example.com", "secret")
	assert.NoError(suite.T(), err, "password unchanged when none is given")

	_, err = suite.svc.UpdateProfile(suite.ctx, suite.employee, ProfileUpdate{Name: "Carla", NewPassword: "changed"})
	require.NoError(suite.T(), err)
	_, err = suite.svc.Authenticate(suite.ctx, "carla@example.com", "changed")
	assert.NoError(suite.T(), err)

	_, err = suite.svc.UpdateProfile(suite.ctx, suite.employee, ProfileUpdate{Name: ""})
	assert.ErrorIs(suite.T(), err, apperr.ErrValidation)
}

func (suite *AccountsTestSuite) TestCreateTrip() {
	t, err := suite.svc.CreateTrip(suite.ctx, suite.admin, NewTrip{UserID: suite.employee.ID, Title: "Recife"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.employee.ID, t.UserID)
	assert.Equal(suite.T(), "2024-05-17", t.StartDate.Format(time.DateOnly), "start defaults to today")
	assert.Equal(suite.T(), t.StartDate, t.EndDate, "trip ends on the day it starts")
	assert.Equal(suite.T(), "aberta", t.Status)
	assert.Equal(suite.T(), "Carla", t.OwnerName)

	t, err = suite.svc.CreateTrip(suite.ctx, suite.admin, NewTrip{UserID: suite.employee.ID, Title: "Natal", StartDate: "2024-06-02", DailyLimit: "150,50"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "2024-06-02", t.EndDate.Format(time.DateOnly))
	assert.Equal(suite.T(), "150.5", t.DailyLimit.String())

	t, err = suite.svc.CreateTrip(suite.ctx, suite.admin, NewTrip{Title: "Brasília"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.admin.ID, t.UserID, "no user means the admin's own trip")

	_, err = suite.svc.CreateTrip(suite.ctx, suite.admin, NewTrip{UserID: suite.employee.ID, Title: " "})
	assert.ErrorIs(suite.T(), err, apperr.ErrValidation)

	_, err = suite.svc.CreateTrip(suite.ctx, suite.admin, NewTrip{UserID: suite.employee.ID, Title: "X", DailyLimit: "-1"})
	assert.ErrorIs(suite.T(), err, apperr.ErrValidation)
}

func (suite *AccountsTestSuite) TestEmployeeCannotOpenTrips() {
	_, err := suite.svc.CreateTrip(suite.ctx, suite.employee, NewTrip{Title: "Recife"})
	assert.ErrorIs(suite.T(), err, apperr.ErrPermissionDenied)

	_, err = suite.svc.CreateTrip(suite.ctx, suite.employee, NewTrip{UserID: suite.employee.ID, Title: "Recife"})
	assert.ErrorIs(suite.T(), err, apperr.ErrPermissionDenied)

	_, err = suite.svc.CreateTrip(suite.ctx, suite.employee, NewTrip{UserID: suite.admin.ID, Title: "X"})
	assert.ErrorIs(suite.T(), err, apperr.ErrPermissionDenied)

	_, err = suite.svc.CreateTrip(suite.ctx, nil, NewTrip{Title: "X"})
	assert.ErrorIs(suite.T(), err, apperr.ErrPermissionDenied)

	trips, err := suite.db.ListTripsByUser(suite.ctx, suite.employee.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), trips)
}

func (suite *AccountsTestSuite) TestReassignAndVisibility() {
	t, err := suite.svc.CreateTrip(suite.ctx, suite.admin, NewTrip{UserID: suite.employee.ID, Title: "Recife"})
	require.NoError(suite.T(), err)

	other, err := suite.svc.Register(suite.ctx, NewUser{Name: "Davi", Email: "davi@example.com", Password: "x"})
	require.NoError(suite.T(), err)

	_, err = suite.svc.VisibleTrip(suite.ctx, other, t.ID)
	assert.ErrorIs(suite.T(), err, apperr.ErrPermissionDenied)

	err = suite.svc.ReassignTrip(suite.ctx, suite.employee, t.ID, other.ID)
	assert.ErrorIs(suite.T(), err, apperr.ErrPermissionDenied)

	err = suite.svc.ReassignTrip(suite.ctx, suite.admin, t.ID, 999)
	assert.ErrorIs(suite.T(), err, apperr.ErrNotFound)

	err = suite.svc.ReassignTrip(suite.ctx, suite.admin, 999, other.ID)
	assert.ErrorIs(suite.T(), err, apperr.ErrNotFound)

	require.NoError(suite.T(), suite.svc.ReassignTrip(suite.ctx, suite.admin, t.ID, other.ID))

	got, err := suite.svc.VisibleTrip(suite.ctx, other, t.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Davi", got.OwnerName)

	_, err = suite.svc.VisibleTrip(suite.ctx, suite.admin, t.ID)
	assert.NoError(suite.T(), err, "admins see every trip")
}

func (suite *AccountsTestSuite) TestEnsureAdmin() {
	created, err := suite.svc.EnsureAdmin(suite.ctx, BootstrapAdmin{Name: "Root", Email: "root@example.com", Password: "x"})
	require.NoError(suite.T(), err)
	assert.False(suite.T(), created, "an admin already exists")

	empty, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err)
	defer empty.Close()
	svc := New(empty)

	_, err = svc.EnsureAdmin(suite.ctx, BootstrapAdmin{})
	assert.ErrorIs(suite.T(), err, apperr.ErrValidation)

	created, err = svc.EnsureAdmin(suite.ctx, BootstrapAdmin{Name: "Root", Email: "root@example.com", Password: "x"})
	require.NoError(suite.T(), err)
	assert.True(suite.T(), created)

	u, err := svc.Authenticate(suite.ctx, "root@example.com", "x")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), u.IsAdmin())
}

func TestAccountsSuite(t *testing.T) {
	suite.Run(t, new(AccountsTestSuite))
}
