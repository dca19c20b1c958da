// Package accounts administers users, trips and login sessions on top of the
// store. Ledger math lives in package ledger; this package only decides who
// may do what to whom.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trip-ledger/internal/apperr"
	"trip-ledger/internal/auth"
	"trip-ledger/internal/ledger"
	"trip-ledger/internal/models"
	"trip-ledger/internal/storage"

	"github.com/shopspring/decimal"
)

// Service wraps the store with account rules.
type Service struct {
	db  *storage.DB
	now func() time.Time
}

// New creates a Service over db.
func New(db *storage.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// NewUser is the input for creating a user.
type NewUser struct {
	Name     string
	Email    string
	Role     models.Role
	Password string
}

func (n NewUser) validate() (NewUser, error) {
	n.Name = strings.TrimSpace(n.Name)
	n.Email = strings.ToLower(strings.TrimSpace(n.Email))
	if n.Role == "" {
		n.Role = models.RoleEmployee
	}
	switch {
	case n.Name == "":
		return n, apperr.Validation("name is required")
	case !strings.Contains(n.Email, "@"):
		return n, apperr.Validation("invalid email %q", n.Email)
	case !n.Role.Valid():
		return n, apperr.Validation("unknown role %q", n.Role)
	case n.Password == "":
		return n, apperr.Validation("password is required")
	}
	return n, nil
}

// Register creates a user without an acting admin. It backs the command
// line tool and the bootstrap admin.
func (s *Service) Register(ctx context.Context, in NewUser) (*models.User, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.db.CreateUser(ctx, in.Name, in.Email, in.Role, hash)
}

// CreateUser creates a user on behalf of an admin.
func (s *Service) CreateUser(ctx context.Context, actor *models.User, in NewUser) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperr.PermissionDenied("only admins can create users")
	}
	return s.Register(ctx, in)
}

// DeleteUser removes a user. Admins cannot remove themselves or the last
// admin, and a user who still owns trips cannot be removed.
func (s *Service) DeleteUser(ctx context.Context, actor *models.User, userID int64) error {
	if !actor.IsAdmin() {
		return apperr.PermissionDenied("only admins can remove users")
	}
	if actor.ID == userID {
		return apperr.PermissionDenied("cannot remove yourself")
	}

	target, err := s.db.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if target.IsAdmin() {
		admins, err := s.db.CountAdmins(ctx)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return apperr.PermissionDenied("cannot remove the last admin")
		}
	}
	return s.db.DeleteUser(ctx, userID)
}

// SetPassword replaces a user's password. Admins may reset anyone; other
// users only themselves.
func (s *Service) SetPassword(ctx context.Context, actor *models.User, userID int64, password string) error {
	if actor == nil || (!actor.IsAdmin() && actor.ID != userID) {
		return apperr.PermissionDenied("cannot change another user's password")
	}
	if strings.TrimSpace(password) == "" {
		return apperr.Validation("password is required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.db.SetUserPassword(ctx, userID, hash)
}

// ProfileUpdate is what a user may change about themselves.
type ProfileUpdate struct {
	Name     string
	BankInfo string
	// NewPassword is optional; empty keeps the current password.
	NewPassword string
}

// UpdateProfile changes the actor's own name, bank info and optionally
// password.
func (s *Service) UpdateProfile(ctx context.Context, actor *models.User, in ProfileUpdate) (*models.User, error) {
	if actor == nil {
		return nil, apperr.PermissionDenied("login required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if err := s.db.UpdateUserProfile(ctx, actor.ID, name, strings.TrimSpace(in.BankInfo)); err != nil {
		return nil, err
	}
	if in.NewPassword != "" {
		if err := s.SetPassword(ctx, actor, actor.ID, in.NewPassword); err != nil {
			return nil, err
		}
	}
	return s.db.GetUser(ctx, actor.ID)
}

// NewTrip is the input for creating a trip.
type NewTrip struct {
	UserID     int64
	Title      string
	StartDate  string
	DailyLimit string
}

// CreateTrip opens a trip for a user. Admin only; a zero UserID opens the
// trip for the admin. A missing start date means today, and the trip ends on
// the day it starts.
func (s *Service) CreateTrip(ctx context.Context, actor *models.User, in NewTrip) (*models.Trip, error) {
	if !actor.IsAdmin() {
		return nil, apperr.PermissionDenied("only admins can open trips")
	}
	if in.UserID == 0 {
		in.UserID = actor.ID
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}

	start := s.today()
	if strings.TrimSpace(in.StartDate) != "" {
		d, err := ledger.ParseDate(in.StartDate)
		if err != nil {
			return nil, err
		}
		start = d
	}

	limit := decimal.Zero
	if strings.TrimSpace(in.DailyLimit) != "" {
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(in.DailyLimit), ",", "."))
		if err != nil || d.IsNegative() {
			return nil, apperr.Validation("invalid daily limit %q", in.DailyLimit)
		}
		limit = d
	}

	if _, err := s.db.GetUser(ctx, in.UserID); err != nil {
		return nil, err
	}

	t := &models.Trip{UserID: in.UserID, Title: title, StartDate: start, EndDate: start, DailyLimit: limit}
	if err := s.db.CreateTrip(ctx, t); err != nil {
		return nil, err
	}
	return s.db.GetTrip(ctx, t.ID)
}

// ReassignTrip hands a trip and its expenses to another user. Admin only.
func (s *Service) ReassignTrip(ctx context.Context, actor *models.User, tripID, newUserID int64) error {
	if !actor.IsAdmin() {
		return apperr.PermissionDenied("only admins can reassign trips")
	}
	if _, err := s.db.GetTrip(ctx, tripID); err != nil {
		return err
	}
	if _, err := s.db.GetUser(ctx, newUserID); err != nil {
		return err
	}
	return s.db.ReassignTrip(ctx, tripID, newUserID)
}

// VisibleTrip returns a trip the actor may see: admins see every trip,
// employees only their own.
func (s *Service) VisibleTrip(ctx context.Context, actor *models.User, tripID int64) (*models.Trip, error) {
	if actor == nil {
		return nil, apperr.PermissionDenied("login required")
	}
	t, err := s.db.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && t.UserID != actor.ID {
		return nil, apperr.PermissionDenied("trip belongs to another user")
	}
	return t, nil
}

// Authenticate checks an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	u, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	return u, nil
}

// OpenSession issues a token of the given kind for the user.
func (s *Service) OpenSession(ctx context.Context, userID int64, kind models.SessionKind, ttl time.Duration) (string, time.Time, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token: %w", err)
	}
	expiresAt := s.now().Add(ttl)
	if err := s.db.CreateSession(ctx, token, userID, kind, expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// CloseSession revokes a token. Unknown tokens are ignored.
func (s *Service) CloseSession(ctx context.Context, token string) error {
	return s.db.DeleteSession(ctx, token)
}

// BootstrapAdmin describes the admin created on an empty database.
type BootstrapAdmin struct {
	Name     string
	Email    string
	Password string
}

// EnsureAdmin creates the bootstrap admin when no admin exists yet. It
// reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, b BootstrapAdmin) (bool, error) {
	admins, err := s.db.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if admins > 0 {
		return false, nil
	}
	if b.Email == "" || b.Password == "" {
		return false, apperr.Validation("no admin exists and no bootstrap credentials are configured")
	}
	if _, err := s.Register(ctx, NewUser{Name: b.Name, Email: b.Email, Role: models.RoleAdmin, Password: b.Password}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) today() time.Time {
	n := s.now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}
