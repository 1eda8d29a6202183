package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"questforge/backend/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	maxUsernameLength = 80
	maxEmailLength    = 120
	minPasswordLength = 8
)

// IdentityService owns user credentials and identity lookup.
type IdentityService struct {
	db *gorm.DB
}

// NewIdentityService creates an IdentityService backed by the given store.
func NewIdentityService(db *gorm.DB) *IdentityService {
	return &IdentityService{db: db}
}

// Register creates a new user, storing only a bcrypt hash of the password.
// Username and email must both be unique (exact match, as stored).
func (s *IdentityService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	switch {
	case username == "" || len(username) > maxUsernameLength:
		return nil, fmt.Errorf("%w: username must be 1-%d characters", ErrValidation, maxUsernameLength)
	case email == "" || len(email) > maxEmailLength:
		return nil, fmt.Errorf("%w: email must be 1-%d characters", ErrValidation, maxEmailLength)
	case len(password) < minPasswordLength:
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	var existing models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", username, email).
		First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateIdentity
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup existing user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// The unique constraints are the source of truth under concurrent
		// registration; the pre-check above only gives a nicer fast path.
		return nil, fmt.Errorf("%w: %v", ErrDuplicateIdentity, err)
	}
	return &user, nil
}

// Authenticate verifies a username/password pair. Unknown users and wrong
// passwords are indistinguishable to callers.
func (s *IdentityService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetByID retrieves a user by its identity.
func (s *IdentityService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &user, nil
}
