package service

import (
	"context"
	"errors"
	"fmt"

	"questforge/backend/internal/models"

	"gorm.io/gorm"
)

// SessionService persists and restores play-through snapshots.
type SessionService struct {
	db            *gorm.DB
	allowMultiple bool
}

// NewSessionService creates a SessionService. When allowMultiple is false an
// adventure is capped at one session at a time.
func NewSessionService(db *gorm.DB, allowMultiple bool) *SessionService {
	return &SessionService{db: db, allowMultiple: allowMultiple}
}

// Start creates a session for an adventure.
func (s *SessionService) Start(ctx context.Context, adventureID uint) (*models.GameSession, error) {
	session := models.GameSession{AdventureID: adventureID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Adventure{}, adventureID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: adventure %d", ErrNotFound, adventureID)
			}
			return err
		}
		if !s.allowMultiple {
			var count int64
			if err := tx.Model(&models.GameSession{}).
				Where("adventure_id = ?", adventureID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrSessionExists
			}
		}
		return tx.Create(&session).Error
	})
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return &session, nil
}

// End deletes a session permanently.
func (s *SessionService) End(ctx context.Context, sessionID uint) error {
	res := s.db.WithContext(ctx).Delete(&models.GameSession{}, sessionID)
	if res.Error != nil {
		return fmt.Errorf("end session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
	}
	return nil
}

// Save writes a whole-blob snapshot of the session state.
func (s *SessionService) Save(ctx context.Context, sessionID uint, state models.StateMap) error {
	res := s.db.WithContext(ctx).Model(&models.GameSession{}).
		Where("id = ?", sessionID).
		Select("State").
		Updates(models.GameSession{State: state.Clone()})
	if res.Error != nil {
		return fmt.Errorf("save session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
	}
	return nil
}

// Load returns the session's snapshot. A session that was never saved loads
// as an empty map.
func (s *SessionService) Load(ctx context.Context, sessionID uint) (models.StateMap, error) {
	var session models.GameSession
	if err := s.db.WithContext(ctx).First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session.State == nil {
		return models.StateMap{}, nil
	}
	return session.State, nil
}

// Get retrieves a session by id.
func (s *SessionService) Get(ctx context.Context, sessionID uint) (*models.GameSession, error) {
	var session models.GameSession
	if err := s.db.WithContext(ctx).First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	return &session, nil
}
