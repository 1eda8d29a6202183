package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"questforge/backend/internal/models"

	"gorm.io/gorm"
)

const maxTitleLength = 120

// AdventureService owns adventures, their game-master/player roster and their
// story state.
type AdventureService struct {
	db         *gorm.DB
	maxPlayers int
}

// NewAdventureService creates an AdventureService. maxPlayers bounds the
// roster size; zero or negative means unbounded.
func NewAdventureService(db *gorm.DB, maxPlayers int) *AdventureService {
	return &AdventureService{db: db, maxPlayers: maxPlayers}
}

// Create persists a new adventure owned by gameMasterID, together with its
// chat room, in one transaction. The player roster starts empty; the game
// master is not automatically a player.
func (s *AdventureService) Create(ctx context.Context, gameMasterID uint, title string) (*models.Adventure, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > maxTitleLength {
		return nil, fmt.Errorf("%w: title must be 1-%d characters", ErrValidation, maxTitleLength)
	}

	adventure := models.Adventure{
		Title:        title,
		GameMasterID: gameMasterID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.User{}, gameMasterID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %d", ErrNotFound, gameMasterID)
			}
			return err
		}
		if err := tx.Create(&adventure).Error; err != nil {
			return err
		}
		return tx.Create(&models.ChatRoom{AdventureID: adventure.ID}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create adventure: %w", err)
	}
	return &adventure, nil
}

// Get retrieves an adventure with its game master and roster.
func (s *AdventureService) Get(ctx context.Context, id uint) (*models.Adventure, error) {
	var adventure models.Adventure
	err := s.db.WithContext(ctx).
		Preload("GameMaster").
		Preload("Players").
		First(&adventure, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: adventure %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("lookup adventure: %w", err)
	}
	return &adventure, nil
}

// List returns a page of adventures, newest first, with the total count.
func (s *AdventureService) List(ctx context.Context, page, limit int) ([]models.Adventure, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int64
	query := s.db.WithContext(ctx).Model(&models.Adventure{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count adventures: %w", err)
	}

	var adventures []models.Adventure
	err := query.
		Preload("GameMaster").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&adventures).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list adventures: %w", err)
	}
	return adventures, total, nil
}

// AddPlayer adds a user to the roster. Adding a user who is already a member
// is a no-op.
func (s *AdventureService) AddPlayer(ctx context.Context, adventureID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		adventure, err := findAdventure(tx, adventureID)
		if err != nil {
			return err
		}

		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %d", ErrNotFound, userID)
			}
			return err
		}

		member, err := isPlayer(tx, adventureID, userID)
		if err != nil {
			return err
		}
		if member {
			return nil
		}

		if s.maxPlayers > 0 {
			count := tx.Model(adventure).Association("Players").Count()
			if int(count) >= s.maxPlayers {
				return ErrRosterFull
			}
		}

		return tx.Model(adventure).Association("Players").Append(&user)
	})
}

// RemovePlayer drops a user from the roster. Removing a non-member is a no-op.
func (s *AdventureService) RemovePlayer(ctx context.Context, adventureID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		adventure, err := findAdventure(tx, adventureID)
		if err != nil {
			return err
		}
		member, err := isPlayer(tx, adventureID, userID)
		if err != nil {
			return err
		}
		if !member {
			return nil
		}
		return tx.Model(adventure).Association("Players").Delete(&models.User{Model: gorm.Model{ID: userID}})
	})
}

// IsMember reports whether the user is the game master or a roster player.
func (s *AdventureService) IsMember(ctx context.Context, adventureID, userID uint) (bool, error) {
	var adventure models.Adventure
	err := s.db.WithContext(ctx).Select("id", "game_master_id").First(&adventure, adventureID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("%w: adventure %d", ErrNotFound, adventureID)
		}
		return false, fmt.Errorf("lookup adventure: %w", err)
	}
	if adventure.GameMasterID == userID {
		return true, nil
	}
	return isPlayer(s.db.WithContext(ctx), adventureID, userID)
}

// UpdateStoryState replaces the story state wholesale and bumps the version.
// The version guard serializes concurrent replacers: a writer that lost the
// race re-reads and retries once before giving up.
func (s *AdventureService) UpdateStoryState(ctx context.Context, adventureID uint, state models.StateMap) error {
	for attempt := 0; attempt < 2; attempt++ {
		var adventure models.Adventure
		err := s.db.WithContext(ctx).Select("id", "story_version").First(&adventure, adventureID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: adventure %d", ErrNotFound, adventureID)
			}
			return fmt.Errorf("lookup adventure: %w", err)
		}

		res := s.db.WithContext(ctx).Model(&models.Adventure{}).
			Where("id = ? AND story_version = ?", adventureID, adventure.StoryVersion).
			Select("StoryState", "StoryVersion").
			Updates(models.Adventure{
				StoryState:   state.Clone(),
				StoryVersion: adventure.StoryVersion + 1,
			})
		if res.Error != nil {
			return fmt.Errorf("update story state: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return nil
		}
	}
	return fmt.Errorf("update story state: concurrent writers on adventure %d", adventureID)
}

// Delete removes an adventure and, through the cascade constraints, its chat
// room, messages and sessions.
func (s *AdventureService) Delete(ctx context.Context, adventureID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		adventure, err := findAdventure(tx, adventureID)
		if err != nil {
			return err
		}
		if err := tx.Where("adventure_id = ?", adventureID).Delete(&models.GameSession{}).Error; err != nil {
			return err
		}
		var room models.ChatRoom
		if err := tx.Where("adventure_id = ?", adventureID).First(&room).Error; err == nil {
			if err := tx.Where("chat_room_id = ?", room.ID).Delete(&models.Message{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&room).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Model(adventure).Association("Players").Clear(); err != nil {
			return err
		}
		return tx.Delete(adventure).Error
	})
}

func findAdventure(tx *gorm.DB, adventureID uint) (*models.Adventure, error) {
	var adventure models.Adventure
	if err := tx.First(&adventure, adventureID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: adventure %d", ErrNotFound, adventureID)
		}
		return nil, err
	}
	return &adventure, nil
}

func isPlayer(tx *gorm.DB, adventureID, userID uint) (bool, error) {
	var count int64
	err := tx.Table("adventure_players").
		Where("adventure_id = ? AND user_id = ?", adventureID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}
