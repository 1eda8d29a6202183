package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"questforge/backend/internal/models"

	"gorm.io/gorm"
)

const (
	// DefaultMessageLimit is the page size when the caller does not ask for one.
	DefaultMessageLimit = 50
	maxMessageLimit     = 100
)

// ChatService is the append-only message store, one room per adventure.
type ChatService struct {
	db *gorm.DB
}

// NewChatService creates a ChatService backed by the given store.
func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db}
}

// PostMessage appends a message to a room with the current timestamp.
func (s *ChatService) PostMessage(ctx context.Context, roomID, senderID uint, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: message text is empty", ErrValidation)
	}
	if len(text) > models.MaxMessageLength {
		return nil, fmt.Errorf("%w: message text exceeds %d characters", ErrValidation, models.MaxMessageLength)
	}

	message := models.Message{
		ChatRoomID: roomID,
		SenderID:   senderID,
		Text:       text,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.ChatRoom{}, roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: chat room %d", ErrNotFound, roomID)
			}
			return err
		}
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		// Load the sender so callers can render the message without a
		// second round trip.
		return tx.First(&message.Sender, senderID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}
	return &message, nil
}

// RecentMessages returns up to limit messages, newest first. Ties on the
// timestamp are broken by the identity sequence.
func (s *ChatService) RecentMessages(ctx context.Context, roomID uint, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	var messages []models.Message
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("chat_room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("load recent messages: %w", err)
	}
	return messages, nil
}

// MessagesSince returns the messages strictly newer than t, oldest first.
// Clients poll with the max timestamp of the previous batch.
func (s *ChatService) MessagesSince(ctx context.Context, roomID uint, t time.Time) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("chat_room_id = ? AND created_at > ?", roomID, t).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("load messages since %s: %w", t.Format(time.RFC3339Nano), err)
	}
	return messages, nil
}

// RoomForAdventure resolves the chat room owned by an adventure.
func (s *ChatService) RoomForAdventure(ctx context.Context, adventureID uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.db.WithContext(ctx).Where("adventure_id = ?", adventureID).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: chat room for adventure %d", ErrNotFound, adventureID)
		}
		return nil, fmt.Errorf("lookup chat room: %w", err)
	}
	return &room, nil
}
