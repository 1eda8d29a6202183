package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"questforge/backend/internal/models"
	"questforge/backend/internal/story"

	"github.com/sirupsen/logrus"
)

// GameManager is the orchestration façade over the adventure, chat and
// session services plus the story generator. Each method is one logical unit
// of work.
type GameManager struct {
	adventures *AdventureService
	chat       *ChatService
	sessions   *SessionService
	generator  story.Generator
	log        *logrus.Logger
}

// NewGameManager wires the façade from its collaborators.
func NewGameManager(
	adventures *AdventureService,
	chat *ChatService,
	sessions *SessionService,
	generator story.Generator,
	log *logrus.Logger,
) *GameManager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GameManager{
		adventures: adventures,
		chat:       chat,
		sessions:   sessions,
		generator:  generator,
		log:        log,
	}
}

// CreateAdventure creates an adventure owned by the given game master.
func (m *GameManager) CreateAdventure(ctx context.Context, gameMasterID uint, title string) (*models.Adventure, error) {
	return m.adventures.Create(ctx, gameMasterID, title)
}

// JoinAdventure adds a player to an adventure's roster.
func (m *GameManager) JoinAdventure(ctx context.Context, adventureID, playerID uint) error {
	return m.adventures.AddPlayer(ctx, adventureID, playerID)
}

// LeaveAdventure removes a player from an adventure's roster.
func (m *GameManager) LeaveAdventure(ctx context.Context, adventureID, playerID uint) error {
	return m.adventures.RemovePlayer(ctx, adventureID, playerID)
}

// StartSession begins a play session for an adventure.
func (m *GameManager) StartSession(ctx context.Context, adventureID uint) (*models.GameSession, error) {
	return m.sessions.Start(ctx, adventureID)
}

// EndSession destroys a session permanently.
func (m *GameManager) EndSession(ctx context.Context, sessionID uint) error {
	return m.sessions.End(ctx, sessionID)
}

// SaveSession snapshots the session state.
func (m *GameManager) SaveSession(ctx context.Context, sessionID uint, state models.StateMap) error {
	return m.sessions.Save(ctx, sessionID, state)
}

// LoadSession restores the session snapshot.
func (m *GameManager) LoadSession(ctx context.Context, sessionID uint) (models.StateMap, error) {
	return m.sessions.Load(ctx, sessionID)
}

// SendChatMessage posts to an adventure's chat room.
func (m *GameManager) SendChatMessage(ctx context.Context, adventureID, senderID uint, text string) (*models.Message, error) {
	room, err := m.chat.RoomForAdventure(ctx, adventureID)
	if err != nil {
		return nil, err
	}
	return m.chat.PostMessage(ctx, room.ID, senderID, text)
}

// RecentChatMessages reads the newest messages of an adventure's room.
func (m *GameManager) RecentChatMessages(ctx context.Context, adventureID uint, limit int) ([]models.Message, error) {
	room, err := m.chat.RoomForAdventure(ctx, adventureID)
	if err != nil {
		return nil, err
	}
	return m.chat.RecentMessages(ctx, room.ID, limit)
}

// ChatMessagesSince reads messages newer than t for incremental polling.
func (m *GameManager) ChatMessagesSince(ctx context.Context, adventureID uint, t time.Time) ([]models.Message, error) {
	room, err := m.chat.RoomForAdventure(ctx, adventureID)
	if err != nil {
		return nil, err
	}
	return m.chat.MessagesSince(ctx, room.ID, t)
}

// GenerateAndUpdateStory relays a prompt to the generation adapter and, on
// success, replaces the adventure's story state with {"story": <text>}. On
// adapter failure the state is left untouched and the wrapped cause is
// surfaced under ErrGeneration.
func (m *GameManager) GenerateAndUpdateStory(ctx context.Context, adventureID uint, prompt string) (models.StateMap, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is empty", ErrValidation)
	}

	if _, err := m.adventures.Get(ctx, adventureID); err != nil {
		return nil, err
	}

	text, err := m.generator.Generate(ctx, prompt)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"adventure_id": adventureID,
		}).WithError(err).Error("story generation failed")
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	state := models.StateMap{"story": text}
	if err := m.adventures.UpdateStoryState(ctx, adventureID, state); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"adventure_id": adventureID,
		"chars":        len(text),
	}).Info("story state updated")
	return state, nil
}
