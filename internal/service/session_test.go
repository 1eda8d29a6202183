package service

import (
	"context"
	"testing"

	"questforge/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSessionSingleByDefault(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionService(db, false)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	adventure := createAdventure(t, db, alice.ID, "Dragon's Lair")

	_, err := sessions.Start(ctx, adventure.ID)
	require.NoError(t, err)

	_, err = sessions.Start(ctx, adventure.ID)
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestStartSessionMultipleWhenAllowed(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionService(db, true)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	adventure := createAdventure(t, db, alice.ID, "Dragon's Lair")

	_, err := sessions.Start(ctx, adventure.ID)
	require.NoError(t, err)
	_, err = sessions.Start(ctx, adventure.ID)
	require.NoError(t, err)
}

func TestStartSessionMissingAdventure(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionService(db, false)

	_, err := sessions.Start(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEndSession(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionService(db, false)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	adventure := createAdventure(t, db, alice.ID, "Dragon's Lair")
	session, err := sessions.Start(ctx, adventure.ID)
	require.NoError(t, err)

	require.NoError(t, sessions.End(ctx, session.ID))

	err = sessions.End(ctx, session.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Ending frees the slot under the single-session policy.
	_, err = sessions.Start(ctx, adventure.ID)
	require.NoError(t, err)
}

func TestSaveAndLoadSession(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionService(db, false)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	adventure := createAdventure(t, db, alice.ID, "Dragon's Lair")
	session, err := sessions.Start(ctx, adventure.ID)
	require.NoError(t, err)

	// Never saved: loads as an empty map.
	state, err := sessions.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, state)

	require.NoError(t, sessions.Save(ctx, session.ID, models.StateMap{"scene": "cavern"}))

	state, err = sessions.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateMap{"scene": "cavern"}, state)

	// Snapshots replace wholesale.
	require.NoError(t, sessions.Save(ctx, session.ID, models.StateMap{"turn": float64(3)}))
	state, err = sessions.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateMap{"turn": float64(3)}, state)
}

func TestSaveLoadMissingSession(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionService(db, false)
	ctx := context.Background()

	err := sessions.Save(ctx, 999, models.StateMap{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = sessions.Load(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
