package handler

import (
	"net/http"

	"questforge/backend/internal/auth"
	"questforge/backend/internal/models"
	"questforge/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// SessionResponse defines the structure for a game session.
type SessionResponse struct {
	ID          uint `json:"id"`
	AdventureID uint `json:"adventure_id"`
}

// SessionStateInput carries a whole-blob session snapshot.
type SessionStateInput struct {
	State models.StateMap `json:"state" binding:"required"`
}

// SessionStateResponse carries a loaded session snapshot.
type SessionStateResponse struct {
	State models.StateMap `json:"state"`
}

// endregion

// SessionHandler serves game session lifecycle and snapshots.
type SessionHandler struct {
	manager    *service.GameManager
	sessions   *service.SessionService
	adventures *service.AdventureService
}

// NewSessionHandler wires a SessionHandler.
func NewSessionHandler(manager *service.GameManager, sessions *service.SessionService, adventures *service.AdventureService) *SessionHandler {
	return &SessionHandler{manager: manager, sessions: sessions, adventures: adventures}
}

// Start godoc
// @Summary      Start a game session
// @Description  Creates a session for the adventure. Members only. Fails when a
// @Description  session already exists and multiple sessions are disabled.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Adventure ID"
// @Success      201 {object} SessionResponse
// @Failure      403 {object} ErrorResponse "Not a member of this adventure"
// @Failure      404 {object} ErrorResponse "Adventure not found"
// @Failure      409 {object} ErrorResponse "Session already exists"
// @Router       /adventures/{id}/sessions [post]
func (h *SessionHandler) Start(c *gin.Context) {
	userID, _ := auth.UserID(c)
	adventureID, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid adventure ID"})
		return
	}

	if !h.requireMember(c, adventureID, userID) {
		return
	}

	session, err := h.manager.StartSession(c.Request.Context(), adventureID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SessionResponse{ID: session.ID, AdventureID: session.AdventureID})
}

// End godoc
// @Summary      End a game session
// @Description  Deletes the session permanently. Game master only.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} map[string]string "{"message": "Session ended"}"
// @Failure      403 {object} ErrorResponse "Only the game master can end the session"
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /sessions/{id} [delete]
func (h *SessionHandler) End(c *gin.Context) {
	userID, _ := auth.UserID(c)
	sessionID, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	session, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	adventure, err := h.adventures.Get(c.Request.Context(), session.AdventureID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if adventure.GameMasterID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the game master can end the session"})
		return
	}

	if err := h.manager.EndSession(c.Request.Context(), sessionID); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session ended"})
}

// Save godoc
// @Summary      Save a session snapshot
// @Description  Replaces the session's state blob wholesale. Members only.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int               true "Session ID"
// @Param        input body SessionStateInput true "Snapshot"
// @Success      200 {object} map[string]string "{"message": "Session saved"}"
// @Failure      403 {object} ErrorResponse "Not a member of this adventure"
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /sessions/{id}/state [put]
func (h *SessionHandler) Save(c *gin.Context) {
	userID, _ := auth.UserID(c)
	sessionID, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	session, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if !h.requireMember(c, session.AdventureID, userID) {
		return
	}

	var input SessionStateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.manager.SaveSession(c.Request.Context(), sessionID, input.State); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session saved"})
}

// Load godoc
// @Summary      Load a session snapshot
// @Description  Returns the session's state blob; empty if never saved. Members only.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} SessionStateResponse
// @Failure      403 {object} ErrorResponse "Not a member of this adventure"
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /sessions/{id}/state [get]
func (h *SessionHandler) Load(c *gin.Context) {
	userID, _ := auth.UserID(c)
	sessionID, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	session, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if !h.requireMember(c, session.AdventureID, userID) {
		return
	}

	state, err := h.manager.LoadSession(c.Request.Context(), sessionID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionStateResponse{State: state})
}

func (h *SessionHandler) requireMember(c *gin.Context, adventureID, userID uint) bool {
	member, err := h.adventures.IsMember(c.Request.Context(), adventureID, userID)
	if err != nil {
		abortWithServiceError(c, err)
		return false
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this adventure"})
		return false
	}
	return true
}
