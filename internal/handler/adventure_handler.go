package handler

import (
	"net/http"

	"questforge/backend/internal/auth"
	"questforge/backend/internal/models"
	"questforge/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// region --- DTOs ---

// AdventureInput defines the structure for creating an adventure.
type AdventureInput struct {
	Title string `json:"title" binding:"required,max=120" example:"Dragon's Lair"`
}

// AdventureResponse defines the structure for a full adventure view.
type AdventureResponse struct {
	ID           uint            `json:"id"`
	Title        string          `json:"title"`
	GameMaster   UserResponse    `json:"game_master"`
	Players      []UserResponse  `json:"players"`
	StoryState   models.StateMap `json:"story_state"`
	StoryVersion uint            `json:"story_version"`
}

// AdventureSummary is the compact listing form.
type AdventureSummary struct {
	ID         uint         `json:"id"`
	Title      string       `json:"title"`
	GameMaster UserResponse `json:"game_master"`
}

// PaginatedAdventureResponse defines a paginated list of adventures.
type PaginatedAdventureResponse struct {
	Data []AdventureSummary `json:"data"`
	Meta PaginationMeta     `json:"meta"`
}

func newAdventureResponse(adventure models.Adventure) AdventureResponse {
	players := make([]UserResponse, 0, len(adventure.Players))
	for _, p := range adventure.Players {
		if p != nil {
			players = append(players, newPublicUserResponse(*p))
		}
	}
	state := adventure.StoryState
	if state == nil {
		state = models.StateMap{}
	}
	return AdventureResponse{
		ID:           adventure.ID,
		Title:        adventure.Title,
		GameMaster:   newPublicUserResponse(adventure.GameMaster),
		Players:      players,
		StoryState:   state,
		StoryVersion: adventure.StoryVersion,
	}
}

// endregion

// AdventureHandler serves adventure CRUD and roster membership.
type AdventureHandler struct {
	adventures *service.AdventureService
	manager    *service.GameManager
	log        *logrus.Logger
}

// NewAdventureHandler wires an AdventureHandler.
func NewAdventureHandler(adventures *service.AdventureService, manager *service.GameManager, log *logrus.Logger) *AdventureHandler {
	return &AdventureHandler{adventures: adventures, manager: manager, log: log}
}

// Create godoc
// @Summary      Create a new adventure
// @Description  Creates an adventure with the caller as game master, plus its chat room.
// @Tags         adventures
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body AdventureInput true "Adventure Info"
// @Success      201  {object}  AdventureResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /adventures [post]
func (h *AdventureHandler) Create(c *gin.Context) {
	userID, _ := auth.UserID(c)

	var input AdventureInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adventure, err := h.manager.CreateAdventure(c.Request.Context(), userID, input.Title)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	// Reload with associations for the response.
	adventure, err = h.adventures.Get(c.Request.Context(), adventure.ID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"adventure_id": adventure.ID,
		"user_id":      userID,
	}).Info("adventure created")
	c.JSON(http.StatusCreated, newAdventureResponse(*adventure))
}

// List godoc
// @Summary      List adventures
// @Description  Gets a paginated list of adventures, newest first. No authentication required.
// @Tags         adventures
// @Produce      json
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(10)
// @Success      200 {object} PaginatedAdventureResponse
// @Router       /adventures [get]
func (h *AdventureHandler) List(c *gin.Context) {
	page, limit := pageParams(c)

	adventures, total, err := h.adventures.List(c.Request.Context(), page, limit)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	summaries := make([]AdventureSummary, 0, len(adventures))
	for _, a := range adventures {
		summaries = append(summaries, AdventureSummary{
			ID:         a.ID,
			Title:      a.Title,
			GameMaster: newPublicUserResponse(a.GameMaster),
		})
	}

	c.JSON(http.StatusOK, PaginatedAdventureResponse{
		Data: summaries,
		Meta: NewPaginationMeta(total, page, limit),
	})
}

// Get godoc
// @Summary      Get an adventure by ID
// @Description  Gets the full adventure view, including roster and story state. No authentication required.
// @Tags         adventures
// @Produce      json
// @Param        id path int true "Adventure ID"
// @Success      200 {object} AdventureResponse
// @Failure      404 {object} ErrorResponse "Adventure not found"
// @Router       /adventures/{id} [get]
func (h *AdventureHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid adventure ID"})
		return
	}

	adventure, err := h.adventures.Get(c.Request.Context(), id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAdventureResponse(*adventure))
}

// Delete godoc
// @Summary      Delete an adventure (game master only)
// @Description  Deletes the adventure and cascades to its chat room, messages and sessions.
// @Tags         adventures
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Adventure ID"
// @Success      200 {object} map[string]string "{"message": "Adventure deleted"}"
// @Failure      403 {object} ErrorResponse "Only the game master can delete the adventure"
// @Failure      404 {object} ErrorResponse "Adventure not found"
// @Router       /adventures/{id} [delete]
func (h *AdventureHandler) Delete(c *gin.Context) {
	userID, _ := auth.UserID(c)
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid adventure ID"})
		return
	}

	adventure, err := h.adventures.Get(c.Request.Context(), id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if adventure.GameMasterID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the game master can delete the adventure"})
		return
	}

	if err := h.adventures.Delete(c.Request.Context(), id); err != nil {
		abortWithServiceError(c, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"adventure_id": id,
		"user_id":      userID,
	}).Info("adventure deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Adventure deleted"})
}

// Join godoc
// @Summary      Join an adventure
// @Description  Adds the caller to the adventure's roster. Joining twice is a no-op.
// @Tags         adventures
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Adventure ID"
// @Success      200 {object} map[string]string "{"message": "Joined adventure"}"
// @Failure      404 {object} ErrorResponse "Adventure not found"
// @Failure      409 {object} ErrorResponse "Roster is full"
// @Router       /adventures/{id}/join [post]
func (h *AdventureHandler) Join(c *gin.Context) {
	userID, _ := auth.UserID(c)
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid adventure ID"})
		return
	}

	if err := h.manager.JoinAdventure(c.Request.Context(), id, userID); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Joined adventure"})
}

// Leave godoc
// @Summary      Leave an adventure
// @Description  Removes the caller from the roster. Leaving when not a member is a no-op.
// @Tags         adventures
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Adventure ID"
// @Success      200 {object} map[string]string "{"message": "Left adventure"}"
// @Failure      404 {object} ErrorResponse "Adventure not found"
// @Router       /adventures/{id}/leave [post]
func (h *AdventureHandler) Leave(c *gin.Context) {
	userID, _ := auth.UserID(c)
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid adventure ID"})
		return
	}

	if err := h.manager.LeaveAdventure(c.Request.Context(), id, userID); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left adventure"})
}
