package handler

import (
	"net/http"

	"questforge/backend/internal/auth"
	"questforge/backend/internal/models"
	"questforge/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// StoryPromptInput defines the structure for submitting a story prompt.
type StoryPromptInput struct {
	Prompt string `json:"prompt" binding:"required" example:"The party enters the cavern..."`
}

// StoryStateResponse carries the story state after a successful generation.
type StoryStateResponse struct {
	StoryState models.StateMap `json:"story_state"`
}

// endregion

// StoryHandler relays prompts to the generation adapter.
type StoryHandler struct {
	manager    *service.GameManager
	adventures *service.AdventureService
}

// NewStoryHandler wires a StoryHandler.
func NewStoryHandler(manager *service.GameManager, adventures *service.AdventureService) *StoryHandler {
	return &StoryHandler{manager: manager, adventures: adventures}
}

// Submit godoc
// @Summary      Submit a story prompt
// @Description  Sends the prompt to the text-generation service and, on success,
// @Description  replaces the adventure's story state with the generated text.
// @Tags         story
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int              true "Adventure ID"
// @Param        input body StoryPromptInput true "Prompt"
// @Success      200 {object} StoryStateResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse "Not a member of this adventure"
// @Failure      404 {object} ErrorResponse "Adventure not found"
// @Failure      429 {object} ErrorResponse "Too many requests"
// @Failure      502 {object} ErrorResponse "Generation failed"
// @Router       /adventures/{id}/story [post]
func (h *StoryHandler) Submit(c *gin.Context) {
	userID, _ := auth.UserID(c)
	adventureID, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid adventure ID"})
		return
	}

	member, err := h.adventures.IsMember(c.Request.Context(), adventureID, userID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this adventure"})
		return
	}

	var input StoryPromptInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.manager.GenerateAndUpdateStory(c.Request.Context(), adventureID, input.Prompt)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, StoryStateResponse{StoryState: state})
}
