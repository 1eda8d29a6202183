package handler

import (
	"net/http"
	"strconv"
	"time"

	"questforge/backend/internal/auth"
	"questforge/backend/internal/models"
	"questforge/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// MessageInput defines the structure for posting a chat message.
type MessageInput struct {
	Text string `json:"text" binding:"required,max=500" example:"hello"`
}

// MessageResponse defines the structure for a chat message.
type MessageResponse struct {
	ID        uint         `json:"id"`
	Sender    UserResponse `json:"sender"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
}

func newMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:        message.ID,
		Sender:    newPublicUserResponse(message.Sender),
		Text:      message.Text,
		Timestamp: message.CreatedAt,
	}
}

// endregion

// ChatHandler serves the poll-based chat of an adventure.
type ChatHandler struct {
	manager    *service.GameManager
	adventures *service.AdventureService
}

// NewChatHandler wires a ChatHandler.
func NewChatHandler(manager *service.GameManager, adventures *service.AdventureService) *ChatHandler {
	return &ChatHandler{manager: manager, adventures: adventures}
}

// Post godoc
// @Summary      Post a chat message
// @Description  Appends a message to the adventure's chat room. Members only.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int          true "Adventure ID"
// @Param        input body MessageInput true "Message"
// @Success      201 {object} MessageResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse "Not a member of this adventure"
// @Failure      404 {object} ErrorResponse "Adventure not found"
// @Router       /adventures/{id}/chat [post]
func (h *ChatHandler) Post(c *gin.Context) {
	userID, _ := auth.UserID(c)
	adventureID, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid adventure ID"})
		return
	}

	if !h.requireMember(c, adventureID, userID) {
		return
	}

	var input MessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.manager.SendChatMessage(c.Request.Context(), adventureID, userID, input.Text)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newMessageResponse(*message))
}

// List godoc
// @Summary      List chat messages
// @Description  Returns the newest messages (newest first), or, when "since" is
// @Description  given as an RFC3339Nano timestamp, the messages strictly newer
// @Description  than it in ascending order for incremental polling.
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  int    true  "Adventure ID"
// @Param        limit query int    false "Maximum messages" default(50)
// @Param        since query string false "RFC3339Nano lower bound (exclusive)"
// @Success      200 {array} MessageResponse
// @Failure      400 {object} ErrorResponse "Invalid since timestamp"
// @Failure      403 {object} ErrorResponse "Not a member of this adventure"
// @Failure      404 {object} ErrorResponse "Adventure not found"
// @Router       /adventures/{id}/chat [get]
func (h *ChatHandler) List(c *gin.Context) {
	userID, _ := auth.UserID(c)
	adventureID, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid adventure ID"})
		return
	}

	if !h.requireMember(c, adventureID, userID) {
		return
	}

	var (
		messages []models.Message
		err      error
	)
	if since := c.Query("since"); since != "" {
		t, parseErr := time.Parse(time.RFC3339Nano, since)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since timestamp"})
			return
		}
		messages, err = h.manager.ChatMessagesSince(c.Request.Context(), adventureID, t)
	} else {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultMessageLimit)))
		messages, err = h.manager.RecentChatMessages(c.Request.Context(), adventureID, limit)
	}
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	responses := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, newMessageResponse(m))
	}
	c.JSON(http.StatusOK, responses)
}

func (h *ChatHandler) requireMember(c *gin.Context, adventureID, userID uint) bool {
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
