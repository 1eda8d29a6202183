package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"questforge/backend/internal/auth"
	"questforge/backend/internal/database"
	"questforge/backend/internal/service"
	"questforge/backend/pkg/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) Generate(context.Context, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

type testApp struct {
	router    *gin.Engine
	db        *gorm.DB
	generator *stubGenerator
}

func newTestApp(t *testing.T) *testApp {
	return newTestAppRedis(t, nil)
}

func newTestAppRedis(t *testing.T, redisClient *redis.Client) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	log := logrus.New()
	log.SetOutput(bytes.NewBuffer(nil))

	tokens := jwt.NewManager("test-secret", time.Hour)
	denylist := auth.NewDenylist(redisClient)

	identity := service.NewIdentityService(db)
	adventures := service.NewAdventureService(db, 8)
	chat := service.NewChatService(db)
	sessions := service.NewSessionService(db, false)
	generator := &stubGenerator{text: "The story unfolds."}
	manager := service.NewGameManager(adventures, chat, sessions, generator, log)

	userHandler := NewUserHandler(identity, tokens, denylist, log)
	adventureHandler := NewAdventureHandler(adventures, manager, log)
	chatHandler := NewChatHandler(manager, adventures)
	sessionHandler := NewSessionHandler(manager, sessions, adventures)
	storyHandler := NewStoryHandler(manager, adventures)

	router := gin.New()
	apiV1 := router.Group("/api/v1")

	authRoutes := apiV1.Group("/auth")
	authRoutes.POST("/register", userHandler.Register)
	authRoutes.POST("/login", userHandler.Login)
	authRoutes.POST("/logout", auth.Middleware(tokens, denylist), userHandler.Logout)

	userRoutes := apiV1.Group("/users", auth.Middleware(tokens, denylist))
	userRoutes.GET("/me", userHandler.GetMe)

	adventureRoutes := apiV1.Group("/adventures")
	adventureRoutes.GET("", auth.OptionalMiddleware(tokens, denylist), adventureHandler.List)
	adventureRoutes.GET("/:id", auth.OptionalMiddleware(tokens, denylist), adventureHandler.Get)

	protected := adventureRoutes.Group("", auth.Middleware(tokens, denylist))
	protected.POST("", adventureHandler.Create)
	protected.DELETE("/:id", adventureHandler.Delete)
	protected.POST("/:id/join", adventureHandler.Join)
	protected.POST("/:id/leave", adventureHandler.Leave)
	protected.GET("/:id/chat", chatHandler.List)
	protected.POST("/:id/chat", chatHandler.Post)
	protected.POST("/:id/sessions", sessionHandler.Start)
	protected.POST("/:id/story", storyHandler.Submit)

	sessionRoutes := apiV1.Group("/sessions", auth.Middleware(tokens, denylist))
	sessionRoutes.DELETE("/:id", sessionHandler.End)
	sessionRoutes.PUT("/:id/state", sessionHandler.Save)
	sessionRoutes.GET("/:id/state", sessionHandler.Load)

	return &testApp{router: router, db: db, generator: generator}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) register(t *testing.T, username string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRegisterLoginFlow(t *testing.T) {
	app := newTestApp(t)

	app.register(t, "alice")

	// Duplicate username conflicts.
	w := app.do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterInput{
		Username: "alice", Email: "other@example.com", Password: "password123",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginInput{
		Username: "alice", Password: "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginInput{
		Username: "alice", Password: "wrongpassword",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetMeRequiresAuth(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	token := app.register(t, "alice")
	w = app.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[UserResponse](t, w)
	require.Equal(t, "alice", me.Username)
}

func TestLogoutRevokesToken(t *testing.T) {
	mr := miniredis.RunT(t)
	app := newTestAppRedis(t, redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	token := app.register(t, "alice")
	w := app.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The revoked token no longer authenticates anywhere.
	w = app.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = app.do(t, http.MethodPost, "/api/v1/adventures", token, AdventureInput{Title: "After logout"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// A fresh login issues a new, working token.
	w = app.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginInput{
		Username: "alice", Password: "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	fresh := decode[TokenResponse](t, w)
	w = app.do(t, http.MethodGet, "/api/v1/users/me", fresh.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPublicAdventureReads(t *testing.T) {
	app := newTestApp(t)
	alice := app.register(t, "alice")

	w := app.do(t, http.MethodPost, "/api/v1/adventures", alice, AdventureInput{Title: "Dragon's Lair"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[AdventureResponse](t, w)

	// Listing and detail views need no token.
	w = app.do(t, http.MethodGet, "/api/v1/adventures", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	listing := decode[PaginatedAdventureResponse](t, w)
	require.Len(t, listing.Data, 1)
	require.Equal(t, "Dragon's Lair", listing.Data[0].Title)

	w = app.do(t, http.MethodGet, fmt.Sprintf("/api/v1/adventures/%d", created.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice", decode[AdventureResponse](t, w).GameMaster.Username)

	// A garbage token does not break the public reads either.
	w = app.do(t, http.MethodGet, "/api/v1/adventures", "not-a-token", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Writes still require auth.
	w = app.do(t, http.MethodPost, "/api/v1/adventures", "", AdventureInput{Title: "No token"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdventureLifecycle(t *testing.T) {
	app := newTestApp(t)
	alice := app.register(t, "alice")
	bob := app.register(t, "bob")

	w := app.do(t, http.MethodPost, "/api/v1/adventures", alice, AdventureInput{Title: "Dragon's Lair"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[AdventureResponse](t, w)
	require.Equal(t, "Dragon's Lair", created.Title)
	require.Equal(t, "alice", created.GameMaster.Username)
	require.Empty(t, created.Players)

	path := fmt.Sprintf("/api/v1/adventures/%d", created.ID)

	w = app.do(t, http.MethodPost, path+"/join", bob, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	loaded := decode[AdventureResponse](t, w)
	require.Len(t, loaded.Players, 1)
	require.Equal(t, "bob", loaded.Players[0].Username)

	w = app.do(t, http.MethodPost, path+"/leave", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Only the game master deletes.
	w = app.do(t, http.MethodDelete, path, bob, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = app.do(t, http.MethodDelete, path, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = app.do(t, http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatMembersOnly(t *testing.T) {
	app := newTestApp(t)
	alice := app.register(t, "alice")
	bob := app.register(t, "bob")
	carol := app.register(t, "carol")

	w := app.do(t, http.MethodPost, "/api/v1/adventures", alice, AdventureInput{Title: "Dragon's Lair"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[AdventureResponse](t, w)
	chatPath := fmt.Sprintf("/api/v1/adventures/%d/chat", created.ID)

	w = app.do(t, http.MethodPost, fmt.Sprintf("/api/v1/adventures/%d/join", created.ID), bob, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Empty before anyone posts.
	w = app.do(t, http.MethodGet, chatPath, bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[[]MessageResponse](t, w))

	w = app.do(t, http.MethodPost, chatPath, bob, MessageInput{Text: "hello"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	posted := decode[MessageResponse](t, w)
	require.Equal(t, "bob", posted.Sender.Username)

	w = app.do(t, http.MethodGet, chatPath+"?limit=1", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	messages := decode[[]MessageResponse](t, w)
	require.Len(t, messages, 1)
	require.Equal(t, "hello", messages[0].Text)
	require.Equal(t, "bob", messages[0].Sender.Username)

	// Non-members are rejected.
	w = app.do(t, http.MethodPost, chatPath, carol, MessageInput{Text: "let me in"})
	require.Equal(t, http.StatusForbidden, w.Code)
	w = app.do(t, http.MethodGet, chatPath, carol, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestChatIncrementalPolling(t *testing.T) {
	app := newTestApp(t)
	alice := app.register(t, "alice")

	w := app.do(t, http.MethodPost, "/api/v1/adventures", alice, AdventureInput{Title: "Dragon's Lair"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[AdventureResponse](t, w)
	chatPath := fmt.Sprintf("/api/v1/adventures/%d/chat", created.ID)

	w = app.do(t, http.MethodPost, chatPath, alice, MessageInput{Text: "first"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = app.do(t, http.MethodGet, chatPath+"?since="+url.QueryEscape(time.Time{}.Format(time.RFC3339Nano)), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	messages := decode[[]MessageResponse](t, w)
	require.Len(t, messages, 1)

	// Polling from the newest timestamp returns nothing new.
	since := url.QueryEscape(messages[0].Timestamp.Format(time.RFC3339Nano))
	w = app.do(t, http.MethodGet, chatPath+"?since="+since, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[[]MessageResponse](t, w))

	w = app.do(t, http.MethodGet, chatPath+"?since=garbage", alice, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStorySubmit(t *testing.T) {
	app := newTestApp(t)
	alice := app.register(t, "alice")

	w := app.do(t, http.MethodPost, "/api/v1/adventures", alice, AdventureInput{Title: "Dragon's Lair"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[AdventureResponse](t, w)
	storyPath := fmt.Sprintf("/api/v1/adventures/%d/story", created.ID)

	w = app.do(t, http.MethodPost, storyPath, alice, StoryPromptInput{Prompt: "enter the lair"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	state := decode[StoryStateResponse](t, w)
	require.Equal(t, "The story unfolds.", state.StoryState["story"])

	// Adapter failure surfaces as 502 and leaves the state alone.
	app.generator.err = errors.New("upstream unavailable")
	w = app.do(t, http.MethodPost, storyPath, alice, StoryPromptInput{Prompt: "again"})
	require.Equal(t, http.StatusBadGateway, w.Code)

	w = app.do(t, http.MethodGet, fmt.Sprintf("/api/v1/adventures/%d", created.ID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	loaded := decode[AdventureResponse](t, w)
	require.Equal(t, "The story unfolds.", loaded.StoryState["story"])
}

func TestSessionEndpoints(t *testing.T) {
	app := newTestApp(t)
	alice := app.register(t, "alice")

	w := app.do(t, http.MethodPost, "/api/v1/adventures", alice, AdventureInput{Title: "Dragon's Lair"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[AdventureResponse](t, w)

	w = app.do(t, http.MethodPost, fmt.Sprintf("/api/v1/adventures/%d/sessions", created.ID), alice, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decode[SessionResponse](t, w)

	// Second start conflicts under the single-session policy.
	w = app.do(t, http.MethodPost, fmt.Sprintf("/api/v1/adventures/%d/sessions", created.ID), alice, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	statePath := fmt.Sprintf("/api/v1/sessions/%d/state", session.ID)
	w = app.do(t, http.MethodPut, statePath, alice, gin.H{"state": gin.H{"scene": "entrance"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, statePath, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	snapshot := decode[SessionStateResponse](t, w)
	require.Equal(t, "entrance", snapshot.State["scene"])

	w = app.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/sessions/%d", session.ID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = app.do(t, http.MethodGet, statePath, alice, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
