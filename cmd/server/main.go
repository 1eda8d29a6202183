package main

import (
	"net/http"
	"time"

	"questforge/backend/internal/auth"
	"questforge/backend/internal/config"
	"questforge/backend/internal/database"
	"questforge/backend/internal/handler"
	"questforge/backend/internal/middleware"
	"questforge/backend/internal/service"
	"questforge/backend/internal/story"
	"questforge/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           QuestForge API
// @version         1.0
// @description     Multiplayer text-adventure backend: adventures, rosters, chat and AI-driven story progression.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}()
	log.Info("database connection established")

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
		log.Info("redis connection configured")
	} else {
		log.Warn("REDIS_URL not set; logout revocation and rate limiting disabled")
	}

	tokens := jwt.NewManager(cfg.JWTSecret, 7*24*time.Hour)
	denylist := auth.NewDenylist(redisClient)

	identity := service.NewIdentityService(db)
	adventures := service.NewAdventureService(db, cfg.MaxPlayersPerAdventure)
	chat := service.NewChatService(db)
	sessions := service.NewSessionService(db, cfg.AllowMultipleSessions)
	generator := story.NewClient(story.Config{
		APIKey:    cfg.OpenAIAPIKey,
		BaseURL:   cfg.OpenAIBaseURL,
		Model:     cfg.StoryModel,
		MaxTokens: cfg.StoryMaxTokens,
		Timeout:   cfg.StoryTimeout,
	})
	manager := service.NewGameManager(adventures, chat, sessions, generator, log)

	userHandler := handler.NewUserHandler(identity, tokens, denylist, log)
	adventureHandler := handler.NewAdventureHandler(adventures, manager, log)
	chatHandler := handler.NewChatHandler(manager, adventures)
	sessionHandler := handler.NewSessionHandler(manager, sessions, adventures)
	storyHandler := handler.NewStoryHandler(manager, adventures)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", userHandler.Register)
			authRoutes.POST("/login", userHandler.Login)
			authRoutes.POST("/logout", auth.Middleware(tokens, denylist), userHandler.Logout)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.Middleware(tokens, denylist))
		{
			userRoutes.GET("/me", userHandler.GetMe)
		}

		// Adventure routes. Listings and detail views are public reads;
		// everything that writes or exposes member content requires auth.
		adventureRoutes := apiV1.Group("/adventures")
		{
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

			protected.POST("/:id/story",
				middleware.RateLimit(redisClient, log, cfg.StoryRateLimit, time.Minute),
				storyHandler.Submit)
		}

		// Session routes (protected)
		sessionRoutes := apiV1.Group("/sessions")
		sessionRoutes.Use(auth.Middleware(tokens, denylist))
		{
			sessionRoutes.DELETE("/:id", sessionHandler.End)
			sessionRoutes.PUT("/:id/state", sessionHandler.Save)
			sessionRoutes.GET("/:id/state", sessionHandler.Load)
		}
	}

	log.WithField("port", cfg.Port).Info("server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
