package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"reflections-backend/internal/journal"
	"reflections-backend/internal/llm"
	"reflections-backend/internal/llm/openai"
	"reflections-backend/internal/shared/config"
	"reflections-backend/internal/shared/metrics"
	"reflections-backend/internal/shared/server/middleware"
	"reflections-backend/internal/shared/server/respond"
	"reflections-backend/internal/shared/storage/db"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: rateLimitGroup,
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": {Rate: 10, Burst: 30},
				// AI passes fan out to the LLM provider; keep them slow.
				"AI": {Rate: 0.5, Burst: 3},
			},
		}),
	)

	// Dependencies
	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(context.Background(), cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			log.Printf("failed to connect database, falling back to file store: %v", err)
		} else {
			if err := db.RunMigrations(context.Background(), dbConn); err != nil {
				log.Printf("failed to run migrations, falling back to file store: %v", err)
				dbConn.Close()
				dbConn = nil
			}
		}
		sqlDB = dbConn
	}

	var repo journal.Repo
	if sqlDB != nil {
		repo = &journal.PGRepo{DB: sqlDB}
	} else {
		repo = journal.NewFileRepo(cfg.DataDir)
	}

	var llmClient llm.Client
	if cfg.APIKey != "" && cfg.LLMProvider == "openai" {
		client, err := openai.NewClient(cfg.APIKey, cfg.LLMModel)
		if err != nil {
			log.Printf("failed to build LLM client, AI operations disabled: %v", err)
		} else {
			llmClient = client
		}
	}

	mgr := journal.NewManager(repo, llmClient)
	handler := journal.NewHandler(mgr)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	handler.RegisterRoutes(api)

	return r
}

func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost {
		switch c.FullPath() {
		case "/api/v1/entries/analyze", "/api/v1/check-ins/suggestions":
			return "AI"
		}
	}
	return "DEFAULT"
}

// Addr returns a normalized listen address for the given port.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
