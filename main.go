// api/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"portfolio/api/analytics"
	"portfolio/api/config"
	"portfolio/api/database"
	"portfolio/api/enrich"
	"portfolio/api/handlers"
	"portfolio/api/middleware"
	"portfolio/api/store"
	"portfolio/api/utils"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load .env file at the very start; absence is fine in production.
	if err := godotenv.Load(); err != nil {
		logger.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- PostgreSQL (admin users) ---
	dbClient, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize PostgreSQL database")
	}
	defer dbClient.Close()
	logger.Info().Msg("connected to PostgreSQL")

	// --- MongoDB (sessions, page views, alerts) ---
	mongoClient, err := database.NewMongoDB(cfg.MongoURL, cfg.MongoDBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize MongoDB")
	}
	defer mongoClient.Close(context.Background())
	logger.Info().Str("database", cfg.MongoDBName).Msg("connected to MongoDB")

	// --- Stores ---
	userStore := store.NewUserStore(dbClient.DB)
	sessionStore := store.NewMongoSessionStore(mongoClient, cfg.StoreTimeout)

	// --- Core pipeline ---
	geoResolver := enrich.NewIPAPIResolver(cfg.GeoAPIBaseURL, cfg.GeoLocalLabel, cfg.GeoTimeout, logger)
	agentParser := enrich.NewUAParser()
	ingestor := analytics.NewIngestor(sessionStore, geoResolver, agentParser, cfg.GeoTimeout, logger)
	aggregator := analytics.NewAggregator(sessionStore, logger)

	// --- Handlers ---
	jwtManager := utils.NewJWTManager(cfg.JWTSecret)
	authHandlers := handlers.NewAuthHandlers(userStore, jwtManager, logger)
	analyticsHandlers := handlers.NewAnalyticsHandlers(ingestor, aggregator, cfg.IngestTimeout, logger)

	r := gin.Default()
	r.Use(middleware.CORSMiddleware(cfg.FEOrigin))

	api := r.Group("/api")
	{
		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)

		// Public ingestion endpoints, called by the site's tracking script.
		tracking := api.Group("/analytics")
		{
			tracking.POST("/session/start", analyticsHandlers.StartSession)
			tracking.POST("/session/end", analyticsHandlers.EndSession)
			tracking.POST("/pageview", analyticsHandlers.RecordPageView)
			tracking.POST("/devtools-alert", analyticsHandlers.RecordDevToolsAlert)
		}

		// Dashboard endpoints require a valid admin JWT.
		protected := api.Group("/")
		protected.Use(middleware.AuthRequired(jwtManager, logger))
		{
			protected.GET("/analytics/stats", analyticsHandlers.GetStats)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("API server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("API server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exiting")
}
