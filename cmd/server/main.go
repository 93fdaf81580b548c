package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/imom29/CodeCollab/internal/api"
	"github.com/imom29/CodeCollab/internal/config"
	"github.com/imom29/CodeCollab/internal/ratelimit"
	"github.com/imom29/CodeCollab/internal/retention"
	"github.com/imom29/CodeCollab/internal/room"
	"github.com/imom29/CodeCollab/internal/suggest"
	"github.com/imom29/CodeCollab/internal/ws"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)

	registry := room.NewRegistry(logger)
	hub := ws.NewHub(registry, logger)
	go hub.Run()

	var generator suggest.Generator
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; /suggest will answer with the fallback message")
	} else {
		g, err := suggest.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Gemini client; /suggest disabled")
		} else {
			generator = g
			logger.WithField("model", cfg.GeminiModel).Info("Gemini client initialized")
		}
	}

	limiters := ratelimit.NewClientLimiters(cfg.SuggestRate, cfg.SuggestBurst)
	apiHandler := api.New(generator, limiters, logger)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestLogger(logger))
	router.Use(api.CORS())

	router.GET("/healthcheck", apiHandler.Healthcheck)
	router.POST("/suggest", apiHandler.Suggest)
	router.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(hub, c.Writer, c.Request)
	})

	var sweeper *retention.Service
	if cfg.RoomTTL > 0 {
		sweeper = retention.New(registry, hub, retention.DefaultConfig(cfg.RoomTTL), logger)
		sweeper.Start()
	} else {
		logger.Info("Room TTL disabled; rooms are retained for the process lifetime")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Relay server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received")

	if sweeper != nil {
		sweeper.Stop()
	}
	limiters.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Error shutting down HTTP server")
	}

	hub.Stop()
	logger.Info("Server stopped")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.AppEnv == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stdout)
	return logger
}
