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

	"github.com/minifeed/backend/internal/config"
	"github.com/minifeed/backend/internal/database"
	"github.com/minifeed/backend/internal/logging"
	"github.com/minifeed/backend/internal/posts"
	"github.com/minifeed/backend/internal/server"
	"github.com/minifeed/backend/internal/storage"
	"github.com/minifeed/backend/internal/storage/gormstore"
	"github.com/minifeed/backend/internal/storage/memory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	}

	store, health, err := openStore(cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	service := posts.NewService(store, log)
	srv := server.NewServer(cfg, service, health, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "storage": cfg.Storage}).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s", err)
		}
	}()

	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	if err := store.Close(); err != nil {
		log.WithError(err).Error("Closing storage")
	}

	log.Info("Server exiting")
}

// openStore builds the configured Store and the health probe served on /health.
func openStore(cfg *config.Config, log *logrus.Logger) (storage.Store, server.HealthFunc, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("Using in-memory storage; data is lost on restart")
		return memory.New(), nil, nil
	}

	db, err := database.New(cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	return gormstore.New(db.GetDB()), db.Health, nil
}
