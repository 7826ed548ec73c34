package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jo-hoe/imagevault/internal/backend"
	"github.com/jo-hoe/imagevault/internal/cache"
	"github.com/jo-hoe/imagevault/internal/common"
	"github.com/jo-hoe/imagevault/internal/core"
	"github.com/jo-hoe/imagevault/internal/detection"
	"github.com/jo-hoe/imagevault/internal/imaging"
	"github.com/jo-hoe/imagevault/internal/metadata"
	"github.com/jo-hoe/imagevault/internal/storage"
)

func getConfigPath() string {
	// First check if config path is provided via environment variable
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}

	// Default to config.yaml in current working directory
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cwd, "config.yaml")
}

func main() {
	configPath := getConfigPath()
	config, err := core.LoadConfig(configPath)
	if err != nil {
		log.Printf("failed to load config from %s: %v", configPath, err)
		panic(err)
	}

	vault, records, err := buildVault(config)
	if err != nil {
		log.Printf("failed to assemble services: %v", err)
		panic(err)
	}

	server := defineServer()
	backend.NewAPIService(vault).SetRoutes(server)

	portString := fmt.Sprintf(":%d", config.Port)

	// Start HTTP server in a goroutine to allow graceful shutdown
	go func() {
		if err := server.Start(portString); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Printf("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if err := records.Close(); err != nil {
		log.Printf("metadata store close error: %v", err)
	}
}

// buildVault wires the storage backend, metadata store, validator and
// the optional cache and detection clients into the orchestrator.
func buildVault(config *core.ServiceConfig) (*core.VaultService, metadata.Store, error) {
	blobs, err := storage.NewLocalBackend(config.VaultRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open vault root: %w", err)
	}

	if config.Database.Type != "sqlite" {
		return nil, nil, fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}
	records, err := metadata.NewSQLiteStore(config.Database.ConnectionString)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	validator := imaging.NewValidator(
		config.Limits.MaxUploadBytes,
		config.Limits.MaxWidth,
		config.Limits.MaxHeight,
		config.AllowedFormats,
	)

	var contentCache core.ContentCache
	if config.Cache.Address != "" {
		redisCache, err := cache.NewContentCache(config.Cache.Address, time.Duration(config.Cache.TTL))
		if err != nil {
			// The cache is an accelerator, never a dependency
			slog.Warn("content cache unavailable, continuing without it",
				"address", config.Cache.Address,
				"error", err)
		} else {
			contentCache = redisCache
		}
	}

	var detector core.Detector
	if config.Detection.Endpoint != "" {
		detector = detection.NewClient(config.Detection.Endpoint, time.Duration(config.Detection.RequestTimeout))
	}

	return core.NewVaultService(blobs, records, validator, contentCache, detector), records, nil
}

func defineServer() *echo.Echo {
	e := echo.New()

	// Configure request logger to skip the probe endpoint
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/probe"
		},
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogError:     true,
		LogRemoteIP:  true,
		LogHost:      true,
		LogUserAgent: true,
		LogRoutePath: true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Printf("%s %s (route=%s) - Status: %d - Latency: %v - Error: %v - RemoteIP: %s - Host: %s - UA: %s",
					v.Method,
					v.URI,
					v.RoutePath,
					v.Status,
					v.Latency,
					v.Error,
					v.RemoteIP,
					v.Host,
					v.UserAgent,
				)
			} else {
				log.Printf("%s %s (route=%s) - Status: %d - Latency: %v - RemoteIP: %s - Host: %s - UA: %s",
					v.Method,
					v.URI,
					v.RoutePath,
					v.Status,
					v.Latency,
					v.RemoteIP,
					v.Host,
					v.UserAgent,
				)
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Pre(middleware.RemoveTrailingSlash())

	e.Validator = &common.GenericEchoValidator{}

	return e
}
