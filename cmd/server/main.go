// Command server runs the PostOptima API as a long-lived HTTP server.
// Set POSTGRES_AUTO_MIGRATE=true to apply pending migrations on boot.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/prperemyshlev/postoptima-api/internal/app"
	"github.com/prperemyshlev/postoptima-api/internal/config"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	infra, err := app.NewInfrastructure(ctx, *cfg)
	if err != nil {
		log.Fatalf("Failed to initialize infrastructure: %v", err)
	}
	logger := infra.Logger()

	api, err := app.NewApp(infra, cfg)
	if err != nil {
		_ = infra.Shutdown(context.Background())
		logger.Fatal("Failed to build application", zap.Error(err))
	}

	go func() {
		<-ctx.Done()
		logger.Info("Received shutdown signal")
	}()

	if err := api.Run(ctx); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}
