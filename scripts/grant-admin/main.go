package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/mo-amir99/lms-access-gateway/internal/bootstrap"
	"github.com/mo-amir99/lms-access-gateway/pkg/config"
	"github.com/mo-amir99/lms-access-gateway/pkg/database"
	"github.com/mo-amir99/lms-access-gateway/pkg/logger"
)

func main() {
	userID := flag.String("user", "", "auth provider user ID (UUID) to promote to admin")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: grant-admin -user <uuid>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close(db, appLogger)

	if err := bootstrap.EnsureBootstrapAdmin(ctx, db, *userID, appLogger); err != nil {
		appLogger.Error("Failed to grant admin", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("\nUser %s now has the admin role.\n", *userID)
}
