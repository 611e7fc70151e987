package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/mo-amir99/lms-access-gateway/internal/bootstrap"
	"github.com/mo-amir99/lms-access-gateway/pkg/config"
	"github.com/mo-amir99/lms-access-gateway/pkg/database"
	"github.com/mo-amir99/lms-access-gateway/pkg/logger"
)

const confirmPhrase = "DROP ALL TABLES"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	db, err := database.Connect(context.Background(), cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close(db, appLogger)

	fmt.Println("\nWARNING: this drops every gateway table (profiles, sections, entitlements, codes, content).")
	fmt.Println("This action CANNOT be undone.")
	fmt.Printf("\nType '%s' to confirm: ", confirmPhrase)

	confirmation, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	if strings.TrimSpace(confirmation) != confirmPhrase {
		fmt.Println("\nOperation cancelled. Database unchanged.")
		return
	}

	// Dependents first.
	models := bootstrap.Models()
	slices.Reverse(models)

	dropped := 0
	for _, model := range models {
		if err := db.Migrator().DropTable(model); err != nil {
			appLogger.Warn("Failed to drop table", slog.String("model", fmt.Sprintf("%T", model)), slog.String("error", err.Error()))
			continue
		}
		appLogger.Info("Dropped table", slog.String("model", fmt.Sprintf("%T", model)))
		dropped++
	}

	fmt.Printf("\nDropped %d tables. Run scripts/migrate to recreate them.\n", dropped)
}
