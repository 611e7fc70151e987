package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/mo-amir99/lms-access-gateway/internal/features/content"
	"github.com/mo-amir99/lms-access-gateway/internal/features/profile"
	"github.com/mo-amir99/lms-access-gateway/internal/features/section"
	"github.com/mo-amir99/lms-access-gateway/internal/features/subject"
	"github.com/mo-amir99/lms-access-gateway/pkg/config"
	"github.com/mo-amir99/lms-access-gateway/pkg/database"
	"github.com/mo-amir99/lms-access-gateway/pkg/database/migrations"
)

// Models lists every table owned by the gateway schema.
func Models() []interface{} {
	return []interface{}{
		&profile.Profile{},
		&subject.Subject{},
		&subject.SubjectAccess{},
		&subject.ActivationCode{},
		&section.Section{},
		&section.SectionAccess{},
		&section.ActivationCode{},
		&content.Video{},
		&content.Quiz{},
		&content.File{},
	}
}

// ApplyDatabaseMigrations runs database migrations when enabled via configuration.
func ApplyDatabaseMigrations(ctx context.Context, db *gorm.DB, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.Database.RunMigrations {
		logger.Info("database migrations skipped", slog.String("env_var", "LMS_DB_RUN_MIGRATIONS=false"))
		return nil
	}

	return Migrate(ctx, db, logger)
}

// Migrate creates the schema and applies the registered constraint migrations.
func Migrate(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	if err := database.AutoMigrate(db.WithContext(ctx), logger, Models()...); err != nil {
		return err
	}

	if err := migrations.Run(db.WithContext(ctx), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("database migrations applied successfully")
	return nil
}
