package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/lms-access-gateway/internal/features/profile"
)

// EnsureBootstrapAdmin grants the admin role to the configured user ID. An
// empty ID disables the step.
func EnsureBootstrapAdmin(ctx context.Context, db *gorm.DB, rawID string, logger *slog.Logger) error {
	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return nil
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("LMS_BOOTSTRAP_ADMIN_ID: %w", err)
	}

	created, err := profile.EnsureAdmin(ctx, db, id)
	if err != nil {
		return fmt.Errorf("ensure bootstrap admin: %w", err)
	}

	if created {
		logger.Info("bootstrap admin profile created", slog.String("user_id", id.String()))
	} else {
		logger.Info("bootstrap admin verified", slog.String("user_id", id.String()))
	}
	return nil
}
