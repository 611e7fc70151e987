package access

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/lms-access-gateway/internal/features/content"
	"github.com/mo-amir99/lms-access-gateway/internal/features/profile"
	"github.com/mo-amir99/lms-access-gateway/internal/features/section"
	"github.com/mo-amir99/lms-access-gateway/internal/features/subject"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

// Store is the read-only view of the entitlement store used by the Checker.
// Implementations return ErrNotFound for missing rows.
type Store interface {
	SectionOf(ctx context.Context, ct types.ContentType, contentID int64) (int64, error)
	HasEntitlement(ctx context.Context, userID uuid.UUID, sectionID int64) (bool, error)
	SectionPrice(ctx context.Context, sectionID int64) (int, error)
	HasSubjectEntitlement(ctx context.Context, userID uuid.UUID, subjectID int64) (bool, error)
	SubjectPrice(ctx context.Context, subjectID int64) (int, error)
	RoleOf(ctx context.Context, userID uuid.UUID) (types.UserRole, error)
}

// GormStore reads entitlements from Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// SectionOf resolves the owning section of a video, quiz or file.
func (s *GormStore) SectionOf(ctx context.Context, ct types.ContentType, contentID int64) (int64, error) {
	id, err := content.SectionOf(ctx, s.db, ct, contentID)
	if errors.Is(err, content.ErrContentNotFound) {
		return 0, ErrNotFound
	}
	return id, err
}

// HasEntitlement reports whether a section_access row exists.
func (s *GormStore) HasEntitlement(ctx context.Context, userID uuid.UUID, sectionID int64) (bool, error) {
	return section.HasAccess(ctx, s.db, userID, sectionID)
}

// SectionPrice returns the section price in EGP.
func (s *GormStore) SectionPrice(ctx context.Context, sectionID int64) (int, error) {
	price, err := section.PriceOf(ctx, s.db, sectionID)
	if errors.Is(err, section.ErrSectionNotFound) {
		return 0, ErrNotFound
	}
	return price, err
}

// HasSubjectEntitlement reports whether a subject_access row exists.
func (s *GormStore) HasSubjectEntitlement(ctx context.Context, userID uuid.UUID, subjectID int64) (bool, error) {
	return subject.HasAccess(ctx, s.db, userID, subjectID)
}

// SubjectPrice returns the subject price in EGP.
func (s *GormStore) SubjectPrice(ctx context.Context, subjectID int64) (int, error) {
	price, err := subject.PriceOf(ctx, s.db, subjectID)
	if errors.Is(err, subject.ErrSubjectNotFound) {
		return 0, ErrNotFound
	}
	return price, err
}

// RoleOf returns the profile role. A missing profile surfaces as
// profile.ErrProfileNotFound so the auth middleware can default it.
func (s *GormStore) RoleOf(ctx context.Context, userID uuid.UUID) (types.UserRole, error) {
	return profile.RoleOf(ctx, s.db, userID)
}
