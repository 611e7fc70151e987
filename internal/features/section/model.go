package section

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mo-amir99/lms-access-gateway/pkg/pagination"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

// Section is a purchasable grouping of content under a subject.
type Section struct {
	types.TimestampModel

	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SubjectID int64  `gorm:"not null;index;column:subject_id" json:"subjectId"`
	Title     string `gorm:"type:varchar(200);not null" json:"title"`
	PriceEGP  int    `gorm:"not null;default:0;column:price_egp" json:"priceEgp"`
	Order     int    `gorm:"not null;default:0;column:display_order" json:"order"`
}

// TableName overrides the default table name.
func (Section) TableName() string { return "subject_sections" }

// IsFree reports whether the section is open to every signed-in user.
func (s Section) IsFree() bool { return s.PriceEGP == 0 }

// SectionAccess is an entitlement row. Its existence is the only grant signal
// for paid sections; there is no expiry.
type SectionAccess struct {
	ID          int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uuid.UUID          `gorm:"type:uuid;not null;column:user_id;uniqueIndex:idx_section_access_user_section,priority:1" json:"userId"`
	SectionID   int64              `gorm:"not null;column:section_id;uniqueIndex:idx_section_access_user_section,priority:2;index" json:"sectionId"`
	Source      types.AccessSource `gorm:"type:varchar(30);not null;default:'activation_code'" json:"source"`
	ActivatedAt time.Time          `gorm:"not null;column:activated_at" json:"activatedAt"`
}

// TableName overrides the default table name.
func (SectionAccess) TableName() string { return "section_access" }

// ActivationCode is a single-use code that grants one section.
type ActivationCode struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	SectionID int64      `gorm:"not null;index;column:section_id" json:"sectionId"`
	UsedBy    *uuid.UUID `gorm:"type:uuid;column:used_by" json:"usedBy,omitempty"`
	UsedAt    *time.Time `gorm:"column:used_at" json:"usedAt,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"createdAt"`
}

// TableName overrides the default table name.
func (ActivationCode) TableName() string { return "activation_codes" }

// AccessibleSection is a section the user is entitled to, with the grant time.
type AccessibleSection struct {
	Section
	ActivatedAt time.Time `gorm:"column:activated_at" json:"activatedAt"`
}

// ActivationResult describes the outcome of redeeming a code.
type ActivationResult struct {
	SectionID     int64     `json:"sectionId"`
	ActivatedAt   time.Time `json:"activatedAt"`
	AlreadyActive bool      `json:"alreadyActive"`
}

// Get retrieves a section by ID.
func Get(ctx context.Context, db *gorm.DB, id int64) (Section, error) {
	var s Section
	if err := db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s, ErrSectionNotFound
		}
		return s, err
	}
	return s, nil
}

// PriceOf returns only the price of a section.
func PriceOf(ctx context.Context, db *gorm.DB, id int64) (int, error) {
	var price int
	res := db.WithContext(ctx).Model(&Section{}).Select("price_egp").Where("id = ?", id).Limit(1).Scan(&price)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrSectionNotFound
	}
	return price, nil
}

// HasAccess reports whether an entitlement row exists for (user, section).
func HasAccess(ctx context.Context, db *gorm.DB, userID uuid.UUID, sectionID int64) (bool, error) {
	var exists bool
	err := db.WithContext(ctx).
		Raw("SELECT EXISTS (SELECT 1 FROM section_access WHERE user_id = ? AND section_id = ?)", userID, sectionID).
		Scan(&exists).Error
	return exists, err
}

// Grant inserts an entitlement row; granting twice is a no-op.
func Grant(ctx context.Context, db *gorm.DB, userID uuid.UUID, sectionID int64, source types.AccessSource, at time.Time) error {
	row := SectionAccess{
		UserID:      userID,
		SectionID:   sectionID,
		Source:      source,
		ActivatedAt: at.UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "section_id"}}, DoNothing: true}).
		Create(&row).Error
}

// Revoke deletes an entitlement row.
func Revoke(ctx context.Context, db *gorm.DB, userID uuid.UUID, sectionID int64) error {
	res := db.WithContext(ctx).Where("user_id = ? AND section_id = ?", userID, sectionID).Delete(&SectionAccess{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccessNotFound
	}
	return nil
}

// ListAccessible returns the sections the user is entitled to, newest grant first.
func ListAccessible(ctx context.Context, db *gorm.DB, userID uuid.UUID, params pagination.Params) ([]AccessibleSection, int64, error) {
	base := db.WithContext(ctx).
		Table("section_access AS sa").
		Joins("JOIN subject_sections AS s ON s.id = sa.section_id").
		Where("sa.user_id = ?", userID)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []AccessibleSection
	err := base.
		Select("s.*, sa.activated_at").
		Order("sa.activated_at DESC").
		Offset(params.Skip).
		Limit(params.Limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

// Activate redeems a single-use code for the section and records the
// entitlement in one transaction. A user who already has access keeps the
// code unused.
func Activate(ctx context.Context, db *gorm.DB, userID uuid.UUID, sectionID int64, code string, now time.Time) (ActivationResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return ActivationResult{}, ErrCodeRequired
	}

	result := ActivationResult{SectionID: sectionID}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing SectionAccess
		err := tx.Where("user_id = ? AND section_id = ?", userID, sectionID).Limit(1).Find(&existing).Error
		if err != nil {
			return err
		}
		if existing.ID != 0 {
			result.AlreadyActive = true
			result.ActivatedAt = existing.ActivatedAt
			return nil
		}

		var ac ActivationCode
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ? AND section_id = ? AND used_by IS NULL", code, sectionID).
			First(&ac).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidCode
			}
			return err
		}

		usedAt := now.UTC()
		if err := tx.Model(&ac).Updates(map[string]interface{}{"used_by": userID, "used_at": usedAt}).Error; err != nil {
			return err
		}

		if err := Grant(ctx, tx, userID, sectionID, types.AccessSourceActivationCode, usedAt); err != nil {
			return err
		}

		result.ActivatedAt = usedAt
		return nil
	})

	return result, err
}
