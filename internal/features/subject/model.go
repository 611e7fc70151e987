package subject

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

// Subject is the top-level course grouping; sections hang off it.
type Subject struct {
	types.TimestampModel

	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Title    string `gorm:"type:varchar(200);not null" json:"title"`
	PriceEGP int    `gorm:"not null;default:0;column:price_egp" json:"priceEgp"`
}

// TableName overrides the default table name.
func (Subject) TableName() string { return "subjects" }

// SubjectAccess grants a whole subject. It does not imply access to the
// subject's paid sections, which keep their own entitlement rows.
type SubjectAccess struct {
	ID          int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uuid.UUID          `gorm:"type:uuid;not null;column:user_id;uniqueIndex:idx_subject_access_user_subject,priority:1" json:"userId"`
	SubjectID   int64              `gorm:"not null;column:subject_id;uniqueIndex:idx_subject_access_user_subject,priority:2;index" json:"subjectId"`
	Source      types.AccessSource `gorm:"type:varchar(30);not null;default:'activation_code'" json:"source"`
	ActivatedAt time.Time          `gorm:"not null;column:activated_at" json:"activatedAt"`
}

// TableName overrides the default table name.
func (SubjectAccess) TableName() string { return "subject_access" }

// ActivationCode is a single-use code that grants one subject.
type ActivationCode struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	SubjectID int64      `gorm:"not null;index;column:subject_id" json:"subjectId"`
	UsedBy    *uuid.UUID `gorm:"type:uuid;column:used_by" json:"usedBy,omitempty"`
	UsedAt    *time.Time `gorm:"column:used_at" json:"usedAt,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"createdAt"`
}

// TableName overrides the default table name.
func (ActivationCode) TableName() string { return "subject_activation_codes" }

// ActivationResult describes the outcome of redeeming a code.
type ActivationResult struct {
	SubjectID     int64     `json:"subjectId"`
	ActivatedAt   time.Time `json:"activatedAt"`
	AlreadyActive bool      `json:"alreadyActive"`
}

// PriceOf returns only the price of a subject.
func PriceOf(ctx context.Context, db *gorm.DB, id int64) (int, error) {
	var price int
	res := db.WithContext(ctx).Model(&Subject{}).Select("price_egp").Where("id = ?", id).Limit(1).Scan(&price)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrSubjectNotFound
	}
	return price, nil
}

// HasAccess reports whether a subject_access row exists for (user, subject).
func HasAccess(ctx context.Context, db *gorm.DB, userID uuid.UUID, subjectID int64) (bool, error) {
	var exists bool
	err := db.WithContext(ctx).
		Raw("SELECT EXISTS (SELECT 1 FROM subject_access WHERE user_id = ? AND subject_id = ?)", userID, subjectID).
		Scan(&exists).Error
	return exists, err
}

// Activate redeems a single-use subject code inside one transaction. A user
// who already holds the subject keeps the code unused.
func Activate(ctx context.Context, db *gorm.DB, userID uuid.UUID, subjectID int64, code string, now time.Time) (ActivationResult, error) {
	result := ActivationResult{SubjectID: subjectID}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing SubjectAccess
		if err := tx.Where("user_id = ? AND subject_id = ?", userID, subjectID).Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if existing.ID != 0 {
			result.AlreadyActive = true
			result.ActivatedAt = existing.ActivatedAt
			return nil
		}

		var ac ActivationCode
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ? AND subject_id = ? AND used_by IS NULL", code, subjectID).
			First(&ac).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCode
		}
		if err != nil {
			return err
		}

		usedAt := now.UTC()
		if err := tx.Model(&ac).Updates(map[string]interface{}{"used_by": userID, "used_at": usedAt}).Error; err != nil {
			return err
		}

		row := SubjectAccess{UserID: userID, SubjectID: subjectID, Source: types.AccessSourceActivationCode, ActivatedAt: usedAt}
		err = tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "subject_id"}}, DoNothing: true}).
			Create(&row).Error
		if err != nil {
			return err
		}

		result.ActivatedAt = usedAt
		return nil
	})

	return result, err
}
