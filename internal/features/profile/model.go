package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/lms-access-gateway/pkg/pagination"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

// Profile mirrors the auth provider's user with the platform role attached.
// Identity and credentials live with the auth provider; only the role is read here.
type Profile struct {
	types.TimestampModel

	ID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FullName string         `gorm:"type:varchar(120);column:full_name" json:"fullName"`
	Email    string         `gorm:"type:varchar(255);index" json:"email"`
	Role     types.UserRole `gorm:"type:varchar(20);not null;default:'student';index" json:"role"`
}

// TableName overrides the default table name.
func (Profile) TableName() string { return "profiles" }

// IsAdmin reports whether the profile carries the admin role.
func (p Profile) IsAdmin() bool { return p.Role == types.UserRoleAdmin }

// Get retrieves a profile by user ID.
func Get(ctx context.Context, db *gorm.DB, id uuid.UUID) (Profile, error) {
	var p Profile
	if err := db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, ErrProfileNotFound
		}
		return p, err
	}
	return p, nil
}

// RoleOf returns only the role column for a user.
func RoleOf(ctx context.Context, db *gorm.DB, id uuid.UUID) (types.UserRole, error) {
	var role string
	res := db.WithContext(ctx).Model(&Profile{}).Select("role").Where("id = ?", id).Limit(1).Scan(&role)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", ErrProfileNotFound
	}
	return types.UserRole(role), nil
}

// List returns profiles filtered by an optional keyword and role.
func List(ctx context.Context, db *gorm.DB, keyword string, role types.UserRole, params pagination.Params) ([]Profile, int64, error) {
	query := db.WithContext(ctx).Model(&Profile{})

	if keyword = strings.TrimSpace(keyword); keyword != "" {
		like := "%" + strings.ToLower(keyword) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var profiles []Profile
	if err := query.Order("created_at DESC").Offset(params.Skip).Limit(params.Limit).Find(&profiles).Error; err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

// SetRole changes the role of an existing profile.
func SetRole(ctx context.Context, db *gorm.DB, id uuid.UUID, role types.UserRole) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	res := db.WithContext(ctx).Model(&Profile{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// EnsureAdmin creates the profile as admin, or promotes it when it already exists.
func EnsureAdmin(ctx context.Context, db *gorm.DB, id uuid.UUID) (created bool, err error) {
	var existing Profile
	err = db.WithContext(ctx).First(&existing, "id = ?", id).Error
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return false, nil
		}
		return false, SetRole(ctx, db, id, types.UserRoleAdmin)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return true, db.WithContext(ctx).Create(&Profile{ID: id, Role: types.UserRoleAdmin}).Error
	default:
		return false, err
	}
}
