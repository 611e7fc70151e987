package types

import (
	"fmt"
	"strings"
	"time"
)

// UserRole represents the role stored on a user profile.
type UserRole string

const (
	UserRoleStudent UserRole = "student"
	UserRoleAdmin   UserRole = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	return r == UserRoleStudent || r == UserRoleAdmin
}

// ContentType identifies the kind of protected item being accessed.
type ContentType string

const (
	ContentTypeSubject ContentType = "subject"
	ContentTypeSection ContentType = "section"
	ContentTypeVideo   ContentType = "video"
	ContentTypeQuiz    ContentType = "quiz"
	ContentTypeFile    ContentType = "file"
)

// ParseContentType normalises and validates a content type string.
func ParseContentType(value string) (ContentType, error) {
	ct := ContentType(strings.ToLower(strings.TrimSpace(value)))
	switch ct {
	case ContentTypeSubject, ContentTypeSection, ContentTypeVideo, ContentTypeQuiz, ContentTypeFile:
		return ct, nil
	default:
		return "", fmt.Errorf("unsupported content type %q", value)
	}
}

// IsItem reports whether the type is a concrete content item that belongs to a section.
func (ct ContentType) IsItem() bool {
	return ct == ContentTypeVideo || ct == ContentTypeQuiz || ct == ContentTypeFile
}

// IsGroup reports whether the type is a purchasable grouping (subject or section).
func (ct ContentType) IsGroup() bool {
	return ct == ContentTypeSubject || ct == ContentTypeSection
}

// String implements fmt.Stringer.
func (ct ContentType) String() string { return string(ct) }

// AccessSource records how an entitlement row was created.
type AccessSource string

const (
	AccessSourceActivationCode AccessSource = "activation_code"
	AccessSourceAdminGrant     AccessSource = "admin_grant"
)

// TimestampModel contains only timestamp fields (for models with integer IDs).
type TimestampModel struct {
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}
