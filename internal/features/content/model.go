package content

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

// Video is a lecture belonging to a section.
type Video struct {
	types.TimestampModel

	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SectionID int64  `gorm:"not null;index;column:section_id" json:"sectionId"`
	Title     string `gorm:"type:varchar(200);not null" json:"title"`
	URL       string `gorm:"type:text;column:video_url" json:"-"`
}

// TableName overrides the default table name.
func (Video) TableName() string { return "videos" }

// Quiz belongs to a section.
type Quiz struct {
	types.TimestampModel

	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SectionID int64  `gorm:"not null;index;column:section_id" json:"sectionId"`
	Title     string `gorm:"type:varchar(200);not null" json:"title"`
}

// TableName overrides the default table name.
func (Quiz) TableName() string { return "quizzes" }

// File is a downloadable attachment belonging to a section.
type File struct {
	types.TimestampModel

	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SectionID int64  `gorm:"not null;index;column:section_id" json:"sectionId"`
	Title     string `gorm:"type:varchar(200);not null" json:"title"`
	URL       string `gorm:"type:text;column:file_url" json:"-"`
}

// TableName overrides the default table name.
func (File) TableName() string { return "files" }

// TableFor maps a content item type to its table.
func TableFor(ct types.ContentType) (string, error) {
	switch ct {
	case types.ContentTypeVideo:
		return Video{}.TableName(), nil
	case types.ContentTypeQuiz:
		return Quiz{}.TableName(), nil
	case types.ContentTypeFile:
		return File{}.TableName(), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ct)
	}
}

// SectionOf reads the section_id of a content item.
func SectionOf(ctx context.Context, db *gorm.DB, ct types.ContentType, id int64) (int64, error) {
	table, err := TableFor(ct)
	if err != nil {
		return 0, err
	}

	var sectionID int64
	res := db.WithContext(ctx).Table(table).Select("section_id").Where("id = ?", id).Limit(1).Scan(&sectionID)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrContentNotFound
	}
	return sectionID, nil
}
