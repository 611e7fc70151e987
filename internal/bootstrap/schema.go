package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/mo-amir99/lms-access-gateway/pkg/database/migrations"
)

// Constraints gorm tags cannot express. Each statement is guarded so reruns are no-ops.
var constraints = []struct {
	name  string
	table string
	ddl   string
}{
	{"chk_subjects_price", "subjects", "CHECK (price_egp >= 0)"},
	{"fk_subject_access_subject", "subject_access", "FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE"},
	{"fk_subject_activation_codes_subject", "subject_activation_codes", "FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE"},
	{"fk_subject_sections_subject", "subject_sections", "FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE"},
	{"chk_subject_sections_price", "subject_sections", "CHECK (price_egp >= 0)"},
	{"fk_section_access_section", "section_access", "FOREIGN KEY (section_id) REFERENCES subject_sections(id) ON DELETE CASCADE"},
	{"fk_activation_codes_section", "activation_codes", "FOREIGN KEY (section_id) REFERENCES subject_sections(id) ON DELETE CASCADE"},
	{"fk_videos_section", "videos", "FOREIGN KEY (section_id) REFERENCES subject_sections(id) ON DELETE CASCADE"},
	{"fk_quizzes_section", "quizzes", "FOREIGN KEY (section_id) REFERENCES subject_sections(id) ON DELETE CASCADE"},
	{"fk_files_section", "files", "FOREIGN KEY (section_id) REFERENCES subject_sections(id) ON DELETE CASCADE"},
}

func init() {
	migrations.Register("section_constraints", addConstraints)
	migrations.Register("activation_codes_unused_index", func(db *gorm.DB) error {
		return db.Exec(`CREATE INDEX IF NOT EXISTS idx_activation_codes_unused
			ON activation_codes (section_id, code) WHERE used_by IS NULL`).Error
	})
	migrations.Register("subject_activation_codes_unused_index", func(db *gorm.DB) error {
		return db.Exec(`CREATE INDEX IF NOT EXISTS idx_subject_activation_codes_unused
			ON subject_activation_codes (subject_id, code) WHERE used_by IS NULL`).Error
	})
}

func addConstraints(db *gorm.DB) error {
	for _, c := range constraints {
		stmt := fmt.Sprintf(`DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
		ALTER TABLE %s ADD CONSTRAINT %s %s;
	END IF;
END $$;`, c.name, c.table, c.name, c.ddl)

		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("add constraint %s: %w", c.name, err)
		}
	}
	return nil
}
