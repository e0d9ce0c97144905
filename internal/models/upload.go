package models

import (
	"time"

	"gorm.io/datatypes"
)

// UploadRecord is one stored object in the upload ledger. ApplicationID stays
// nil until the owning wizard submits; rows that never get one are orphans.
type UploadRecord struct {
	ID         string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	WizardID   string `gorm:"column:wizard_id;type:uuid;index" json:"wizard_id"`
	University string `gorm:"column:university;type:text;index" json:"university"`
	Field      string `gorm:"column:field;type:text" json:"field"`

	ObjectName string `gorm:"column:object_name;type:text" json:"object_name"`
	URL        string `gorm:"column:url;type:text" json:"url"`
	FileName   string `gorm:"column:file_name;type:text" json:"file_name"`
	FileSize   int64  `gorm:"column:file_size;type:bigint" json:"file_size"`
	MimeType   string `gorm:"column:mime_type;type:text" json:"mime_type"`

	ApplicationID *string        `gorm:"column:application_id;type:text;index" json:"application_id,omitempty"`
	Metadata      datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`

	UploadedAt time.Time  `gorm:"column:uploaded_at;type:timestamptz;index" json:"uploaded_at"`
	AttachedAt *time.Time `gorm:"column:attached_at;type:timestamptz" json:"attached_at,omitempty"`
}

func (UploadRecord) TableName() string { return "application_uploads" }
