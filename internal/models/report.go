package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Report is an abuse report filed through POST /report.
// It is write-only from the server's point of view.
type Report struct {
	ID         string `gorm:"primaryKey" json:"id"`
	ReporterID string `gorm:"type:text" json:"reporterId"`
	ReportedID string `gorm:"type:text;not null;index" json:"reportedId"`
	RoomID     string `gorm:"type:text" json:"roomId"`
	Reason     string `gorm:"type:text" json:"reason"`
	// Category and Severity are derived from Reason when the report is filed.
	Category string `gorm:"type:text;index" json:"category"`
	Severity int    `json:"severity"`
	// Evidence holds the last few messages of RoomID at filing time,
	// formatted as "<sender>: <text>".
	Evidence  StringList `json:"evidence"`
	CreatedAt time.Time  `json:"createdAt"`
}

// BeforeCreate is a GORM hook that assigns a UUID when ID is empty.
func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// StringList is stored as a native text[] on PostgreSQL and as the same
// array literal in a text column elsewhere.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	return pq.StringArray(l).Value()
}

func (l *StringList) Scan(src any) error {
	return (*pq.StringArray)(l).Scan(src)
}

// GormDBDataType picks the column type per dialect.
func (StringList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}
