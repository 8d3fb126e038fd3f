package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResolutionAudit records one pass of the resolution pipeline
type ResolutionAudit struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID *int64    `gorm:"index" json:"patient_id,omitempty"`
	CaseID    *int64    `gorm:"index" json:"case_id,omitempty"`
	StudyID   string    `gorm:"type:varchar(100);index" json:"study_id,omitempty"`
	StudyIUID string    `gorm:"type:varchar(255)" json:"study_iuid,omitempty"`
	Outcome   string    `gorm:"type:varchar(20);not null;index" json:"outcome"` // ready, pending, unavailable
	Source    string    `gorm:"type:varchar(20)" json:"source,omitempty"`       // local, cached, vendor
	URLKind   string    `gorm:"type:varchar(20)" json:"url_kind,omitempty"`
	Reason    string    `gorm:"type:text" json:"reason,omitempty"`
	Duration  int64     `json:"duration_ms"` // milliseconds
	CreatedAt time.Time `gorm:"index" json:"timestamp"`
}

// TableName overrides the table name
func (ResolutionAudit) TableName() string {
	return "resolution_audits"
}

// BeforeCreate hook
func (a *ResolutionAudit) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
