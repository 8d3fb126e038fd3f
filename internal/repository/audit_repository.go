package repository

import (
	"context"
	"fmt"

	"github.com/otcheredev/report-resolver/internal/database"
	"github.com/otcheredev/report-resolver/internal/models"
)

// AuditRepository handles resolution audit database operations
type AuditRepository struct{}

// NewAuditRepository creates a new audit repository
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

// Create creates a new resolution audit entry
func (r *AuditRepository) Create(ctx context.Context, audit *models.ResolutionAudit) error {
	if err := database.DB.WithContext(ctx).Create(audit).Error; err != nil {
		return fmt.Errorf("failed to create resolution audit: %w", err)
	}
	return nil
}

// GetByPatientID retrieves resolution audits for a patient
func (r *AuditRepository) GetByPatientID(ctx context.Context, patientID int64, limit, offset int) ([]models.ResolutionAudit, error) {
	var audits []models.ResolutionAudit
	query := database.DB.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&audits).Error; err != nil {
		return nil, fmt.Errorf("failed to get resolution audits: %w", err)
	}

	return audits, nil
}

// GetByStudyID retrieves resolution audits for a vendor study
func (r *AuditRepository) GetByStudyID(ctx context.Context, studyID string) ([]models.ResolutionAudit, error) {
	var audits []models.ResolutionAudit
	if err := database.DB.WithContext(ctx).
		Where("study_id = ?", studyID).
		Order("created_at DESC").
		Find(&audits).Error; err != nil {
		return nil, fmt.Errorf("failed to get resolution audits: %w", err)
	}
	return audits, nil
}
