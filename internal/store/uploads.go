package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Brownbull/gabeda-backend/internal/entity"
)

// UploadStore owns the data_uploads table.
type UploadStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewUploadStore(db *gorm.DB, log *zap.Logger) *UploadStore {
	return &UploadStore{db: db, log: log}
}

func (s *UploadStore) Create(ctx context.Context, upload *entity.DataUpload) error {
	return s.db.WithContext(ctx).Create(upload).Error
}

func (s *UploadStore) GetByID(ctx context.Context, companyID, uploadID uuid.UUID) (*entity.DataUpload, error) {
	var upload entity.DataUpload
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", uploadID, companyID).
		First(&upload).Error
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

func (s *UploadStore) ListByCompany(ctx context.Context, companyID uuid.UUID, limit int) ([]entity.DataUpload, error) {
	if limit <= 0 {
		limit = 50
	}
	var uploads []entity.DataUpload
	err := s.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Limit(limit).
		Find(&uploads).Error
	return uploads, err
}

func (s *UploadStore) SetStatus(ctx context.Context, uploadID uuid.UUID, status string) error {
	updates := map[string]interface{}{"status": status, "updated_at": time.Now()}
	switch status {
	case entity.UploadStatusValidating:
		updates["processing_started_at"] = time.Now()
	case entity.UploadStatusCompleted, entity.UploadStatusFailed:
		updates["processing_completed_at"] = time.Now()
	}
	return s.db.WithContext(ctx).
		Model(&entity.DataUpload{}).
		Where("id = ?", uploadID).
		Updates(updates).Error
}

func (s *UploadStore) SetFailed(ctx context.Context, uploadID uuid.UUID, message string) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&entity.DataUpload{}).
		Where("id = ?", uploadID).
		Updates(map[string]interface{}{
			"status":                  entity.UploadStatusFailed,
			"error_message":           message,
			"processing_completed_at": now,
			"updated_at":              now,
		}).Error
}

// SetAnalysisWindow records the ingested row count and the date range the
// analysis covers.
func (s *UploadStore) SetAnalysisWindow(ctx context.Context, uploadID uuid.UUID, rowCount int, start, end *time.Time) error {
	return s.db.WithContext(ctx).
		Model(&entity.DataUpload{}).
		Where("id = ?", uploadID).
		Updates(map[string]interface{}{
			"row_count":           rowCount,
			"analysis_start_date": start,
			"analysis_end_date":   end,
			"updated_at":          time.Now(),
		}).Error
}
