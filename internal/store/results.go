package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Brownbull/gabeda-backend/internal/entity"
)

// ResultStore owns the model_results table.
type ResultStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewResultStore(db *gorm.DB, log *zap.Logger) *ResultStore {
	return &ResultStore{db: db, log: log}
}

// SaveResult upserts on (job, model, kind), so re-running a model within
// the same job overwrites its artifact instead of duplicating it. The
// company id is stamped from the owning job.
func (s *ResultStore) SaveResult(ctx context.Context, result *entity.ModelResult) error {
	if result.CompanyID == uuid.Nil {
		var companyID uuid.UUID
		err := s.db.WithContext(ctx).
			Model(&entity.ProcessingJob{}).
			Where("id = ?", result.JobID).
			Pluck("company_id", &companyID).Error
		if err != nil {
			return fmt.Errorf("resolving job company: %w", err)
		}
		result.CompanyID = companyID
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_id"}, {Name: "model_name"}, {Name: "result_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"row_count", "column_count", "columns",
			"data_preview", "data_path", "execution_time_ms", "updated_at",
		}),
	}).Create(result).Error
}

func (s *ResultStore) ListByJob(ctx context.Context, companyID, jobID uuid.UUID) ([]entity.ModelResult, error) {
	var results []entity.ModelResult
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND job_id = ?", companyID, jobID).
		Order("model_name ASC, result_type ASC").
		Find(&results).Error
	return results, err
}

// ListByJobModels returns the artifacts of a subset of models only.
func (s *ResultStore) ListByJobModels(ctx context.Context, companyID, jobID uuid.UUID, models []string) ([]entity.ModelResult, error) {
	if len(models) == 0 {
		return s.ListByJob(ctx, companyID, jobID)
	}
	var results []entity.ModelResult
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND job_id = ? AND model_name IN ?", companyID, jobID, models).
		Order("model_name ASC, result_type ASC").
		Find(&results).Error
	return results, err
}

// ResultSummary is the counts-only view of one artifact, cheap enough for
// polling clients.
type ResultSummary struct {
	ModelName       string `json:"model_name"`
	ResultType      string `json:"result_type"`
	RowCount        int    `json:"row_count"`
	ColumnCount     int    `json:"column_count"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
}

func (s *ResultStore) SummarizeByJob(ctx context.Context, companyID, jobID uuid.UUID) ([]ResultSummary, error) {
	var summaries []ResultSummary
	err := s.db.WithContext(ctx).
		Model(&entity.ModelResult{}).
		Select("model_name", "result_type", "row_count", "column_count", "execution_time_ms").
		Where("company_id = ? AND job_id = ?", companyID, jobID).
		Order("model_name ASC, result_type ASC").
		Find(&summaries).Error
	return summaries, err
}
