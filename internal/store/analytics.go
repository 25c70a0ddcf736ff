package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Brownbull/gabeda-backend/internal/entity"
)

// AnalyticsStore owns the analytics_results table.
type AnalyticsStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewAnalyticsStore(db *gorm.DB, log *zap.Logger) *AnalyticsStore {
	return &AnalyticsStore{db: db, log: log}
}

// ReplaceForUpload swaps the derived insights of an upload atomically: a
// re-run replaces the previous derivation instead of stacking onto it.
func (s *AnalyticsStore) ReplaceForUpload(ctx context.Context, companyID, uploadID uuid.UUID, results []entity.AnalyticsResult) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("company_id = ? AND upload_id = ?", companyID, uploadID).
			Delete(&entity.AnalyticsResult{}).Error
		if err != nil {
			return fmt.Errorf("clearing previous insights: %w", err)
		}
		if len(results) == 0 {
			return nil
		}
		return tx.Create(&results).Error
	})
}

// ListVisible returns the insights a member may see: rows with no role
// restriction plus rows whose visible_to_roles contains the member's role.
func (s *AnalyticsStore) ListVisible(ctx context.Context, companyID uuid.UUID, role string) ([]entity.AnalyticsResult, error) {
	var results []entity.AnalyticsResult
	err := s.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Where("visible_to_roles IS NULL OR visible_to_roles @> ?", fmt.Sprintf(`["%s"]`, role)).
		Order("created_at DESC").
		Find(&results).Error
	return results, err
}

func (s *AnalyticsStore) ListByUpload(ctx context.Context, companyID, uploadID uuid.UUID, role string) ([]entity.AnalyticsResult, error) {
	var results []entity.AnalyticsResult
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND upload_id = ?", companyID, uploadID).
		Where("visible_to_roles IS NULL OR visible_to_roles @> ?", fmt.Sprintf(`["%s"]`, role)).
		Order("result_type ASC, created_at DESC").
		Find(&results).Error
	return results, err
}
