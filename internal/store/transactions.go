package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Brownbull/gabeda-backend/internal/entity"
)

const insertBatchSize = 1000

// TransactionStore owns the transactions table.
type TransactionStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTransactionStore(db *gorm.DB, log *zap.Logger) *TransactionStore {
	return &TransactionStore{db: db, log: log}
}

// InsertBatch writes normalized transactions in batches. Conflicts on the
// (company, upload, transaction_id) identity are ignored, so retrying a
// partially ingested upload never duplicates rows.
func (s *TransactionStore) InsertBatch(ctx context.Context, txs []entity.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	start := time.Now()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "upload_id"}, {Name: "transaction_id"}},
			DoNothing: true,
		}).
		CreateInBatches(txs, insertBatchSize).Error
	if err != nil {
		return fmt.Errorf("inserting transactions: %w", err)
	}
	s.log.Info("inserted transactions",
		zap.Int("count", len(txs)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *TransactionStore) LoadByUpload(ctx context.Context, companyID, uploadID uuid.UUID) ([]entity.Transaction, error) {
	var txs []entity.Transaction
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND upload_id = ?", companyID, uploadID).
		Order("date ASC, transaction_id ASC").
		Find(&txs).Error
	return txs, err
}

func (s *TransactionStore) CountByUpload(ctx context.Context, companyID, uploadID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&entity.Transaction{}).
		Where("company_id = ? AND upload_id = ?", companyID, uploadID).
		Count(&count).Error
	return count, err
}

// DateRange returns the min and max transaction dates of an upload.
func (s *TransactionStore) DateRange(ctx context.Context, companyID, uploadID uuid.UUID) (*time.Time, *time.Time, error) {
	var bounds struct {
		MinDate *time.Time
		MaxDate *time.Time
	}
	err := s.db.WithContext(ctx).
		Model(&entity.Transaction{}).
		Select("MIN(date) AS min_date, MAX(date) AS max_date").
		Where("company_id = ? AND upload_id = ?", companyID, uploadID).
		Scan(&bounds).Error
	if err != nil {
		return nil, nil, err
	}
	return bounds.MinDate, bounds.MaxDate, nil
}
