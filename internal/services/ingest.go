package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Brownbull/gabeda-backend/internal/entity"
	"github.com/Brownbull/gabeda-backend/internal/pipeline"
	"github.com/Brownbull/gabeda-backend/internal/store"
)

// IngestService drives an upload from pending through validation and
// normalization to a queued processing job.
type IngestService struct {
	db      *gorm.DB
	log     *zap.Logger
	uploads *store.UploadStore
	txs     *store.TransactionStore
	jobs    *store.JobStore
	objects ObjectStore
	indexer *SearchIndexer
}

func NewIngestService(db *gorm.DB, log *zap.Logger, uploads *store.UploadStore, txs *store.TransactionStore, jobs *store.JobStore, objects ObjectStore, indexer *SearchIndexer) *IngestService {
	return &IngestService{
		db:      db,
		log:     log,
		uploads: uploads,
		txs:     txs,
		jobs:    jobs,
		objects: objects,
		indexer: indexer,
	}
}

// CompanySchema resolves the column mapping configured for a company. An
// empty configuration resolves to the default export layout.
func (s *IngestService) CompanySchema(ctx context.Context, companyID uuid.UUID) (pipeline.ColumnSchema, error) {
	var company entity.Company
	if err := s.db.WithContext(ctx).First(&company, "id = ?", companyID).Error; err != nil {
		return nil, fmt.Errorf("loading company: %w", err)
	}

	var raw pipeline.ColumnSchema
	if len(company.ColumnConfig) > 0 {
		if err := json.Unmarshal(company.ColumnConfig, &raw); err != nil {
			return nil, fmt.Errorf("decoding column config: %w", err)
		}
	}
	return pipeline.ResolveSchema(raw)
}

// Process validates and normalizes an upload, stores its transactions and
// queues a processing job. Any failure marks the upload failed with the
// reason and is returned to the caller.
func (s *IngestService) Process(ctx context.Context, upload *entity.DataUpload, models []string) (*entity.ProcessingJob, error) {
	if err := s.uploads.SetStatus(ctx, upload.ID, entity.UploadStatusValidating); err != nil {
		return nil, fmt.Errorf("marking upload validating: %w", err)
	}

	job, err := s.process(ctx, upload, models)
	if err != nil {
		s.log.Error("upload ingest failed",
			zap.String("upload_id", upload.ID.String()),
			zap.Error(err))
		if failErr := s.uploads.SetFailed(ctx, upload.ID, err.Error()); failErr != nil {
			s.log.Error("failed to mark upload failed", zap.Error(failErr))
		}
		return nil, err
	}

	s.indexer.IndexUpload(upload)
	return job, nil
}

func (s *IngestService) process(ctx context.Context, upload *entity.DataUpload, models []string) (*entity.ProcessingJob, error) {
	schema, err := s.CompanySchema(ctx, upload.CompanyID)
	if err != nil {
		return nil, err
	}

	f, err := s.objects.Open(ctx, upload.FilePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := pipeline.ReadCSV(f)
	if err != nil {
		return nil, err
	}

	txs, err := pipeline.Normalize(table, schema, upload.CompanyID, upload.ID)
	if err != nil {
		return nil, err
	}

	if err := s.txs.InsertBatch(ctx, txs); err != nil {
		return nil, err
	}

	minDate, maxDate, err := s.txs.DateRange(ctx, upload.CompanyID, upload.ID)
	if err != nil {
		return nil, err
	}
	if err := s.uploads.SetAnalysisWindow(ctx, upload.ID, len(txs), minDate, maxDate); err != nil {
		return nil, err
	}

	if err := s.uploads.SetStatus(ctx, upload.ID, entity.UploadStatusProcessing); err != nil {
		return nil, err
	}

	// Validate requested model names before queueing, so a bad request
	// surfaces immediately instead of failing inside the worker.
	if _, err := pipeline.ResolveOrder(models); err != nil {
		return nil, err
	}

	job, err := s.jobs.Create(ctx, upload.CompanyID, upload.ID, models)
	if err != nil {
		return nil, err
	}

	s.log.Info("upload ingested",
		zap.String("upload_id", upload.ID.String()),
		zap.String("job_id", job.ID.String()),
		zap.Int("rows", len(txs)))
	return job, nil
}
