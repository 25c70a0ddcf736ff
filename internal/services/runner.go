package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Brownbull/gabeda-backend/internal/entity"
	"github.com/Brownbull/gabeda-backend/internal/pipeline"
	"github.com/Brownbull/gabeda-backend/internal/store"
)

const (
	claimPollInterval = 2 * time.Second
	heartbeatInterval = 15 * time.Second
	staleRunningAfter = 2 * time.Minute
	maxJobAttempts    = 3
)

// JobRunner claims queued jobs and walks their model catalog. Multiple
// runners can share a database; the claim query hands each job to exactly
// one of them.
type JobRunner struct {
	db        *gorm.DB
	log       *zap.Logger
	jobs      *store.JobStore
	results   *store.ResultStore
	txs       *store.TransactionStore
	uploads   *store.UploadStore
	analytics *store.AnalyticsStore
	indexer   *SearchIndexer
}

func NewJobRunner(db *gorm.DB, log *zap.Logger, jobs *store.JobStore, results *store.ResultStore, txs *store.TransactionStore, uploads *store.UploadStore, analytics *store.AnalyticsStore, indexer *SearchIndexer) *JobRunner {
	return &JobRunner{
		db:        db,
		log:       log,
		jobs:      jobs,
		results:   results,
		txs:       txs,
		uploads:   uploads,
		analytics: analytics,
		indexer:   indexer,
	}
}

// Run polls for claimable jobs until the context is cancelled.
func (r *JobRunner) Run(ctx context.Context) {
	r.log.Info("job runner started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info("job runner stopping")
			return
		default:
		}

		job, err := r.jobs.ClaimNext(ctx, maxJobAttempts, staleRunningAfter)
		if err != nil {
			r.log.Error("failed to claim job", zap.Error(err))
			sleep(ctx, claimPollInterval)
			continue
		}
		if job == nil {
			sleep(ctx, claimPollInterval)
			continue
		}

		r.Execute(ctx, job)
	}
}

// Execute runs one claimed job end to end.
func (r *JobRunner) Execute(ctx context.Context, job *entity.ProcessingJob) {
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go r.heartbeat(hbCtx, job)

	if err := r.execute(ctx, job); err != nil {
		r.log.Error("job execution failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(err))
		if mErr := r.jobs.MarkFailed(ctx, job.ID, err.Error()); mErr != nil {
			r.log.Error("failed to mark job failed", zap.Error(mErr))
		}
		r.failUploadIfIngesting(ctx, job, err.Error())
	}
}

// failUploadIfIngesting propagates a job failure to the owning upload only
// while the upload is still being ingested. A failed re-run over an
// already-completed upload says nothing about the ingested data.
func (r *JobRunner) failUploadIfIngesting(ctx context.Context, job *entity.ProcessingJob, message string) {
	upload, err := r.uploads.GetByID(ctx, job.CompanyID, job.UploadID)
	if err != nil {
		r.log.Error("failed to load upload", zap.Error(err))
		return
	}
	if upload.Status == entity.UploadStatusCompleted {
		return
	}
	if err := r.uploads.SetFailed(ctx, job.UploadID, message); err != nil {
		r.log.Error("failed to mark upload failed", zap.Error(err))
	}
}

func (r *JobRunner) execute(ctx context.Context, job *entity.ProcessingJob) error {
	var requested []string
	if len(job.ModelsToExecute) > 0 {
		if err := json.Unmarshal(job.ModelsToExecute, &requested); err != nil {
			return fmt.Errorf("decoding requested models: %w", err)
		}
	}
	order, err := pipeline.ResolveOrder(requested)
	if err != nil {
		return err
	}

	txs, err := r.txs.LoadByUpload(ctx, job.CompanyID, job.UploadID)
	if err != nil {
		return fmt.Errorf("loading transactions: %w", err)
	}
	if len(txs) == 0 {
		return fmt.Errorf("upload has no transactions")
	}

	executor := pipeline.NewExecutor(r.results, r.jobs, r.log)
	outcome, err := executor.ExecuteAll(ctx, job.ID, order, txs)
	if err != nil {
		return err
	}
	// Cancellation is terminal for the job only; the ingested upload
	// stays valid for later re-runs.
	if outcome.Cancelled {
		r.log.Info("job cancelled mid-walk", zap.String("job_id", job.ID.String()))
		return nil
	}

	if err := r.deriveInsights(ctx, job, txs, outcome.Frames); err != nil {
		return err
	}

	if err := r.jobs.MarkCompleted(ctx, job.ID, outcome.Failed); err != nil {
		return fmt.Errorf("marking job completed: %w", err)
	}
	if err := r.uploads.SetStatus(ctx, job.UploadID, entity.UploadStatusCompleted); err != nil {
		return fmt.Errorf("marking upload completed: %w", err)
	}

	r.log.Info("job completed",
		zap.String("job_id", job.ID.String()),
		zap.Int("models_completed", len(outcome.Completed)),
		zap.Int("models_failed", len(outcome.Failed)),
		zap.Int("models_skipped", len(outcome.Skipped)))
	return nil
}

func (r *JobRunner) deriveInsights(ctx context.Context, job *entity.ProcessingJob, txs []entity.Transaction, frames map[string]*pipeline.Frame) error {
	var company entity.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", job.CompanyID).Error; err != nil {
		return fmt.Errorf("loading company: %w", err)
	}

	params := pipeline.InsightParams{
		TopProductsThreshold: company.TopProductsThreshold,
		DeadStockDays:        company.DeadStockDays,
		Currency:             company.Currency,
	}
	insights, err := pipeline.DeriveInsights(job.CompanyID, job.UploadID, txs, frames, params)
	if err != nil {
		return fmt.Errorf("deriving insights: %w", err)
	}
	if err := r.analytics.ReplaceForUpload(ctx, job.CompanyID, job.UploadID, insights); err != nil {
		return fmt.Errorf("saving insights: %w", err)
	}
	r.indexer.IndexInsights(insights)
	return nil
}

func (r *JobRunner) heartbeat(ctx context.Context, job *entity.ProcessingJob) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.jobs.Heartbeat(ctx, job.ID); err != nil {
				r.log.Warn("heartbeat failed",
					zap.String("job_id", job.ID.String()),
					zap.Error(err))
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
