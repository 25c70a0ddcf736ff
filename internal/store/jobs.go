package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Brownbull/gabeda-backend/internal/entity"
)

// ProgressPublisher fans job progress out to listeners. Implementations
// must tolerate being nil-wrapped; publish failures never fail the job.
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, companyID, jobID uuid.UUID, status string, progress int, currentModel string)
}

// JobStore owns the processing_jobs table. It doubles as the pipeline
// Tracker so the executor writes progress straight through it.
type JobStore struct {
	db     *gorm.DB
	log    *zap.Logger
	events ProgressPublisher
}

func NewJobStore(db *gorm.DB, log *zap.Logger, events ProgressPublisher) *JobStore {
	return &JobStore{db: db, log: log, events: events}
}

// Create enqueues a job for an upload. The requested model list is stored
// as JSON; empty means the full catalog.
func (s *JobStore) Create(ctx context.Context, companyID, uploadID uuid.UUID, models []string) (*entity.ProcessingJob, error) {
	modelsJSON, err := json.Marshal(models)
	if err != nil {
		return nil, fmt.Errorf("encoding model list: %w", err)
	}
	job := &entity.ProcessingJob{
		CompanyID:       companyID,
		UploadID:        uploadID,
		ModelsToExecute: datatypes.JSON(modelsJSON),
		ModelsCompleted: datatypes.JSON("[]"),
		Status:          entity.JobStatusQueued,
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	return job, nil
}

func (s *JobStore) GetByID(ctx context.Context, companyID, jobID uuid.UUID) (*entity.ProcessingJob, error) {
	var job entity.ProcessingJob
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", jobID, companyID).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *JobStore) ListByUpload(ctx context.Context, companyID, uploadID uuid.UUID) ([]entity.ProcessingJob, error) {
	var jobs []entity.ProcessingJob
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND upload_id = ?", companyID, uploadID).
		Order("created_at DESC").
		Find(&jobs).Error
	return jobs, err
}

// ClaimNext picks the oldest runnable job and flips it to running in one
// transaction. Runnable means queued, or running with a heartbeat older
// than staleRunning and attempts still under maxAttempts. Returns nil when
// nothing is claimable.
func (s *JobStore) ClaimNext(ctx context.Context, maxAttempts int, staleRunning time.Duration) (*entity.ProcessingJob, error) {
	now := time.Now()
	staleCutoff := now.Add(-staleRunning)

	var claimed *entity.ProcessingJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job entity.ProcessingJob
		qErr := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
				status = ?
				OR (
					status = ?
					AND attempts < ?
					AND heartbeat_at IS NOT NULL
					AND heartbeat_at < ?
				)
			`, entity.JobStatusQueued, entity.JobStatusRunning, maxAttempts, staleCutoff).
			Order("created_at ASC").
			First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := tx.Model(&entity.ProcessingJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       entity.JobStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claiming job: %w", err)
	}
	if claimed != nil {
		s.log.Info("claimed job",
			zap.String("job_id", claimed.ID.String()),
			zap.String("company_id", claimed.CompanyID.String()),
			zap.Int("attempts", claimed.Attempts+1))
	}
	return claimed, nil
}

func (s *JobStore) Heartbeat(ctx context.Context, jobID uuid.UUID) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&entity.ProcessingJob{}).
		Where("id = ? AND status = ?", jobID, entity.JobStatusRunning).
		Updates(map[string]interface{}{"heartbeat_at": now, "updated_at": now}).Error
}

// Cancel marks a queued or running job cancelled. Returns false when the
// job already reached a terminal status.
func (s *JobStore) Cancel(ctx context.Context, companyID, jobID uuid.UUID) (bool, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&entity.ProcessingJob{}).
		Where("id = ? AND company_id = ?", jobID, companyID).
		Where("status IN ?", []string{entity.JobStatusQueued, entity.JobStatusRunning}).
		Updates(map[string]interface{}{
			"status":        entity.JobStatusCancelled,
			"current_model": "",
			"completed_at":  now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		s.publish(ctx, companyID, jobID, entity.JobStatusCancelled, 0, "")
	}
	return res.RowsAffected > 0, nil
}

// MarkRunning implements pipeline.Tracker. It resets the bookkeeping of any
// prior attempt, and only moves queued or running jobs: a cancellation that
// lands between claim and start stays terminal.
func (s *JobStore) MarkRunning(ctx context.Context, jobID uuid.UUID) error {
	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&entity.ProcessingJob{}).
		Where("id = ?", jobID).
		Where("status IN ?", []string{entity.JobStatusQueued, entity.JobStatusRunning}).
		Updates(map[string]interface{}{
			"status":           entity.JobStatusRunning,
			"started_at":       now,
			"progress":         0,
			"current_model":    "",
			"models_completed": datatypes.JSON("[]"),
			"error_message":    "",
			"error_detail":     "",
			"updated_at":       now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}
	if job, gErr := s.get(ctx, jobID); gErr == nil {
		s.publish(ctx, job.CompanyID, jobID, entity.JobStatusRunning, 0, "")
	}
	return nil
}

func (s *JobStore) SetCurrentModel(ctx context.Context, jobID uuid.UUID, model string) error {
	err := s.db.WithContext(ctx).
		Model(&entity.ProcessingJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{"current_model": model, "updated_at": time.Now()}).Error
	if err != nil {
		return err
	}
	if job, gErr := s.get(ctx, jobID); gErr == nil {
		s.publish(ctx, job.CompanyID, jobID, entity.JobStatusRunning, job.Progress, model)
	}
	return nil
}

func (s *JobStore) AddCompletedModel(ctx context.Context, jobID uuid.UUID, model string, completed, total int) error {
	job, err := s.get(ctx, jobID)
	if err != nil {
		return err
	}

	var done []string
	if len(job.ModelsCompleted) > 0 {
		if err := json.Unmarshal(job.ModelsCompleted, &done); err != nil {
			return fmt.Errorf("decoding completed models: %w", err)
		}
	}
	done = append(done, model)
	doneJSON, err := json.Marshal(done)
	if err != nil {
		return fmt.Errorf("encoding completed models: %w", err)
	}

	progress := 0
	if total > 0 {
		progress = 100 * completed / total
	}
	err = s.db.WithContext(ctx).
		Model(&entity.ProcessingJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"models_completed": doneJSON,
			"progress":         progress,
			"updated_at":       time.Now(),
		}).Error
	if err != nil {
		return err
	}
	s.publish(ctx, job.CompanyID, jobID, entity.JobStatusRunning, progress, model)
	return nil
}

// MarkCompleted finishes the job. Per-model failures do not fail the walk;
// they are recorded in error_detail sorted by model name.
func (s *JobStore) MarkCompleted(ctx context.Context, jobID uuid.UUID, failures map[string]string) error {
	job, err := s.get(ctx, jobID)
	if err != nil {
		return err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":        entity.JobStatusCompleted,
		"progress":      100,
		"current_model": "",
		"completed_at":  now,
		"updated_at":    now,
	}
	if job.StartedAt != nil {
		elapsed := now.Sub(*job.StartedAt).Seconds()
		updates["processing_time_seconds"] = elapsed
	}
	if len(failures) > 0 {
		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		sort.Strings(names)
		var lines []string
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("%s: %s", name, failures[name]))
		}
		updates["error_detail"] = strings.Join(lines, "\n")
	}

	err = s.db.WithContext(ctx).
		Model(&entity.ProcessingJob{}).
		Where("id = ?", jobID).
		Updates(updates).Error
	if err != nil {
		return err
	}
	s.publish(ctx, job.CompanyID, jobID, entity.JobStatusCompleted, 100, "")
	return nil
}

func (s *JobStore) MarkFailed(ctx context.Context, jobID uuid.UUID, message string) error {
	job, err := s.get(ctx, jobID)
	if err != nil {
		return err
	}

	now := time.Now()
	err = s.db.WithContext(ctx).
		Model(&entity.ProcessingJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":        entity.JobStatusFailed,
			"error_message": message,
			"current_model": "",
			"completed_at":  now,
			"updated_at":    now,
		}).Error
	if err != nil {
		return err
	}
	s.publish(ctx, job.CompanyID, jobID, entity.JobStatusFailed, job.Progress, "")
	return nil
}

func (s *JobStore) IsCancelled(ctx context.Context, jobID uuid.UUID) (bool, error) {
	var status string
	err := s.db.WithContext(ctx).
		Model(&entity.ProcessingJob{}).
		Where("id = ?", jobID).
		Pluck("status", &status).Error
	if err != nil {
		return false, err
	}
	return status == entity.JobStatusCancelled, nil
}

func (s *JobStore) get(ctx context.Context, jobID uuid.UUID) (*entity.ProcessingJob, error) {
	var job entity.ProcessingJob
	if err := s.db.WithContext(ctx).Where("id = ?", jobID).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *JobStore) publish(ctx context.Context, companyID, jobID uuid.UUID, status string, progress int, currentModel string) {
	if s.events == nil {
		return
	}
	s.events.PublishProgress(ctx, companyID, jobID, status, progress, currentModel)
}
