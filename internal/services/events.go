package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ProgressChannel returns the redis channel progress events of a company
// are published on.
func ProgressChannel(companyID uuid.UUID) string {
	return fmt.Sprintf("jobs:%s", companyID)
}

// ProgressEvent is the payload pushed to listeners on every job update.
type ProgressEvent struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	CurrentModel string `json:"current_model,omitempty"`
	At           string `json:"at"`
}

// RedisProgressPublisher implements store.ProgressPublisher over redis
// pub/sub. A nil client disables publishing; failures are logged and
// swallowed so a flaky broker never fails a job.
type RedisProgressPublisher struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisProgressPublisher(client *redis.Client, log *zap.Logger) *RedisProgressPublisher {
	return &RedisProgressPublisher{client: client, log: log}
}

func (p *RedisProgressPublisher) PublishProgress(ctx context.Context, companyID, jobID uuid.UUID, status string, progress int, currentModel string) {
	if p == nil || p.client == nil {
		return
	}
	event := ProgressEvent{
		JobID:        jobID.String(),
		Status:       status,
		Progress:     progress,
		CurrentModel: currentModel,
		At:           time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("failed to encode progress event", zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, ProgressChannel(companyID), payload).Err(); err != nil {
		p.log.Warn("failed to publish progress event",
			zap.String("job_id", jobID.String()),
			zap.Error(err))
	}
}
