package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestProgressChannelPerCompany(t *testing.T) {
	companyID := uuid.MustParse("7b1f0f7e-8a4e-4a1a-9a3a-1f2e3d4c5b6a")
	if got := ProgressChannel(companyID); got != "jobs:7b1f0f7e-8a4e-4a1a-9a3a-1f2e3d4c5b6a" {
		t.Fatalf("ProgressChannel = %q", got)
	}
}

func TestNilPublisherIsSafe(t *testing.T) {
	var publisher *RedisProgressPublisher
	// Must not panic; handlers pass a nil publisher when redis is off.
	publisher.PublishProgress(context.Background(), uuid.New(), uuid.New(), "running", 33, "daily")
}
