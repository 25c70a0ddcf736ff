package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Brownbull/gabeda-backend/internal/entity"
	"github.com/Brownbull/gabeda-backend/internal/store"
)

var (
	dbOnce sync.Once
	testDB *gorm.DB
	dbErr  error
)

// testDatabase opens the database named by TEST_POSTGRES_DSN and migrates
// the schema once. Tests are skipped when no DSN is set.
func testDatabase(tb testing.TB) *gorm.DB {
	tb.Helper()
	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			return
		}
		testDB, dbErr = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if dbErr != nil {
			return
		}
		dbErr = testDB.AutoMigrate(
			&entity.Company{},
			&entity.DataUpload{},
			&entity.Transaction{},
			&entity.ProcessingJob{},
			&entity.ModelResult{},
			&entity.AnalyticsResult{},
		)
	})
	if dbErr != nil {
		tb.Fatalf("failed to init test database: %v", dbErr)
	}
	if testDB == nil {
		tb.Skip("TEST_POSTGRES_DSN not set")
	}
	return testDB
}

func testRunner(db *gorm.DB) (*JobRunner, *store.JobStore, *store.UploadStore) {
	log := zap.NewNop()
	jobs := store.NewJobStore(db, log, nil)
	uploads := store.NewUploadStore(db, log)
	runner := NewJobRunner(db, log,
		jobs,
		store.NewResultStore(db, log),
		store.NewTransactionStore(db, log),
		uploads,
		store.NewAnalyticsStore(db, log),
		NewSearchIndexer(nil, log))
	return runner, jobs, uploads
}

func seedCompletedUpload(tb testing.TB, uploads *store.UploadStore) *entity.DataUpload {
	tb.Helper()
	upload := &entity.DataUpload{
		FileName: "ventas.csv",
		FileSize: 64,
		FilePath: "company/upload/ventas.csv",
		Status:   entity.UploadStatusCompleted,
	}
	if err := uploads.Create(context.Background(), upload); err != nil {
		tb.Fatalf("failed to create upload: %v", err)
	}
	return upload
}

func TestFailedRerunLeavesCompletedUpload(t *testing.T) {
	db := testDatabase(t)
	runner, jobs, uploads := testRunner(db)
	ctx := context.Background()

	upload := seedCompletedUpload(t, uploads)
	// No transactions were stored for this upload, so the run fails.
	job, err := jobs.Create(ctx, upload.CompanyID, upload.ID, nil)
	if err != nil {
		t.Fatalf("failed to create job: %v", err)
	}

	runner.Execute(ctx, job)

	reloadedJob, err := jobs.GetByID(ctx, job.CompanyID, job.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if reloadedJob.Status != entity.JobStatusFailed {
		t.Errorf("job status = %s, want failed", reloadedJob.Status)
	}

	reloadedUpload, err := uploads.GetByID(ctx, upload.CompanyID, upload.ID)
	if err != nil {
		t.Fatalf("upload GetByID returned error: %v", err)
	}
	if reloadedUpload.Status != entity.UploadStatusCompleted {
		t.Errorf("upload status = %s, want the finished ingest left alone", reloadedUpload.Status)
	}
}

func TestCancelledJobLeavesUpload(t *testing.T) {
	db := testDatabase(t)
	runner, jobs, uploads := testRunner(db)
	ctx := context.Background()

	upload := seedCompletedUpload(t, uploads)
	txStore := store.NewTransactionStore(db, zap.NewNop())
	err := txStore.InsertBatch(ctx, []entity.Transaction{{
		CompanyID:     upload.CompanyID,
		UploadID:      upload.ID,
		TransactionID: "T-1",
		Date:          time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		ProductID:     "P-1",
		Quantity:      1,
		UnitPrice:     100,
		Total:         100,
	}})
	if err != nil {
		t.Fatalf("InsertBatch returned error: %v", err)
	}

	job, err := jobs.Create(ctx, upload.CompanyID, upload.ID, nil)
	if err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	if _, err := jobs.Cancel(ctx, job.CompanyID, job.ID); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}

	runner.Execute(ctx, job)

	reloadedJob, err := jobs.GetByID(ctx, job.CompanyID, job.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if reloadedJob.Status != entity.JobStatusCancelled {
		t.Errorf("job status = %s, want cancelled to stay terminal", reloadedJob.Status)
	}

	reloadedUpload, err := uploads.GetByID(ctx, upload.CompanyID, upload.ID)
	if err != nil {
		t.Fatalf("upload GetByID returned error: %v", err)
	}
	if reloadedUpload.Status != entity.UploadStatusCompleted {
		t.Errorf("upload status = %s, want untouched by cancellation", reloadedUpload.Status)
	}
}
