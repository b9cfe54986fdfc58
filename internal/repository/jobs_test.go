package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/blockedby/copygram/internal/models"
)

func TestJobsRepository_Lifecycle(t *testing.T) {
	repo := NewJobsRepository(testDB(t).GORM)
	ctx := context.Background()

	job := &models.CopyJob{
		UserID:        1,
		SourceChannel: "@source",
		TargetChannel: "@target",
		StartMsgID:    1,
		EndMsgID:      100,
		Status:        models.JobStatusRunning,
	}
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if job.ID == uuid.Nil {
		t.Fatal("Create() should assign an id")
	}

	if err := repo.UpdateCounters(ctx, job.ID, 40, 2); err != nil {
		t.Fatalf("UpdateCounters() error = %v", err)
	}
	if err := repo.Finish(ctx, job.ID, models.JobStatusCompleted, 97, 3); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetByID() returned nil for an existing job")
	}
	if got.Status != models.JobStatusCompleted {
		t.Errorf("Status = %s, want %s", got.Status, models.JobStatusCompleted)
	}
	if got.Copied != 97 || got.Failed != 3 {
		t.Errorf("counters = %d/%d, want 97/3", got.Copied, got.Failed)
	}
	if !got.Terminal() {
		t.Error("completed job should be terminal")
	}
	if got.Total() != 100 {
		t.Errorf("Total() = %d, want 100", got.Total())
	}
}

func TestJobsRepository_GetByID_Unknown(t *testing.T) {
	repo := NewJobsRepository(testDB(t).GORM)

	got, err := repo.GetByID(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for an unknown id", got)
	}
}

func TestJobsRepository_Recent(t *testing.T) {
	repo := NewJobsRepository(testDB(t).GORM)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		job := &models.CopyJob{UserID: int64(i), StartMsgID: 1, EndMsgID: 1}
		if err := repo.Create(ctx, job); err != nil {
			t.Fatal(err)
		}
	}

	jobs, err := repo.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(jobs) != 3 {
		t.Errorf("len = %d, want 3", len(jobs))
	}
}
