package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blockedby/copygram/internal/models"
)

// JobsRepository handles copy_jobs table operations.
type JobsRepository struct {
	db *gorm.DB
}

// NewJobsRepository creates a jobs repository.
func NewJobsRepository(db *gorm.DB) *JobsRepository {
	return &JobsRepository{db: db}
}

// Create inserts a pending job row and assigns its id.
func (r *JobsRepository) Create(ctx context.Context, job *models.CopyJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create copy job: %w", err)
	}
	return nil
}

// UpdateStatus sets the job status.
func (r *JobsRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	err := r.db.WithContext(ctx).Model(&models.CopyJob{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

// UpdateCounters records copied/failed progress on the job row.
func (r *JobsRepository) UpdateCounters(ctx context.Context, id uuid.UUID, copied, failed int) error {
	err := r.db.WithContext(ctx).Model(&models.CopyJob{}).
		Where("id = ?", id).
		Updates(map[string]any{"copied": copied, "failed": failed}).Error
	if err != nil {
		return fmt.Errorf("update job counters: %w", err)
	}
	return nil
}

// Finish sets the terminal status together with the final counters.
func (r *JobsRepository) Finish(ctx context.Context, id uuid.UUID, status string, copied, failed int) error {
	err := r.db.WithContext(ctx).Model(&models.CopyJob{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "copied": copied, "failed": failed}).Error
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}

// GetByID returns a job or nil when unknown.
func (r *JobsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CopyJob, error) {
	var job models.CopyJob
	err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &job, nil
}

// Recent returns the latest jobs, newest first.
func (r *JobsRepository) Recent(ctx context.Context, limit int) ([]models.CopyJob, error) {
	if limit <= 0 {
		limit = 20
	}
	var jobs []models.CopyJob
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	return jobs, nil
}
