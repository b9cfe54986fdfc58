package models

import (
	"time"

	"github.com/google/uuid"
)

// Copy job statuses.
const (
	JobStatusPending   = "PENDING"
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusCancelled = "CANCELLED"
	JobStatusQuota     = "QUOTA_EXCEEDED"
	JobStatusFailed    = "FAILED"
)

// CopyJob records one copy invocation. The row is informational: an
// in-flight job does not survive a restart and is never resumed.
type CopyJob struct {
	ID            uuid.UUID `gorm:"type:text;primaryKey"`
	UserID        int64     `gorm:"index"`
	SourceChannel string    `gorm:"size:128"`
	TargetChannel string    `gorm:"size:128"`
	StartMsgID    int       `gorm:"column:start_msg_id"`
	EndMsgID      int       `gorm:"column:end_msg_id"`
	Status        string    `gorm:"size:32;default:PENDING"`
	Copied        int
	Failed        int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsValidStatus checks the status against the known set.
func (j *CopyJob) IsValidStatus() bool {
	switch j.Status {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted,
		JobStatusCancelled, JobStatusQuota, JobStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the job reached a final state.
func (j *CopyJob) Terminal() bool {
	return j.Status != JobStatusPending && j.Status != JobStatusRunning
}

// Total returns the number of message ids the job covers.
func (j *CopyJob) Total() int {
	if j.EndMsgID < j.StartMsgID {
		return 0
	}
	return j.EndMsgID - j.StartMsgID + 1
}

// TableName overrides the gorm default.
func (CopyJob) TableName() string {
	return "copy_jobs"
}
