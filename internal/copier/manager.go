package copier

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/copygram/internal/logger"
	"github.com/blockedby/copygram/internal/models"
	"github.com/blockedby/copygram/internal/repository"
)

// errors
var (
	ErrAlreadyRunning = errors.New("a copy job is already running for this user")
)

// Job is one active copy job.
type Job struct {
	ID        uuid.UUID
	UserID    int64
	StartedAt time.Time
	Request   Request

	cancel *CancelToken
}

// Events receives job lifecycle notifications. Implementations must not
// block.
type Events interface {
	JobStarted(job *models.CopyJob)
	JobFinished(job *models.CopyJob)
}

// Manager tracks running jobs, one per user, and persists their rows.
// Thread-safe.
type Manager struct {
	service *Service
	jobs    *repository.JobsRepository
	events  Events
	log     *logger.Logger

	mu      sync.Mutex
	running map[int64]*Job
}

// NewManager creates a job manager. events may be nil.
func NewManager(service *Service, jobs *repository.JobsRepository, events Events) *Manager {
	return &Manager{
		service: service,
		jobs:    jobs,
		events:  events,
		log:     logger.Get(),
		running: make(map[int64]*Job),
	}
}

// Start launches a copy loop for the user in the background. Returns
// ErrAlreadyRunning when the user already has an active job. onDone is
// called from the job goroutine after the loop finishes; it may be nil.
func (m *Manager) Start(_ context.Context, client ChatClient, req Request, sink StatusSink, onDone func(*Result, error)) (*Job, error) {
	m.mu.Lock()
	if _, busy := m.running[req.UserID]; busy {
		m.mu.Unlock()
		return nil, ErrAlreadyRunning
	}

	job := &Job{
		ID:        uuid.New(),
		UserID:    req.UserID,
		StartedAt: time.Now(),
		Request:   req,
		cancel:    &CancelToken{},
	}
	m.running[req.UserID] = job
	m.mu.Unlock()

	// the handler's context dies with the update; the job keeps its own
	jobCtx := context.Background()

	row := &models.CopyJob{
		ID:            job.ID,
		UserID:        req.UserID,
		SourceChannel: sourceLabel(req),
		TargetChannel: req.DestLabel,
		StartMsgID:    req.StartID,
		EndMsgID:      req.EndID,
		Status:        models.JobStatusPending,
	}
	if err := m.jobs.Create(jobCtx, row); err != nil {
		m.log.Error().Err(err).Int64("user_id", req.UserID).Msg("copier: job row not persisted")
	} else if m.events != nil {
		m.events.JobStarted(row)
	}

	go m.run(jobCtx, client, job, row, sink, onDone)
	return job, nil
}

// Cancel requests the user's running job to stop. Safe to call when no
// job is running; reports whether a job was found.
func (m *Manager) Cancel(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.running[userID]
	if !ok {
		return false
	}
	job.cancel.Cancel()
	return true
}

// Active returns the user's running job, or nil.
func (m *Manager) Active(userID int64) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running[userID]
}

// run executes the loop in the job goroutine and settles the row.
func (m *Manager) run(ctx context.Context, client ChatClient, job *Job, row *models.CopyJob, sink StatusSink, onDone func(*Result, error)) {
	defer func() {
		m.mu.Lock()
		if cur, ok := m.running[job.UserID]; ok && cur.ID == job.ID {
			delete(m.running, job.UserID)
		}
		m.mu.Unlock()
	}()

	if err := m.jobs.UpdateStatus(ctx, job.ID, models.JobStatusRunning); err != nil {
		m.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("copier: job row not marked running")
	} else {
		row.Status = models.JobStatusRunning
	}

	onProgress := func(copied, failed int) {
		if err := m.jobs.UpdateCounters(ctx, job.ID, copied, failed); err != nil {
			m.log.Debug().Err(err).Str("job_id", job.ID.String()).Msg("copier: progress not persisted")
		}
	}

	res, err := m.service.Run(ctx, client, job.Request, job.cancel, sink, onProgress)

	status := models.JobStatusFailed
	copied, failed := 0, 0
	if res != nil {
		copied, failed = res.Copied, res.Failed
		switch res.Outcome {
		case OutcomeCompleted:
			status = models.JobStatusCompleted
		case OutcomeCancelled:
			status = models.JobStatusCancelled
		case OutcomeQuota:
			status = models.JobStatusQuota
		}
	}
	if err != nil {
		m.log.Error().Err(err).Int64("user_id", job.UserID).Msg("copier: job failed")
	}

	if dbErr := m.jobs.Finish(ctx, job.ID, status, copied, failed); dbErr != nil {
		m.log.Error().Err(dbErr).Str("job_id", job.ID.String()).Msg("copier: job row not settled")
	} else if m.events != nil {
		row.Status = status
		row.Copied = copied
		row.Failed = failed
		m.events.JobFinished(row)
	}

	if onDone != nil {
		onDone(res, err)
	}
}

func sourceLabel(req Request) string {
	if req.Source == nil {
		return ""
	}
	if req.Source.Username != "" {
		return "@" + req.Source.Username
	}
	return strconv.FormatInt(req.Source.Canonical(), 10)
}
