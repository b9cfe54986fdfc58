// Package publisher emits copy-job lifecycle events over NATS, for
// external consumers (billing, analytics). The bot works fine without a
// broker; wiring skips the publisher when NATS_URL is empty.
package publisher

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/blockedby/copygram/internal/logger"
	"github.com/blockedby/copygram/internal/models"
)

// Subjects for job lifecycle events.
const (
	SubjectJobStarted  = "copyjobs.started"
	SubjectJobFinished = "copyjobs.finished"
)

// NATSClient is the connection surface we need, narrowed for mocking.
type NATSClient interface {
	Publish(subject string, data []byte) error
}

// JobEvent is the wire form of a job lifecycle event.
type JobEvent struct {
	JobID         string    `json:"job_id"`
	UserID        int64     `json:"user_id"`
	SourceChannel string    `json:"source_channel"`
	TargetChannel string    `json:"target_channel"`
	StartMsgID    int       `json:"start_msg_id"`
	EndMsgID      int       `json:"end_msg_id"`
	Status        string    `json:"status"`
	Copied        int       `json:"copied"`
	Failed        int       `json:"failed"`
	At            time.Time `json:"at"`
}

// NATSPublisher implements copier.Events over a NATS connection.
type NATSPublisher struct {
	nc  NATSClient
	log *logger.Logger
}

// NewNATSPublisher creates a publisher over an established connection.
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: conn, log: logger.Get()}
}

// JobStarted publishes a job start event. Publish failures are logged,
// never propagated: the broker is optional infrastructure.
func (p *NATSPublisher) JobStarted(job *models.CopyJob) {
	p.publish(SubjectJobStarted, job)
}

// JobFinished publishes a job completion event.
func (p *NATSPublisher) JobFinished(job *models.CopyJob) {
	p.publish(SubjectJobFinished, job)
}

func (p *NATSPublisher) publish(subject string, job *models.CopyJob) {
	event := JobEvent{
		JobID:         job.ID.String(),
		UserID:        job.UserID,
		SourceChannel: job.SourceChannel,
		TargetChannel: job.TargetChannel,
		StartMsgID:    job.StartMsgID,
		EndMsgID:      job.EndMsgID,
		Status:        job.Status,
		Copied:        job.Copied,
		Failed:        job.Failed,
		At:            time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Msg("publisher: marshal job event")
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).Str("subject", subject).Msg("publisher: job event not published")
	}
}
