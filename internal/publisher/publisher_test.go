package publisher

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/blockedby/copygram/internal/logger"
	"github.com/blockedby/copygram/internal/models"
)

// MockNATSClient records published messages.
type MockNATSClient struct {
	PublishedSubject string
	PublishedData    []byte
	PublishError     error
}

func (m *MockNATSClient) Publish(subject string, data []byte) error {
	m.PublishedSubject = subject
	m.PublishedData = data
	return m.PublishError
}

func TestNATSPublisher_JobFinished(t *testing.T) {
	mock := &MockNATSClient{}
	pub := &NATSPublisher{nc: mock, log: logger.Get()}

	job := &models.CopyJob{
		ID:            uuid.New(),
		UserID:        42,
		SourceChannel: "@source",
		TargetChannel: "@target",
		StartMsgID:    1,
		EndMsgID:      10,
		Status:        models.JobStatusCompleted,
		Copied:        9,
		Failed:        1,
	}

	pub.JobFinished(job)

	if mock.PublishedSubject != SubjectJobFinished {
		t.Errorf("subject = %s, want %s", mock.PublishedSubject, SubjectJobFinished)
	}

	var event JobEvent
	if err := json.Unmarshal(mock.PublishedData, &event); err != nil {
		t.Fatalf("payload is not valid json: %v", err)
	}
	if event.JobID != job.ID.String() {
		t.Errorf("JobID = %s, want %s", event.JobID, job.ID)
	}
	if event.Copied != 9 || event.Failed != 1 {
		t.Errorf("counters = %d/%d, want 9/1", event.Copied, event.Failed)
	}
	if event.Status != models.JobStatusCompleted {
		t.Errorf("Status = %s, want %s", event.Status, models.JobStatusCompleted)
	}
}

func TestNATSPublisher_PublishErrorIsSwallowed(t *testing.T) {
	mock := &MockNATSClient{PublishError: errTest}
	pub := &NATSPublisher{nc: mock, log: logger.Get()}

	// must not panic or propagate - the broker is optional
	pub.JobStarted(&models.CopyJob{ID: uuid.New()})

	if mock.PublishedSubject != SubjectJobStarted {
		t.Errorf("subject = %s, want %s", mock.PublishedSubject, SubjectJobStarted)
	}
}

var errTest = &natsError{"connection lost"}

type natsError struct{ msg string }

func (e *natsError) Error() string { return e.msg }
