package copier

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/gotd/td/tg"

	"github.com/blockedby/copygram/internal/repository"
	"github.com/blockedby/copygram/internal/telegram"
)

// fakeQuota is an in-memory Quota.
type fakeQuota struct {
	mu         sync.Mutex
	privileged bool
	limit      int64
	count      int64
}

func (q *fakeQuota) Stats(_ context.Context, _ int64) (repository.Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return repository.Stats{
		IsVIP:        q.privileged,
		MessageCount: q.count,
		MessageLimit: q.limit,
	}, nil
}

func (q *fakeQuota) IncrementMessageCount(_ context.Context, _ int64, n int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.count += n
	return nil
}

// fakeClient serves canned messages and records sends.
type fakeClient struct {
	mu        sync.Mutex
	messages  map[int]*telegram.Message
	payload   []byte
	sentTexts []string
	sentMedia int

	// onSend fires after each successful send, for cancellation tests
	onSend func(sent int)
}

func textMsg(id int, text string) *telegram.Message {
	return &telegram.Message{ID: id, Text: text}
}

func mediaMsg(id int, kind telegram.MediaKind, size int64) *telegram.Message {
	return &telegram.Message{
		ID:    id,
		Text:  "caption",
		Media: &telegram.MediaInfo{Kind: kind, Size: size},
	}
}

func (c *fakeClient) GetMessage(_ context.Context, _ *telegram.ChatRef, msgID int) (*telegram.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg, ok := c.messages[msgID]; ok {
		return msg, nil
	}
	return &telegram.Message{ID: msgID, Empty: true}, nil
}

func (c *fakeClient) SendText(_ context.Context, _ tg.InputPeerClass, text string) error {
	c.mu.Lock()
	c.sentTexts = append(c.sentTexts, text)
	sent := len(c.sentTexts) + c.sentMedia
	cb := c.onSend
	c.mu.Unlock()

	if cb != nil {
		cb(sent)
	}
	return nil
}

func (c *fakeClient) Download(_ context.Context, _ *telegram.MediaInfo, w io.Writer, progress telegram.ProgressFunc) error {
	if _, err := w.Write(c.payload); err != nil {
		return err
	}
	if progress != nil {
		progress(int64(len(c.payload)), int64(len(c.payload)))
	}
	return nil
}

func (c *fakeClient) SendMedia(_ context.Context, _ tg.InputPeerClass, _ *telegram.MediaInfo, r io.Reader, size int64, _ string, _ telegram.ProgressFunc) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: read %d, declared %d", len(data), size)
	}

	c.mu.Lock()
	c.sentMedia++
	sent := len(c.sentTexts) + c.sentMedia
	cb := c.onSend
	c.mu.Unlock()

	if cb != nil {
		cb(sent)
	}
	return nil
}

// nullSink drops status updates.
type nullSink struct{}

func (nullSink) Update(string) {}

func newTestService(t *testing.T, quota Quota) *Service {
	t.Helper()
	return NewService(quota, t.TempDir())
}

func request(start, end int) Request {
	return Request{
		UserID:  1,
		Source:  &telegram.ChatRef{ChannelID: 1234567890, AccessHash: 42},
		Dest:    &tg.InputPeerSelf{},
		StartID: start,
		EndID:   end,
	}
}

func TestService_Run_AllText(t *testing.T) {
	client := &fakeClient{messages: map[int]*telegram.Message{
		1: textMsg(1, "one"),
		2: textMsg(2, "two"),
		3: textMsg(3, "three"),
	}}
	quota := &fakeQuota{limit: 100}
	svc := newTestService(t, quota)

	res, err := svc.Run(context.Background(), client, request(1, 3), &CancelToken{}, nullSink{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Outcome != OutcomeCompleted {
		t.Errorf("Outcome = %s, want %s", res.Outcome, OutcomeCompleted)
	}
	if res.Copied != 3 || res.Failed != 0 {
		t.Errorf("copied/failed = %d/%d, want 3/0", res.Copied, res.Failed)
	}
	if quota.count != 3 {
		t.Errorf("quota count = %d, want 3", quota.count)
	}
}

func TestService_Run_MissingMessageCountsFailed(t *testing.T) {
	client := &fakeClient{messages: map[int]*telegram.Message{
		1: textMsg(1, "one"),
		// 2 is missing
		3: textMsg(3, "three"),
	}}
	quota := &fakeQuota{limit: 100}
	svc := newTestService(t, quota)

	res, err := svc.Run(context.Background(), client, request(1, 3), &CancelToken{}, nullSink{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Copied != 2 || res.Failed != 1 {
		t.Errorf("copied/failed = %d/%d, want 2/1", res.Copied, res.Failed)
	}
	if res.Copied+res.Failed != request(1, 3).Total() {
		t.Error("copied+failed must equal total after an uninterrupted run")
	}
}

func TestService_Run_Cancellation(t *testing.T) {
	cancel := &CancelToken{}
	client := &fakeClient{
		messages: map[int]*telegram.Message{
			1: textMsg(1, "a"), 2: textMsg(2, "b"), 3: textMsg(3, "c"),
			4: textMsg(4, "d"), 5: textMsg(5, "e"),
		},
		onSend: func(sent int) {
			if sent == 2 {
				cancel.Cancel()
			}
		},
	}
	quota := &fakeQuota{limit: 100}
	svc := newTestService(t, quota)

	res, err := svc.Run(context.Background(), client, request(1, 5), cancel, nullSink{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Outcome != OutcomeCancelled {
		t.Errorf("Outcome = %s, want %s", res.Outcome, OutcomeCancelled)
	}
	if res.Copied != 2 {
		t.Errorf("Copied = %d, want 2 (cancel checked once per message)", res.Copied)
	}
}

func TestService_Run_QuotaExhaustion(t *testing.T) {
	client := &fakeClient{messages: map[int]*telegram.Message{
		1: textMsg(1, "a"), 2: textMsg(2, "b"), 3: textMsg(3, "c"),
	}}
	quota := &fakeQuota{limit: 2}
	svc := newTestService(t, quota)

	res, err := svc.Run(context.Background(), client, request(1, 3), &CancelToken{}, nullSink{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Outcome != OutcomeQuota {
		t.Errorf("Outcome = %s, want %s", res.Outcome, OutcomeQuota)
	}
	if res.Copied != 2 {
		t.Errorf("Copied = %d, want 2", res.Copied)
	}
}

func TestService_Run_AlreadyExhaustedCopiesNothing(t *testing.T) {
	client := &fakeClient{messages: map[int]*telegram.Message{1: textMsg(1, "a")}}
	quota := &fakeQuota{limit: 5, count: 5}
	svc := newTestService(t, quota)

	res, err := svc.Run(context.Background(), client, request(1, 1), &CancelToken{}, nullSink{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Outcome != OutcomeQuota || res.Copied != 0 {
		t.Errorf("got %s copied=%d, want %s copied=0", res.Outcome, res.Copied, OutcomeQuota)
	}
	if len(client.sentTexts) != 0 {
		t.Error("nothing should be sent when the quota is already exhausted")
	}
}

func TestService_Run_PrivilegedSkipsQuota(t *testing.T) {
	client := &fakeClient{messages: map[int]*telegram.Message{
		1: textMsg(1, "a"), 2: textMsg(2, "b"),
	}}
	quota := &fakeQuota{privileged: true, limit: 1}
	svc := newTestService(t, quota)

	res, err := svc.Run(context.Background(), client, request(1, 2), &CancelToken{}, nullSink{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Copied != 2 {
		t.Errorf("Copied = %d, want 2", res.Copied)
	}
	if quota.count != 0 {
		t.Errorf("privileged copies must not advance the counter, got %d", quota.count)
	}
}

func TestService_Run_MediaInMemory(t *testing.T) {
	client := &fakeClient{
		messages: map[int]*telegram.Message{1: mediaMsg(1, telegram.MediaPhoto, 1024)},
		payload:  []byte("jpeg bytes"),
	}
	quota := &fakeQuota{limit: 100}
	svc := newTestService(t, quota)

	res, err := svc.Run(context.Background(), client, request(1, 1), &CancelToken{}, nullSink{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Copied != 1 || client.sentMedia != 1 {
		t.Errorf("copied = %d, sentMedia = %d, want 1/1", res.Copied, client.sentMedia)
	}
}

func TestService_Run_LargeMediaStagedOnDisk(t *testing.T) {
	dir := t.TempDir()
	client := &fakeClient{
		// declared size above the threshold forces the disk path;
		// the fake payload itself stays small
		messages: map[int]*telegram.Message{1: mediaMsg(1, telegram.MediaVideo, memoryThreshold+1)},
		payload:  []byte("pretend this is a huge video"),
	}
	quota := &fakeQuota{limit: 100}
	svc := NewService(quota, dir)

	res, err := svc.Run(context.Background(), client, request(1, 1), &CancelToken{}, nullSink{}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Copied != 1 {
		t.Fatalf("Copied = %d, want 1", res.Copied)
	}

	// scratch files must be gone after the job
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch dir not empty after the job: %d files left", len(entries))
	}
}

func TestService_Run_EmptyRange(t *testing.T) {
	svc := newTestService(t, &fakeQuota{limit: 1})
	if _, err := svc.Run(context.Background(), &fakeClient{}, request(5, 3), &CancelToken{}, nullSink{}, nil); err == nil {
		t.Error("expected an error for an inverted range")
	}
}

func TestService_Run_ReportsProgress(t *testing.T) {
	client := &fakeClient{messages: map[int]*telegram.Message{
		1: textMsg(1, "a"),
		3: textMsg(3, "c"),
	}}
	svc := newTestService(t, &fakeQuota{limit: 100})

	var snapshots [][2]int
	res, err := svc.Run(context.Background(), client, request(1, 3), &CancelToken{}, nullSink{}, func(copied, failed int) {
		snapshots = append(snapshots, [2]int{copied, failed})
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Copied != 2 || res.Failed != 1 {
		t.Fatalf("result = %+v, want 2 copied 1 failed", res)
	}

	if len(snapshots) != 3 {
		t.Fatalf("got %d progress snapshots, want one per message", len(snapshots))
	}
	last := snapshots[len(snapshots)-1]
	if last != [2]int{2, 1} {
		t.Errorf("final snapshot = %v, want [2 1]", last)
	}
}
