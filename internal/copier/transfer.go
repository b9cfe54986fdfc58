package copier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gotd/td/tg"

	"github.com/blockedby/copygram/internal/logger"
	"github.com/blockedby/copygram/internal/telegram"
)

// memoryThreshold is the payload size above which downloads are staged
// on disk instead of in memory.
const memoryThreshold = 100 * 1024 * 1024

// statusInterval is the minimum spacing between status pushes, to stay
// under the bot API edit limits.
const statusInterval = time.Second

// ChatClient is the narrow account surface the copier consumes.
type ChatClient interface {
	GetMessage(ctx context.Context, ref *telegram.ChatRef, msgID int) (*telegram.Message, error)
	SendText(ctx context.Context, peer tg.InputPeerClass, text string) error
	Download(ctx context.Context, media *telegram.MediaInfo, w io.Writer, progress telegram.ProgressFunc) error
	SendMedia(ctx context.Context, peer tg.InputPeerClass, media *telegram.MediaInfo, r io.Reader, size int64, caption string, progress telegram.ProgressFunc) error
}

// StatusSink receives human-readable progress text, edited in place.
type StatusSink interface {
	Update(text string)
}

// statusThrottle spaces pushes to a StatusSink at least statusInterval
// apart. Push bypasses the throttle for state transitions.
type statusThrottle struct {
	sink StatusSink
	last time.Time
}

func newStatusThrottle(sink StatusSink) *statusThrottle {
	return &statusThrottle{sink: sink}
}

// Maybe pushes when enough time passed since the previous push.
func (t *statusThrottle) Maybe(text string) {
	if t.sink == nil || time.Since(t.last) < statusInterval {
		return
	}
	t.last = time.Now()
	t.sink.Update(text)
}

// Push pushes unconditionally.
func (t *statusThrottle) Push(text string) {
	if t.sink == nil {
		return
	}
	t.last = time.Now()
	t.sink.Update(text)
}

// transferrer copies one message at a time: fetch, download payload,
// re-upload to the destination.
type transferrer struct {
	client     ChatClient
	scratchDir string
	log        *logger.Logger
}

func newTransferrer(client ChatClient, scratchDir string) *transferrer {
	return &transferrer{
		client:     client,
		scratchDir: scratchDir,
		log:        logger.Get(),
	}
}

// copyOne transfers a single message to dest. Empty and unsupported
// messages are errors so the loop counts them as failed.
func (t *transferrer) copyOne(ctx context.Context, source *telegram.ChatRef, msgID int, dest tg.InputPeerClass, status *statusThrottle) error {
	msg, err := t.client.GetMessage(ctx, source, msgID)
	if err != nil {
		return fmt.Errorf("fetch message %d: %w", msgID, err)
	}
	if msg.Empty {
		return fmt.Errorf("message %d is missing or deleted", msgID)
	}

	if msg.Media == nil {
		if msg.Text == "" {
			return fmt.Errorf("message %d has no copyable content", msgID)
		}
		return t.client.SendText(ctx, dest, msg.Text)
	}

	return t.copyMedia(ctx, msg, dest, status)
}

func (t *transferrer) copyMedia(ctx context.Context, msg *telegram.Message, dest tg.InputPeerClass, status *statusThrottle) error {
	media := msg.Media

	if media.Size > memoryThreshold {
		return t.copyMediaViaDisk(ctx, msg, dest, status)
	}

	var buf bytes.Buffer
	dl := NewProgress("Downloading", string(media.Kind), msg.ID, media.Size)
	err := t.client.Download(ctx, media, &buf, func(transferred, _ int64) {
		dl.Observe(transferred)
		status.Maybe(dl.Render())
	})
	if err != nil {
		return err
	}

	ul := NewProgress("Uploading", string(media.Kind), msg.ID, int64(buf.Len()))
	return t.client.SendMedia(ctx, dest, media, bytes.NewReader(buf.Bytes()), int64(buf.Len()), msg.Text, func(transferred, _ int64) {
		ul.Observe(transferred)
		status.Maybe(ul.Render())
	})
}

// copyMediaViaDisk stages a large payload in a scratch file. The file is
// removed as soon as the send finishes, success or not.
func (t *transferrer) copyMediaViaDisk(ctx context.Context, msg *telegram.Message, dest tg.InputPeerClass, status *statusThrottle) error {
	media := msg.Media
	path := t.scratchPath(msg.ID, media.Kind)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			t.log.Warn().Err(rmErr).Str("path", path).Msg("copier: scratch file not removed")
		}
	}()

	dl := NewProgress("Downloading", string(media.Kind), msg.ID, media.Size)
	err = t.client.Download(ctx, media, f, func(transferred, _ int64) {
		dl.Observe(transferred)
		status.Maybe(dl.Render())
	})
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return err
	}

	r, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reopen scratch file: %w", err)
	}
	defer r.Close()

	stat, err := r.Stat()
	if err != nil {
		return fmt.Errorf("stat scratch file: %w", err)
	}

	ul := NewProgress("Uploading", string(media.Kind), msg.ID, stat.Size())
	return t.client.SendMedia(ctx, dest, media, r, stat.Size(), msg.Text, func(transferred, _ int64) {
		ul.Observe(transferred)
		status.Maybe(ul.Render())
	})
}

func (t *transferrer) scratchPath(msgID int, kind telegram.MediaKind) string {
	name := fmt.Sprintf("temp_%d_%s%s", msgID, kind, kind.Ext())
	return filepath.Join(t.scratchDir, name)
}

// sweepScratch removes any scratch files left behind, called once per
// finished job.
func (t *transferrer) sweepScratch() {
	matches, err := filepath.Glob(filepath.Join(t.scratchDir, "temp_*"))
	if err != nil {
		return
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			t.log.Warn().Err(err).Str("path", path).Msg("copier: sweep failed to remove scratch file")
		}
	}
}
