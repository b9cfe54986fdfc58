package copier

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blockedby/copygram/internal/telegram"
)

func TestScratchPath(t *testing.T) {
	tr := newTransferrer(&fakeClient{}, "/scratch")

	tests := []struct {
		msgID int
		kind  telegram.MediaKind
		want  string
	}{
		{42, telegram.MediaPhoto, "/scratch/temp_42_photo.jpg"},
		{7, telegram.MediaVideo, "/scratch/temp_7_video.tmp"},
		{9, telegram.MediaDocument, "/scratch/temp_9_document.tmp"},
	}

	for _, tt := range tests {
		if got := tr.scratchPath(tt.msgID, tt.kind); got != tt.want {
			t.Errorf("scratchPath(%d, %s) = %q, want %q", tt.msgID, tt.kind, got, tt.want)
		}
	}
}

func TestSweepScratch(t *testing.T) {
	dir := t.TempDir()
	leftover := filepath.Join(dir, "temp_5_video.tmp")
	unrelated := filepath.Join(dir, "keep.txt")
	for _, path := range []string{leftover, unrelated} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tr := newTransferrer(&fakeClient{}, dir)
	tr.sweepScratch()

	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Error("scratch file should be removed by the sweep")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("files outside the temp_ prefix must survive the sweep")
	}
}

func TestStatusThrottle(t *testing.T) {
	var got []string
	sink := sinkFunc(func(text string) { got = append(got, text) })
	throttle := newStatusThrottle(sink)

	throttle.Maybe("first")
	throttle.Maybe("suppressed")
	throttle.last = time.Now().Add(-2 * statusInterval)
	throttle.Maybe("second")
	throttle.Push("final")

	want := []string{"first", "second", "final"}
	if len(got) != len(want) {
		t.Fatalf("pushes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("push %d = %q, want %q", i, got[i], want[i])
		}
	}
}

type sinkFunc func(string)

func (f sinkFunc) Update(text string) { f(text) }
