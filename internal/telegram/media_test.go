package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
)

func TestClassifyMedia_Photo(t *testing.T) {
	media := &tg.MessageMediaPhoto{
		Photo: &tg.Photo{
			ID:         1,
			AccessHash: 2,
			Sizes: []tg.PhotoSizeClass{
				&tg.PhotoSize{Type: "m", W: 320, H: 240, Size: 15000},
				&tg.PhotoSize{Type: "y", W: 1280, H: 960, Size: 150000},
			},
		},
	}

	info := classifyMedia(media)
	if info == nil {
		t.Fatal("expected media info")
	}
	if info.Kind != MediaPhoto {
		t.Errorf("Kind = %s, want %s", info.Kind, MediaPhoto)
	}
	if info.Width != 1280 || info.Height != 960 {
		t.Errorf("picked %dx%d, want the largest size 1280x960", info.Width, info.Height)
	}
	if info.Size != 150000 {
		t.Errorf("Size = %d, want 150000", info.Size)
	}
}

func TestClassifyMedia_DocumentKinds(t *testing.T) {
	doc := func(attrs ...tg.DocumentAttributeClass) *tg.MessageMediaDocument {
		return &tg.MessageMediaDocument{
			Document: &tg.Document{
				ID:         1,
				AccessHash: 2,
				Size:       1000,
				MimeType:   "application/octet-stream",
				Attributes: attrs,
			},
		}
	}

	tests := []struct {
		name  string
		media *tg.MessageMediaDocument
		want  MediaKind
	}{
		{"plain document", doc(&tg.DocumentAttributeFilename{FileName: "a.pdf"}), MediaDocument},
		{"video", doc(&tg.DocumentAttributeVideo{W: 640, H: 480}), MediaVideo},
		{"video note", doc(&tg.DocumentAttributeVideo{RoundMessage: true}), MediaVideoNote},
		{"audio", doc(&tg.DocumentAttributeAudio{Duration: 60}), MediaAudio},
		{"voice", doc(&tg.DocumentAttributeAudio{Voice: true}), MediaVoice},
		{"animation", doc(&tg.DocumentAttributeAnimated{}), MediaAnimation},
		{"sticker", doc(&tg.DocumentAttributeSticker{}), MediaSticker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := classifyMedia(tt.media)
			if info == nil {
				t.Fatal("expected media info")
			}
			if info.Kind != tt.want {
				t.Errorf("Kind = %s, want %s", info.Kind, tt.want)
			}
		})
	}
}

func TestClassifyMedia_PreservesAttributes(t *testing.T) {
	attrs := []tg.DocumentAttributeClass{
		&tg.DocumentAttributeFilename{FileName: "movie.mp4"},
		&tg.DocumentAttributeVideo{W: 1920, H: 1080},
	}
	media := &tg.MessageMediaDocument{
		Document: &tg.Document{ID: 1, Size: 5000, MimeType: "video/mp4", Attributes: attrs},
	}

	info := classifyMedia(media)
	if info == nil {
		t.Fatal("expected media info")
	}
	if info.FileName != "movie.mp4" {
		t.Errorf("FileName = %q, want movie.mp4", info.FileName)
	}
	if len(info.Attributes) != 2 {
		t.Fatalf("attributes must be carried over for the re-upload, got %d", len(info.Attributes))
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", info.Width, info.Height)
	}
}

func TestClassifyMedia_Unsupported(t *testing.T) {
	if info := classifyMedia(&tg.MessageMediaGeo{}); info != nil {
		t.Errorf("geo media should not be copyable, got %+v", info)
	}
	if info := classifyMedia(&tg.MessageMediaPoll{}); info != nil {
		t.Errorf("polls should not be copyable, got %+v", info)
	}
}

func TestMediaKindExt(t *testing.T) {
	if got := MediaPhoto.Ext(); got != ".jpg" {
		t.Errorf("photo ext = %s, want .jpg", got)
	}
	for _, kind := range []MediaKind{MediaVideo, MediaDocument, MediaVoice} {
		if got := kind.Ext(); got != ".tmp" {
			t.Errorf("%s ext = %s, want .tmp", kind, got)
		}
	}
}
