package telegram

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/styling"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
)

// classifyMedia extracts the downloadable payload of a message's media,
// or nil when there is nothing to transfer (webpages, polls, geo).
func classifyMedia(media tg.MessageMediaClass) *MediaInfo {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return nil
		}
		return classifyPhoto(photo)

	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return nil
		}
		return classifyDocument(doc)
	}
	return nil
}

func classifyPhoto(photo *tg.Photo) *MediaInfo {
	// pick the largest size the server offers
	var (
		best     string
		bestArea int
		size     int64
		width    int
		height   int
	)
	for _, s := range photo.Sizes {
		ps, ok := s.(*tg.PhotoSize)
		if !ok {
			continue
		}
		if area := ps.W * ps.H; area > bestArea {
			best, bestArea = ps.Type, area
			size = int64(ps.Size)
			width, height = ps.W, ps.H
		}
	}
	if best == "" {
		return nil
	}

	return &MediaInfo{
		Kind:     MediaPhoto,
		Size:     size,
		MimeType: "image/jpeg",
		Width:    width,
		Height:   height,
		location: &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     best,
		},
	}
}

func classifyDocument(doc *tg.Document) *MediaInfo {
	info := &MediaInfo{
		Kind:       MediaDocument,
		Size:       doc.Size,
		MimeType:   doc.MimeType,
		Attributes: doc.Attributes,
		location: &tg.InputDocumentFileLocation{
			ID:            doc.ID,
			AccessHash:    doc.AccessHash,
			FileReference: doc.FileReference,
		},
	}

	for _, attr := range doc.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeFilename:
			info.FileName = a.FileName
		case *tg.DocumentAttributeVideo:
			info.Kind = MediaVideo
			if a.RoundMessage {
				info.Kind = MediaVideoNote
			}
			info.Duration = int(a.Duration)
			info.Width, info.Height = a.W, a.H
		case *tg.DocumentAttributeAudio:
			info.Kind = MediaAudio
			if a.Voice {
				info.Kind = MediaVoice
			}
			info.Duration = a.Duration
		case *tg.DocumentAttributeAnimated:
			info.Kind = MediaAnimation
		case *tg.DocumentAttributeSticker:
			info.Kind = MediaSticker
		}
	}
	// gif documents without the animated attribute
	if info.Kind == MediaDocument && strings.HasPrefix(info.MimeType, "video/") {
		info.Kind = MediaVideo
	}
	return info
}

// ProgressFunc receives transferred and total byte counts during a
// download or upload. total may be zero when the size is unknown.
type ProgressFunc func(transferred, total int64)

// countingWriter forwards writes and reports progress.
type countingWriter struct {
	w        io.Writer
	total    int64
	written  int64
	progress ProgressFunc
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.written += int64(n)
	if c.progress != nil {
		c.progress(c.written, c.total)
	}
	return n, err
}

// Download streams the media payload into w, reporting progress as
// bytes arrive.
func (a *Account) Download(ctx context.Context, media *MediaInfo, w io.Writer, progress ProgressFunc) error {
	if media == nil || media.location == nil {
		return fmt.Errorf("message has no downloadable media")
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	cw := &countingWriter{w: w, total: media.Size, progress: progress}
	d := downloader.NewDownloader()
	if _, err := d.Download(a.API(), media.location).Stream(ctx, cw); err != nil {
		a.noteFloodWait(err)
		return fmt.Errorf("download %s: %w", media.Kind, err)
	}
	return nil
}

// uploadProgress adapts a ProgressFunc to the gotd uploader callback.
type uploadProgress struct {
	fn ProgressFunc
}

func (p uploadProgress) Chunk(_ context.Context, state uploader.ProgressState) error {
	if p.fn != nil {
		p.fn(state.Uploaded, state.Total)
	}
	return nil
}

// SendMedia uploads the payload read from r and sends it to the peer as
// the same kind of media the source message carried, with the caption
// and the original document attributes preserved.
func (a *Account) SendMedia(ctx context.Context, peer tg.InputPeerClass, media *MediaInfo, r io.Reader, size int64, caption string, progress ProgressFunc) error {
	if media == nil {
		return fmt.Errorf("nothing to send")
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	up := uploader.NewUploader(a.API()).WithProgress(uploadProgress{fn: progress})
	name := media.FileName
	if name == "" {
		name = fmt.Sprintf("file%s", extFor(media))
	}

	file, err := up.Upload(ctx, uploader.NewUpload(name, r, size))
	if err != nil {
		a.noteFloodWait(err)
		return fmt.Errorf("upload %s: %w", media.Kind, err)
	}

	sender := message.NewSender(a.API()).WithUploader(up)
	target := sender.To(peer)

	var captionOpt []message.StyledTextOption
	if caption != "" {
		captionOpt = append(captionOpt, styling.Plain(caption))
	}

	if media.Kind == MediaPhoto {
		if _, err := target.Media(ctx, message.UploadedPhoto(file, captionOpt...)); err != nil {
			a.noteFloodWait(err)
			return fmt.Errorf("send photo: %w", err)
		}
		return nil
	}

	doc := message.UploadedDocument(file, captionOpt...)
	if media.MimeType != "" {
		doc = doc.MIME(media.MimeType)
	}
	if media.FileName != "" {
		doc = doc.Filename(media.FileName)
	}
	if len(media.Attributes) > 0 {
		doc = doc.Attributes(media.Attributes...)
	}

	if _, err := target.Media(ctx, doc); err != nil {
		a.noteFloodWait(err)
		return fmt.Errorf("send %s: %w", media.Kind, err)
	}
	return nil
}

// extFor picks a file extension for unnamed uploads from the mime type.
func extFor(media *MediaInfo) string {
	switch {
	case media.Kind == MediaPhoto:
		return ".jpg"
	case strings.Contains(media.MimeType, "mp4"):
		return ".mp4"
	case strings.Contains(media.MimeType, "ogg"):
		return ".ogg"
	case strings.Contains(media.MimeType, "mpeg"):
		return ".mp3"
	default:
		return ".bin"
	}
}
