// Package telegram drives the users' own MTProto accounts: connection
// management, channel resolution and media transfer.
package telegram

import (
	"time"

	"github.com/gotd/td/tg"
)

// MediaKind classifies a message's payload for kind-specific re-upload.
type MediaKind string

// Supported media kinds.
const (
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaDocument  MediaKind = "document"
	MediaAudio     MediaKind = "audio"
	MediaVoice     MediaKind = "voice"
	MediaAnimation MediaKind = "animation"
	MediaSticker   MediaKind = "sticker"
	MediaVideoNote MediaKind = "video_note"
)

// Ext returns the scratch-file extension for the kind.
// Photos get .jpg, everything else a generic placeholder.
func (k MediaKind) Ext() string {
	if k == MediaPhoto {
		return ".jpg"
	}
	return ".tmp"
}

// ChatRef is a resolved chat handle usable for api calls.
type ChatRef struct {
	ChannelID  int64 // bare mtproto channel id
	AccessHash int64
	Username   string
	Title      string
}

// Canonical returns the -100-prefixed id convention used in links,
// sessions and the bot surface.
func (r ChatRef) Canonical() int64 {
	return canonicalFromBare(r.ChannelID)
}

// InputPeer builds the peer for api calls.
func (r ChatRef) InputPeer() tg.InputPeerClass {
	return &tg.InputPeerChannel{ChannelID: r.ChannelID, AccessHash: r.AccessHash}
}

// InputChannel builds the channel reference for channel-scoped calls.
func (r ChatRef) InputChannel() *tg.InputChannel {
	return &tg.InputChannel{ChannelID: r.ChannelID, AccessHash: r.AccessHash}
}

// MediaInfo describes one message's downloadable payload.
type MediaInfo struct {
	Kind     MediaKind
	Size     int64
	MimeType string
	FileName string

	// display metadata, zero when unknown
	Duration int
	Width    int
	Height   int

	// original document attributes, re-sent verbatim on upload so
	// duration, dimensions and file name survive the round trip
	Attributes []tg.DocumentAttributeClass

	location tg.InputFileLocationClass
}

// Message is one fetched message, an opaque bag of fields the copier
// does not own.
type Message struct {
	ID      int
	Date    time.Time
	Text    string // message text, or the caption when media is present
	Media   *MediaInfo
	Empty   bool
	PeerRef *ChatRef // parent chat when the server reported it, else nil
}
