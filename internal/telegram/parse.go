package telegram

import (
	"regexp"
	"strconv"
	"strings"
)

// InputKind classifies a raw channel reference supplied by a user.
type InputKind string

// Recognized input kinds.
const (
	InputUsername    InputKind = "username"
	InputNumericID   InputKind = "numeric_id"
	InputInviteLink  InputKind = "invite_link"
	InputMessageLink InputKind = "message_link"
	InputInvalid     InputKind = "invalid"
)

var (
	inviteRe      = regexp.MustCompile(`t\.me/(?:\+|joinchat/)([A-Za-z0-9_-]+)`)
	privateLinkRe = regexp.MustCompile(`^https?://t\.me/c/(\d+)/(\d+)(?:-(\d+))?$`)
	publicLinkRe  = regexp.MustCompile(`^https?://t\.me/([A-Za-z0-9_]+)/(\d+)(?:-(\d+))?$`)
	usernameRe    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,31}$`)
)

// MessageLink is a parsed t.me message link, optionally with a range
// ("/6-10"). Exactly one of Username / ChannelID is set.
type MessageLink struct {
	Username  string
	ChannelID int64 // canonical -100 form, private links only
	StartID   int
	EndID     int
}

// ClassifyInput normalizes a raw channel reference and reports its kind.
// For invite links the returned value is the invite hash; for numeric ids
// the canonical -100-prefixed form; for message links the original link.
func ClassifyInput(raw string) (string, InputKind) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", InputInvalid
	}

	if m := inviteRe.FindStringSubmatch(raw); m != nil {
		return m[1], InputInviteLink
	}

	if privateLinkRe.MatchString(raw) || publicLinkRe.MatchString(raw) {
		return raw, InputMessageLink
	}

	cleaned := strings.TrimPrefix(raw, "https://t.me/")
	cleaned = strings.TrimPrefix(cleaned, "http://t.me/")
	cleaned = strings.TrimPrefix(cleaned, "t.me/")
	cleaned = strings.TrimPrefix(cleaned, "@")

	if isNumericID(cleaned) {
		return NormalizeChannelID(cleaned), InputNumericID
	}

	if usernameRe.MatchString(cleaned) {
		return cleaned, InputUsername
	}

	return "", InputInvalid
}

// NormalizeChannelID converts a numeric channel id string to the canonical
// -100-prefixed supergroup convention, leaving already prefixed ids alone.
func NormalizeChannelID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "-100") {
		return id
	}
	bare := strings.TrimLeft(id, "-")
	if len(bare) <= 3 {
		return id
	}
	return "-100" + bare
}

// ParseMessageLink splits a t.me message link into its chat reference and
// message id range. Returns nil when the link does not match.
func ParseMessageLink(link string) *MessageLink {
	link = strings.TrimSpace(link)

	if m := privateLinkRe.FindStringSubmatch(link); m != nil {
		bare, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil
		}
		return &MessageLink{
			ChannelID: canonicalFromBare(bare),
			StartID:   mustAtoi(m[2]),
			EndID:     rangeEnd(m[2], m[3]),
		}
	}

	if m := publicLinkRe.FindStringSubmatch(link); m != nil {
		return &MessageLink{
			Username: m[1],
			StartID:  mustAtoi(m[2]),
			EndID:    rangeEnd(m[2], m[3]),
		}
	}

	return nil
}

// ParseMessageRange parses a "start-end" range, tolerating swapped bounds.
func ParseMessageRange(s string) (start, end int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || start <= 0 || end <= 0 {
		return 0, 0, false
	}
	if start > end {
		start, end = end, start
	}
	return start, end, true
}

func isNumericID(s string) bool {
	s = strings.TrimLeft(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// canonicalFromBare maps a bare mtproto channel id to the -100 form.
func canonicalFromBare(id int64) int64 {
	return -(1000000000000 + id)
}

// bareFromCanonical maps a -100-form id back to the bare channel id.
func bareFromCanonical(id int64) int64 {
	if id >= 0 {
		return id
	}
	v := -id
	if v > 1000000000000 {
		return v - 1000000000000
	}
	return v
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func rangeEnd(start, end string) int {
	if end == "" {
		return mustAtoi(start)
	}
	s, e := mustAtoi(start), mustAtoi(end)
	if e < s {
		return s
	}
	return e
}
