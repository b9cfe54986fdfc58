package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Resolve turns any user-supplied channel reference into a usable chat
// handle. Accepted forms: @username, t.me/username, numeric id
// (-100... or bare), message links, and private invite links (which the
// account joins as a side effect).
func (a *Account) Resolve(ctx context.Context, raw string) (*ChatRef, error) {
	raw = strings.TrimSpace(raw)
	value, kind := ClassifyInput(raw)

	switch kind {
	case InputInviteLink:
		return a.JoinByInvite(ctx, value)

	case InputUsername:
		return a.ResolveUsername(ctx, value)

	case InputMessageLink:
		link := ParseMessageLink(value)
		if link == nil {
			return nil, fmt.Errorf("unrecognized message link %q", raw)
		}
		var (
			ref *ChatRef
			err error
		)
		if link.Username != "" {
			ref, err = a.ResolveUsername(ctx, link.Username)
		} else {
			ref, err = a.resolveNumeric(ctx, link.ChannelID)
		}
		if err != nil {
			return nil, err
		}
		return a.refineFromMessage(ctx, ref, link.StartID), nil

	case InputNumericID:
		canonical, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid channel id %q", raw)
		}
		return a.resolveNumeric(ctx, canonical)

	default:
		return nil, fmt.Errorf("unrecognized channel reference %q, send a username, id or invite link", raw)
	}
}

// refineFromMessage fetches the linked message and re-derives the chat
// from its parent-chat field, which is authoritative when the link and
// the resolved chat disagree. Falls back to ref on any failure.
func (a *Account) refineFromMessage(ctx context.Context, ref *ChatRef, msgID int) *ChatRef {
	if msgID <= 0 {
		return ref
	}
	msg, err := a.GetMessage(ctx, ref, msgID)
	if err != nil || msg.Empty || msg.PeerRef == nil {
		return ref
	}
	return mergeRefs(ref, msg.PeerRef)
}

// mergeRefs takes the parent-chat identity from the fetched message and
// keeps the resolved title, username and access hash the message peer
// does not carry.
func mergeRefs(resolved, peer *ChatRef) *ChatRef {
	out := *peer
	if out.AccessHash == 0 {
		out.AccessHash = resolved.AccessHash
	}
	if out.Username == "" {
		out.Username = resolved.Username
	}
	if out.Title == "" {
		out.Title = resolved.Title
	}
	return &out
}

// resolveNumeric looks a canonical -100-form id up in the account's
// dialogs. A bare id carries no access hash, so the account must already
// be a member of the channel.
func (a *Account) resolveNumeric(ctx context.Context, canonical int64) (*ChatRef, error) {
	ref, err := a.FindInDialogs(ctx, bareFromCanonical(canonical), "")
	if err != nil {
		return nil, fmt.Errorf("channel %d not found, the account must be a member (send an invite link to join)", canonical)
	}
	return ref, nil
}
