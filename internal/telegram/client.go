package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
)

// ResolveUsername resolves a channel username to a chat handle.
// username can be with or without @ prefix.
func (a *Account) ResolveUsername(ctx context.Context, username string) (*ChatRef, error) {
	username = strings.TrimPrefix(username, "@")

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resolved, err := a.API().ContactsResolveUsername(ctx, username)
	if err != nil {
		a.noteFloodWait(err)
		return nil, fmt.Errorf("resolve username %s: %w", username, err)
	}

	if len(resolved.Chats) == 0 {
		return nil, fmt.Errorf("channel not found: %s", username)
	}

	ch, ok := resolved.Chats[0].(*tg.Channel)
	if !ok {
		return nil, fmt.Errorf("not a channel or supergroup: %s", username)
	}

	return &ChatRef{
		ChannelID:  ch.ID,
		AccessHash: ch.AccessHash,
		Username:   username,
		Title:      ch.Title,
	}, nil
}

// FindInDialogs scans the account's dialog list for a channel by bare id
// or username. Used when direct lookup cannot produce an access hash.
func (a *Account) FindInDialogs(ctx context.Context, bareID int64, username string) (*ChatRef, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	dialogs, err := a.API().MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      100,
	})
	if err != nil {
		a.noteFloodWait(err)
		return nil, fmt.Errorf("get dialogs: %w", err)
	}

	var chats []tg.ChatClass
	switch d := dialogs.(type) {
	case *tg.MessagesDialogs:
		chats = d.Chats
	case *tg.MessagesDialogsSlice:
		chats = d.Chats
	default:
		return nil, fmt.Errorf("unexpected dialogs response %T", dialogs)
	}

	for _, chat := range chats {
		ch, ok := chat.(*tg.Channel)
		if !ok {
			continue
		}
		if (bareID != 0 && ch.ID == bareID) ||
			(username != "" && strings.EqualFold(ch.Username, username)) {
			return &ChatRef{
				ChannelID:  ch.ID,
				AccessHash: ch.AccessHash,
				Username:   ch.Username,
				Title:      ch.Title,
			}, nil
		}
	}

	return nil, fmt.Errorf("channel not found in dialogs")
}

// JoinByInvite joins a channel through an invite hash. Joining is a side
// effect this call cannot undo. When the account is already a member it
// falls back to invite inspection, then to a dialog scan.
func (a *Account) JoinByInvite(ctx context.Context, inviteHash string) (*ChatRef, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	updates, err := a.API().MessagesImportChatInvite(ctx, inviteHash)
	if err == nil {
		if ref := chatRefFromUpdates(updates); ref != nil {
			return ref, nil
		}
		return nil, fmt.Errorf("joined but could not identify the channel")
	}
	a.noteFloodWait(err)

	msg := err.Error()
	switch {
	case strings.Contains(msg, "USER_ALREADY_PARTICIPANT"):
		return a.lookupInvite(ctx, inviteHash)
	case strings.Contains(msg, "INVITE_HASH_EXPIRED"):
		return nil, fmt.Errorf("invitation link has expired")
	case strings.Contains(msg, "INVITE_HASH_INVALID"):
		return nil, fmt.Errorf("invalid invitation link")
	}
	return nil, fmt.Errorf("join channel: %w", err)
}

// lookupInvite inspects an invite the account already accepted. When
// the invite cannot be checked directly it scans the dialog list for a
// channel whose exported invite link carries the same hash.
func (a *Account) lookupInvite(ctx context.Context, inviteHash string) (*ChatRef, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	invite, err := a.API().MessagesCheckChatInvite(ctx, inviteHash)
	if err != nil {
		a.noteFloodWait(err)
	} else if already, ok := invite.(*tg.ChatInviteAlready); ok {
		if ch, ok := already.Chat.(*tg.Channel); ok {
			return &ChatRef{
				ChannelID:  ch.ID,
				AccessHash: ch.AccessHash,
				Username:   ch.Username,
				Title:      ch.Title,
			}, nil
		}
		return nil, fmt.Errorf("invite does not point to a channel or supergroup")
	}

	ref, scanErr := findByInviteHash(ctx, a.API(), inviteHash)
	if scanErr != nil {
		return nil, fmt.Errorf("could not find the channel, try its username or id instead")
	}
	return ref, nil
}

// inviteSearcher is the api subset the invite dialog scan needs.
type inviteSearcher interface {
	MessagesGetDialogs(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)
	MessagesExportChatInvite(ctx context.Context, request *tg.MessagesExportChatInviteRequest) (tg.ExportedChatInviteClass, error)
}

// findByInviteHash walks the account's dialogs and matches channels by
// invite-link equality. Exporting fails where the account is not an
// admin; those dialogs are skipped, not fatal.
func findByInviteHash(ctx context.Context, api inviteSearcher, inviteHash string) (*ChatRef, error) {
	dialogs, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      100,
	})
	if err != nil {
		return nil, fmt.Errorf("get dialogs: %w", err)
	}

	var chats []tg.ChatClass
	switch d := dialogs.(type) {
	case *tg.MessagesDialogs:
		chats = d.Chats
	case *tg.MessagesDialogsSlice:
		chats = d.Chats
	default:
		return nil, fmt.Errorf("unexpected dialogs response %T", dialogs)
	}

	for _, chat := range chats {
		ch, ok := chat.(*tg.Channel)
		if !ok {
			continue
		}
		exported, err := api.MessagesExportChatInvite(ctx, &tg.MessagesExportChatInviteRequest{
			Peer: &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash},
		})
		if err != nil {
			continue
		}
		link, ok := exported.(*tg.ChatInviteExported)
		if !ok || !strings.Contains(link.Link, inviteHash) {
			continue
		}
		return &ChatRef{
			ChannelID:  ch.ID,
			AccessHash: ch.AccessHash,
			Username:   ch.Username,
			Title:      ch.Title,
		}, nil
	}
	return nil, fmt.Errorf("channel not found in dialogs")
}

// GetMessage fetches one message by id from a channel. A missing or
// deleted message is reported via Message.Empty, not an error.
func (a *Account) GetMessage(ctx context.Context, ref *ChatRef, msgID int) (*Message, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := a.API().ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
		Channel: ref.InputChannel(),
		ID:      []tg.InputMessageClass{&tg.InputMessageID{ID: msgID}},
	})
	if err != nil {
		a.noteFloodWait(err)
		return nil, fmt.Errorf("get message %d: %w", msgID, err)
	}

	var raw []tg.MessageClass
	switch r := res.(type) {
	case *tg.MessagesChannelMessages:
		raw = r.Messages
	case *tg.MessagesMessages:
		raw = r.Messages
	default:
		return nil, fmt.Errorf("unexpected messages response %T", res)
	}
	if len(raw) == 0 {
		return &Message{ID: msgID, Empty: true}, nil
	}

	msg, ok := raw[0].(*tg.Message)
	if !ok {
		// MessageEmpty or a service message - nothing to copy
		return &Message{ID: msgID, Empty: true}, nil
	}

	out := &Message{
		ID:   msg.ID,
		Date: time.Unix(int64(msg.Date), 0),
		Text: msg.Message,
	}
	if peer, ok := msg.PeerID.(*tg.PeerChannel); ok {
		out.PeerRef = &ChatRef{ChannelID: peer.ChannelID, AccessHash: ref.AccessHash}
	}
	if msg.Media != nil {
		out.Media = classifyMedia(msg.Media)
	}
	return out, nil
}

// LatestMessageID returns the id of the newest message in a channel,
// for the "copy whole channel" range shortcut.
func (a *Account) LatestMessageID(ctx context.Context, ref *ChatRef) (int, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	history, err := a.API().MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  ref.InputPeer(),
		Limit: 1,
	})
	if err != nil {
		a.noteFloodWait(err)
		return 0, fmt.Errorf("get history: %w", err)
	}

	var raw []tg.MessageClass
	switch h := history.(type) {
	case *tg.MessagesChannelMessages:
		raw = h.Messages
	case *tg.MessagesMessages:
		raw = h.Messages
	}
	for _, m := range raw {
		if msg, ok := m.(*tg.Message); ok {
			return msg.ID, nil
		}
	}
	return 0, fmt.Errorf("channel has no messages")
}

// SendText sends a plain text message to the peer.
func (a *Account) SendText(ctx context.Context, peer tg.InputPeerClass, text string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	sender := message.NewSender(a.API())
	if _, err := sender.To(peer).Text(ctx, text); err != nil {
		a.noteFloodWait(err)
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

// SelfPeer returns the peer for the user's own saved-messages chat.
func (a *Account) SelfPeer() tg.InputPeerClass {
	return &tg.InputPeerSelf{}
}

// chatRefFromUpdates extracts the first channel from an updates response.
func chatRefFromUpdates(updates tg.UpdatesClass) *ChatRef {
	var chats []tg.ChatClass
	switch u := updates.(type) {
	case *tg.Updates:
		chats = u.Chats
	case *tg.UpdatesCombined:
		chats = u.Chats
	default:
		return nil
	}
	for _, chat := range chats {
		if ch, ok := chat.(*tg.Channel); ok {
			return &ChatRef{
				ChannelID:  ch.ID,
				AccessHash: ch.AccessHash,
				Username:   ch.Username,
				Title:      ch.Title,
			}
		}
	}
	return nil
}

// noteFloodWait parses FLOOD_WAIT errors and arms the limiter backoff.
// gotd errors are usually wrapped, the error string is the most reliable
// signal without deep coupling to the tg error definitions.
func (a *Account) noteFloodWait(err error) {
	if err == nil {
		return
	}
	str := err.Error()
	if !strings.Contains(str, "FLOOD_WAIT_") {
		return
	}
	var seconds int
	parts := strings.Split(str, "FLOOD_WAIT_")
	if len(parts) > 1 {
		_, _ = fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &seconds)
	}
	if seconds > 0 {
		a.log.Warn().Int("wait_seconds", seconds).Msg("telegram: FLOOD_WAIT, backing off")
		a.limiter.SetFloodWait(seconds)
	}
}
