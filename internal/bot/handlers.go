package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/blockedby/copygram/internal/copier"
	"github.com/blockedby/copygram/internal/session"
	"github.com/blockedby/copygram/internal/telegram"
)

// handleText interprets a plain text message according to the user's
// conversation state.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	sess := b.sessions.Get(userID)

	switch sess.State {
	case session.StateAwaitingPhone:
		b.onPhone(ctx, userID, chatID, text)
	case session.StateAwaitingCode:
		b.onCode(ctx, userID, chatID, text)
	case session.StateAwaitingPassword:
		b.onPassword(ctx, userID, chatID, text)
	case session.StateAwaitingSession:
		b.onSessionString(ctx, userID, chatID, text)
	case session.StateAwaitingSource:
		b.onChannel(ctx, userID, chatID, text, true)
	case session.StateAwaitingTarget:
		b.onChannel(ctx, userID, chatID, text, false)
	case session.StateAwaitingRange:
		b.onRange(userID, chatID, text)
	case session.StateAwaitingStartLink:
		b.onRangeLink(userID, chatID, text, true)
	case session.StateAwaitingEndLink:
		b.onRangeLink(userID, chatID, text, false)
	case session.StateAwaitingPersonal:
		b.onPersonalLink(ctx, userID, chatID, text)
	case session.StateAwaitingVIPPromote:
		b.onVIPChange(ctx, userID, chatID, text, true)
	case session.StateAwaitingVIPDemote:
		b.onVIPChange(ctx, userID, chatID, text, false)
	case session.StateAwaitingFreeLimit:
		b.onFreeLimit(ctx, userID, chatID, text)
	case session.StateAwaitingBroadcast:
		b.onBroadcast(ctx, userID, chatID, text)
	case session.StateAwaitingUserLookup:
		b.onUserLookup(ctx, userID, chatID, text)
	default:
		b.sendMainMenu(userID, chatID)
	}
}

// --- login states ---

func (b *Bot) onPhone(ctx context.Context, userID, chatID int64, phone string) {
	if !strings.HasPrefix(phone, "+") || len(phone) < 8 {
		b.reply(chatID, "That does not look like a phone number. Use international format, e.g. +20123456789.")
		return
	}

	if err := b.login.StartPhone(ctx, userID, phone); err != nil {
		b.log.Warn().Err(err).Int64("user_id", userID).Msg("bot: send code failed")
		b.reply(chatID, "Could not send the login code: "+err.Error())
		return
	}

	_ = b.sessions.Update(userID, func(s *session.Session) {
		s.Phone = phone
		s.State = session.StateAwaitingCode
	})
	b.reply(chatID, "Code sent. Reply with the login code you received in Telegram.")
}

func (b *Bot) onCode(ctx context.Context, userID, chatID int64, code string) {
	// Telegram invalidates codes pasted verbatim into other chats, so
	// users commonly separate digits with spaces or dashes.
	code = strings.NewReplacer(" ", "", "-", "").Replace(code)

	sessionString, acc, err := b.login.SubmitCode(ctx, userID, code)
	if errors.Is(err, telegram.ErrPasswordNeeded) {
		_ = b.sessions.Update(userID, func(s *session.Session) { s.State = session.StateAwaitingPassword })
		b.reply(chatID, "Two-step verification is enabled. Send your cloud password.")
		return
	}
	if err != nil {
		b.reply(chatID, "Login failed: "+err.Error())
		return
	}

	b.finishLogin(userID, chatID, sessionString, acc)
}

func (b *Bot) onPassword(ctx context.Context, userID, chatID int64, password string) {
	sessionString, acc, err := b.login.SubmitPassword(ctx, userID, password)
	if err != nil {
		b.reply(chatID, "Login failed: "+err.Error())
		return
	}
	b.finishLogin(userID, chatID, sessionString, acc)
}

func (b *Bot) finishLogin(userID, chatID int64, sessionString string, acc *telegram.Account) {
	b.accounts.Adopt(userID, acc)
	_ = b.sessions.Update(userID, func(s *session.Session) {
		s.SessionString = sessionString
		s.Phone = ""
		s.PhoneCodeHash = ""
		s.State = session.StateMainMenu
	})
	b.reply(chatID, fmt.Sprintf("Logged in as @%s. You can set up a copy now.", acc.Self().Username))
	b.sendMainMenu(userID, chatID)
}

func (b *Bot) onSessionString(ctx context.Context, userID, chatID int64, raw string) {
	acc, err := b.accounts.ConnectWithString(ctx, userID, raw)
	if err != nil {
		b.log.Warn().Err(err).Int64("user_id", userID).Msg("bot: session string rejected")
		b.reply(chatID, "That session string did not work. Generate a fresh one and try again.")
		return
	}

	_ = b.sessions.Update(userID, func(s *session.Session) {
		s.SessionString = raw
		s.State = session.StateMainMenu
	})
	b.reply(chatID, fmt.Sprintf("Logged in as @%s.", acc.Self().Username))
	b.sendMainMenu(userID, chatID)
}

// --- copy setup states ---

func (b *Bot) onChannel(ctx context.Context, userID, chatID int64, raw string, isSource bool) {
	acc, err := b.account(ctx, userID, chatID)
	if err != nil {
		return
	}

	ref, err := acc.Resolve(ctx, raw)
	if err != nil {
		b.reply(chatID, "Could not resolve the channel: "+err.Error())
		return
	}

	canonical := strconv.FormatInt(ref.Canonical(), 10)
	title := ref.Title
	if title == "" {
		title = canonical
	}

	_ = b.sessions.Update(userID, func(s *session.Session) {
		if isSource {
			s.SourceChannel = canonical
			s.SourceTitle = title
		} else {
			s.TargetChannel = canonical
			s.TargetTitle = title
		}
		s.State = session.StateMainMenu
	})

	role := "Target"
	if isSource {
		role = "Source"
	}
	b.reply(chatID, fmt.Sprintf("%s channel set: %s", role, title))
	b.sendMainMenu(userID, chatID)
}

func (b *Bot) onRange(userID, chatID int64, raw string) {
	start, end, ok := telegram.ParseMessageRange(raw)
	if !ok {
		b.reply(chatID, "Send the range as start-end, e.g. 1-500.")
		return
	}

	_ = b.sessions.Update(userID, func(s *session.Session) {
		s.StartMsgID = start
		s.EndMsgID = end
		s.State = session.StateMainMenu
	})
	b.reply(chatID, fmt.Sprintf("Range set: %d-%d.", start, end))
	b.sendMainMenu(userID, chatID)
}

func (b *Bot) onRangeLink(userID, chatID int64, raw string, isStart bool) {
	link := telegram.ParseMessageLink(raw)
	if link == nil {
		b.reply(chatID, "That is not a message link. Open the message in Telegram and copy its link.")
		return
	}

	if isStart {
		_ = b.sessions.Update(userID, func(s *session.Session) {
			s.StartMsgID = link.StartID
			s.State = session.StateAwaitingEndLink
		})
		b.reply(chatID, "Start set. Now send the link of the LAST message to copy.")
		return
	}

	var start, end int
	_ = b.sessions.Update(userID, func(s *session.Session) {
		start, end = s.StartMsgID, link.StartID
		if start > end {
			start, end = end, start
		}
		s.StartMsgID = start
		s.EndMsgID = end
		s.State = session.StateMainMenu
	})
	b.reply(chatID, fmt.Sprintf("Range set: %d-%d.", start, end))
	b.sendMainMenu(userID, chatID)
}

// --- starting jobs ---

func (b *Bot) startChannelCopy(ctx context.Context, userID, chatID int64) {
	sess := b.sessions.Get(userID)
	if !sess.HasCopyConfig() {
		b.reply(chatID, "Set the source, target and range first.")
		b.sendMainMenu(userID, chatID)
		return
	}

	acc, err := b.account(ctx, userID, chatID)
	if err != nil {
		return
	}

	source, err := acc.Resolve(ctx, sess.SourceChannel)
	if err != nil {
		b.reply(chatID, "Could not open the source channel: "+err.Error())
		return
	}
	target, err := acc.Resolve(ctx, sess.TargetChannel)
	if err != nil {
		b.reply(chatID, "Could not open the target channel: "+err.Error())
		return
	}

	req := copier.Request{
		UserID:    userID,
		Source:    source,
		Dest:      target.InputPeer(),
		StartID:   sess.StartMsgID,
		EndID:     sess.EndMsgID,
		DestLabel: sess.TargetTitle,
	}
	b.launch(ctx, userID, chatID, acc, req)
}

func (b *Bot) onPersonalLink(ctx context.Context, userID, chatID int64, raw string) {
	link := telegram.ParseMessageLink(raw)
	if link == nil {
		b.reply(chatID, "That is not a message link.")
		return
	}

	acc, err := b.account(ctx, userID, chatID)
	if err != nil {
		return
	}

	var source *telegram.ChatRef
	if link.Username != "" {
		source, err = acc.Resolve(ctx, link.Username)
	} else {
		source, err = acc.Resolve(ctx, strconv.FormatInt(link.ChannelID, 10))
	}
	if err != nil {
		b.reply(chatID, "Could not open the channel: "+err.Error())
		return
	}

	_ = b.sessions.Update(userID, func(s *session.Session) { s.State = session.StateMainMenu })

	req := copier.Request{
		UserID:    userID,
		Source:    source,
		Dest:      acc.SelfPeer(),
		StartID:   link.StartID,
		EndID:     link.EndID,
		DestLabel: "Saved Messages",
	}
	b.launch(ctx, userID, chatID, acc, req)
}

func (b *Bot) launch(ctx context.Context, userID, chatID int64, acc *telegram.Account, req copier.Request) {
	stats, err := b.users.Stats(ctx, userID)
	if err == nil && stats.Exhausted() {
		b.replyKb(chatID, "You reached the free message limit. Upgrade to VIP to continue.", vipKeyboard(b.plans))
		return
	}

	status, err := NewStatusMessage(b.api, chatID, fmt.Sprintf("Starting copy of %d messages...", req.Total()))
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("bot: status message failed")
		return
	}

	_, err = b.jobs.Start(ctx, acc, req, status, func(_ *copier.Result, err error) {
		if err != nil {
			b.reply(chatID, "Copy failed: "+err.Error())
		}
	})
	if errors.Is(err, copier.ErrAlreadyRunning) {
		b.reply(chatID, "You already have a copy job running. /stop cancels it.")
		return
	}
	if err != nil {
		b.reply(chatID, "Could not start the copy: "+err.Error())
	}
}

// --- owner states ---

func (b *Bot) onVIPChange(ctx context.Context, userID, chatID int64, raw string, promote bool) {
	if !b.isOwner(userID) {
		return
	}

	target, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		b.reply(chatID, "Send a numeric user id.")
		return
	}

	if err := b.users.SetVIPStatus(ctx, target, promote); err != nil {
		b.reply(chatID, "Update failed: "+err.Error())
		return
	}

	_ = b.sessions.Update(userID, func(s *session.Session) { s.State = session.StateMainMenu })
	if promote {
		b.reply(chatID, fmt.Sprintf("User %d is now VIP.", target))
		b.notify(target, "⭐ You were upgraded to VIP. The message limit no longer applies to you.")
	} else {
		b.reply(chatID, fmt.Sprintf("User %d is no longer VIP.", target))
	}
}

func (b *Bot) onFreeLimit(ctx context.Context, userID, chatID int64, raw string) {
	if !b.isOwner(userID) {
		return
	}

	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		b.reply(chatID, "Send a positive number.")
		return
	}

	if err := b.users.SetFreeLimit(ctx, limit); err != nil {
		b.reply(chatID, "Update failed: "+err.Error())
		return
	}
	reset, err := b.users.ResetAllFreeCounts(ctx)
	if err != nil {
		b.reply(chatID, "Limit saved but counter reset failed: "+err.Error())
		return
	}

	_ = b.sessions.Update(userID, func(s *session.Session) { s.State = session.StateMainMenu })
	b.reply(chatID, fmt.Sprintf("Free limit set to %d, counters reset for %d users.", limit, reset))
}

func (b *Bot) onBroadcast(ctx context.Context, userID, chatID int64, text string) {
	if !b.isOwner(userID) {
		return
	}

	ids, err := b.users.AllUserIDs(ctx)
	if err != nil {
		b.reply(chatID, "Could not list users: "+err.Error())
		return
	}

	sent := 0
	for _, id := range ids {
		if id == userID {
			continue
		}
		if _, err := b.api.Send(tgbotapi.NewMessage(id, text)); err == nil {
			sent++
		}
	}

	_ = b.sessions.Update(userID, func(s *session.Session) { s.State = session.StateMainMenu })
	b.reply(chatID, fmt.Sprintf("Broadcast delivered to %d of %d users.", sent, len(ids)))
}

func (b *Bot) onUserLookup(ctx context.Context, userID, chatID int64, raw string) {
	if !b.isOwner(userID) {
		return
	}

	target, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		b.reply(chatID, "Send a numeric user id.")
		return
	}

	stats, err := b.users.Stats(ctx, target)
	if err != nil {
		b.reply(chatID, "Lookup failed: "+err.Error())
		return
	}

	tier := "Free"
	switch {
	case stats.IsOwner:
		tier = "Owner"
	case stats.IsVIP:
		tier = "VIP"
	}

	_ = b.sessions.Update(userID, func(s *session.Session) { s.State = session.StateMainMenu })
	b.reply(chatID, fmt.Sprintf("User %d\nTier: %s\nCopied: %d\nLimit: %d",
		target, tier, stats.MessageCount, stats.MessageLimit))
}

// notify best-effort messages a user outside any conversation flow.
func (b *Bot) notify(userID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		b.log.Debug().Err(err).Int64("user_id", userID).Msg("bot: notify failed")
	}
}
