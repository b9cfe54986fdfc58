package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/blockedby/copygram/internal/session"
	"github.com/blockedby/copygram/internal/telegram"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// acknowledge first so the client stops the spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Debug().Err(err).Msg("bot: callback ack failed")
	}
	if cb.Message == nil {
		return
	}

	userID := cb.From.ID
	chatID := cb.Message.Chat.ID

	switch cb.Data {
	case cbMainMenu:
		_ = b.sessions.Update(userID, func(s *session.Session) { s.State = session.StateMainMenu })
		b.sendMainMenu(userID, chatID)

	case cbSetSource:
		b.askState(userID, chatID, session.StateAwaitingSource,
			"Send the source channel: @username, id, or invite link.")

	case cbSetTarget:
		b.askState(userID, chatID, session.StateAwaitingTarget,
			"Send the target channel: @username, id, or invite link. Your account must be able to post there.")

	case cbSetRange:
		b.replyKb(chatID, "How do you want to pick the messages?", rangeKeyboard())

	case cbCopyAll:
		b.rangeCopyAll(ctx, userID, chatID)

	case cbRangeManual:
		b.askState(userID, chatID, session.StateAwaitingRange,
			"Send the range as start-end, e.g. 1-500.")

	case cbRangeLinks:
		b.askState(userID, chatID, session.StateAwaitingStartLink,
			"Send the link of the FIRST message to copy.")

	case cbStartCopy:
		b.startChannelCopy(ctx, userID, chatID)

	case cbCancelCopy:
		if b.jobs.Cancel(userID) {
			b.reply(chatID, "Stopping the copy job after the current message...")
		} else {
			b.reply(chatID, "No copy job is running.")
		}

	case cbPersonalCopy:
		b.askState(userID, chatID, session.StateAwaitingPersonal,
			"Send a message link to copy into your saved messages. A t.me link range (/6-10) works too.")

	case cbSessionMenu:
		sess := b.sessions.Get(userID)
		b.replyKb(chatID, "Session menu:", sessionMenuKeyboard(sess.SessionString != ""))

	case cbPhoneLogin:
		b.askState(userID, chatID, session.StateAwaitingPhone,
			"Send your phone number in international format, e.g. +20123456789.")

	case cbStringLogin:
		b.askState(userID, chatID, session.StateAwaitingSession,
			"Paste your session string. Generate one with the tg-auth tool if you don't have it.")

	case cbSessionInfo:
		b.sendSessionInfo(ctx, userID, chatID)

	case cbDeleteSession:
		b.deleteSession(userID, chatID)

	case cbMyStats:
		b.sendStats(ctx, userID, chatID)

	case cbVIP:
		b.replyKb(chatID, vipText(b.plans), vipKeyboard(b.plans))

	case cbPayment:
		b.replyKb(chatID, paymentText(b.plans), backKeyboard())

	case cbHelp:
		b.replyKb(chatID, helpText, backKeyboard())

	case cbAdmin:
		if b.isOwner(userID) {
			b.replyKb(chatID, "Admin panel:", adminKeyboard())
		}

	case cbAdminPromote:
		if b.isOwner(userID) {
			b.askState(userID, chatID, session.StateAwaitingVIPPromote, "Send the user id to promote to VIP.")
		}

	case cbAdminDemote:
		if b.isOwner(userID) {
			b.askState(userID, chatID, session.StateAwaitingVIPDemote, "Send the user id to demote from VIP.")
		}

	case cbAdminLimit:
		if b.isOwner(userID) {
			b.askState(userID, chatID, session.StateAwaitingFreeLimit,
				"Send the new free message limit. All free counters will reset.")
		}

	case cbAdminBcast:
		if b.isOwner(userID) {
			b.askState(userID, chatID, session.StateAwaitingBroadcast, "Send the broadcast text.")
		}

	case cbAdminLookup:
		if b.isOwner(userID) {
			b.askState(userID, chatID, session.StateAwaitingUserLookup, "Send the user id to look up.")
		}
	}
}

// askState moves the user to an input state and prompts for the value.
func (b *Bot) askState(userID, chatID int64, state, prompt string) {
	_ = b.sessions.Update(userID, func(s *session.Session) { s.State = state })
	b.replyKb(chatID, prompt, backKeyboard())
}

// rangeCopyAll resolves the source channel's newest message id and sets
// the range to cover everything.
func (b *Bot) rangeCopyAll(ctx context.Context, userID, chatID int64) {
	sess := b.sessions.Get(userID)
	if sess.SourceChannel == "" {
		b.reply(chatID, "Set the source channel first.")
		return
	}

	acc, err := b.account(ctx, userID, chatID)
	if err != nil {
		return
	}

	ref, err := acc.Resolve(ctx, sess.SourceChannel)
	if err != nil {
		b.reply(chatID, "Could not open the source channel: "+err.Error())
		return
	}

	latest, err := acc.LatestMessageID(ctx, ref)
	if err != nil {
		b.reply(chatID, "Could not read the channel history: "+err.Error())
		return
	}

	_ = b.sessions.Update(userID, func(s *session.Session) {
		s.StartMsgID = 1
		s.EndMsgID = latest
		s.State = session.StateMainMenu
	})
	b.reply(chatID, fmt.Sprintf("Range set: 1-%d (whole channel).", latest))
	b.sendMainMenu(userID, chatID)
}

// account fetches the user's connected account, telling them to log in
// when there is none. The error is already reported to the chat.
func (b *Bot) account(ctx context.Context, userID, chatID int64) (*telegram.Account, error) {
	acc, err := b.accounts.Client(ctx, userID)
	if err != nil {
		b.log.Warn().Err(err).Int64("user_id", userID).Msg("bot: no usable account")
		b.replyKb(chatID, "You need to log in with your own Telegram account first.", sessionMenuKeyboard(false))
		return nil, err
	}
	return acc, nil
}

func (b *Bot) sendSessionInfo(ctx context.Context, userID, chatID int64) {
	sess := b.sessions.Get(userID)
	if sess.SessionString == "" {
		b.reply(chatID, "No session stored.")
		return
	}

	acc, err := b.accounts.Client(ctx, userID)
	if err != nil {
		b.reply(chatID, "A session string is stored but connecting with it failed. Log in again.")
		return
	}

	self := acc.Self()
	b.replyKb(chatID, fmt.Sprintf(
		"Logged in as: %s %s (@%s)\nTelegram id: %d",
		self.FirstName, self.LastName, self.Username, self.ID,
	), backKeyboard())
}

func (b *Bot) deleteSession(userID, chatID int64) {
	b.accounts.Disconnect(userID)
	b.login.Cancel(userID)
	if err := b.sessions.Clear(userID); err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Msg("bot: session clear failed")
	}
	b.reply(chatID, "Session deleted. Log in again to keep copying.")
}

func (b *Bot) sendStats(ctx context.Context, userID, chatID int64) {
	stats, err := b.users.Stats(ctx, userID)
	if err != nil {
		b.reply(chatID, "Could not load your stats.")
		return
	}

	tier := "Free"
	switch {
	case stats.IsOwner:
		tier = "Owner"
	case stats.IsVIP:
		tier = "VIP"
	}

	text := fmt.Sprintf("Tier: %s\nMessages copied: %d", tier, stats.MessageCount)
	if !stats.Privileged() {
		text += fmt.Sprintf("\nRemaining: %d of %d", stats.Remaining(), stats.MessageLimit)
	}
	b.replyKb(chatID, text, backKeyboard())
}
