// Package bot is the Telegram bot surface: commands, inline keyboards
// and the per-user input state machine that collects copy parameters.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/blockedby/copygram/internal/config"
	"github.com/blockedby/copygram/internal/copier"
	"github.com/blockedby/copygram/internal/logger"
	"github.com/blockedby/copygram/internal/repository"
	"github.com/blockedby/copygram/internal/session"
	"github.com/blockedby/copygram/internal/telegram"
)

// Bot wires the bot API to the copy machinery.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	plans    *config.Plans
	users    *repository.UsersRepository
	sessions session.Store
	accounts *telegram.Manager
	login    *telegram.LoginFlow
	jobs     *copier.Manager
	log      *logger.Logger
}

// New connects to the bot API and assembles the bot.
func New(
	cfg *config.Config,
	plans *config.Plans,
	users *repository.UsersRepository,
	sessions session.Store,
	accounts *telegram.Manager,
	login *telegram.LoginFlow,
	jobs *copier.Manager,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}

	b := &Bot{
		api:      api,
		cfg:      cfg,
		plans:    plans,
		users:    users,
		sessions: sessions,
		accounts: accounts,
		login:    login,
		jobs:     jobs,
		log:      logger.Get(),
	}

	b.log.Info().Str("bot", api.Self.UserName).Msg("bot: connected")
	return b, nil
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("bot: handler panicked")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil && update.Message.Text != "":
		b.handleText(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	if _, err := b.users.GetOrCreate(ctx, userID, msg.From.UserName); err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Msg("bot: user upsert failed")
	}

	switch msg.Command() {
	case "start":
		// /start resets copy parameters but keeps the credential
		_ = b.sessions.Update(userID, func(s *session.Session) {
			s.ResetCopyConfig()
		})
		b.sendMainMenu(userID, msg.Chat.ID)

	case "stop":
		if b.jobs.Cancel(userID) {
			b.reply(msg.Chat.ID, "Stopping the copy job after the current message...")
		} else {
			b.reply(msg.Chat.ID, "No copy job is running.")
		}

	case "help":
		b.reply(msg.Chat.ID, helpText)

	default:
		b.reply(msg.Chat.ID, "Unknown command. Use /start.")
	}
}

// reply sends plain text without a keyboard.
func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("bot: send failed")
	}
}

// replyKb sends text with an inline keyboard.
func (b *Bot) replyKb(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("bot: send failed")
	}
}

func (b *Bot) sendMainMenu(userID, chatID int64) {
	sess := b.sessions.Get(userID)
	text := "What do you want to do?\n\n" + b.copySetupSummary(sess)
	b.replyKb(chatID, text, mainMenuKeyboard(sess.SessionString != "", b.isOwner(userID)))
}

func (b *Bot) copySetupSummary(sess *session.Session) string {
	source := sess.SourceTitle
	if source == "" {
		source = "not set"
	}
	target := sess.TargetTitle
	if target == "" {
		target = "not set"
	}
	rng := "not set"
	if sess.StartMsgID > 0 && sess.EndMsgID > 0 {
		rng = fmt.Sprintf("%d-%d", sess.StartMsgID, sess.EndMsgID)
	}
	return fmt.Sprintf("Source: %s\nTarget: %s\nRange: %s", source, target, rng)
}

func (b *Bot) isOwner(userID int64) bool {
	if userID == b.cfg.OwnerID {
		return true
	}
	user, err := b.users.Get(context.Background(), userID)
	return err == nil && user != nil && user.IsOwner
}

const helpText = `How to use the bot:

1. Log in with your own Telegram account (Session menu).
2. Set the source channel: username, id, or invite link.
3. Set the target channel the same way. Your account must be able to post there.
4. Pick the message range: "Copy all", a start-end pair, or message links.
5. Start the copy and watch the progress. /stop cancels it.

Free accounts have a message limit; VIP removes it.`
