package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/blockedby/copygram/internal/logger"
)

// StatusMessage edits one bot message in place with progress text.
// The copier spaces its pushes out, so every Update maps to one edit.
type StatusMessage struct {
	api       *tgbotapi.BotAPI
	chatID    int64
	messageID int
	lastText  string
	log       *logger.Logger
}

// NewStatusMessage sends the initial status line and returns the
// editable handle.
func NewStatusMessage(api *tgbotapi.BotAPI, chatID int64, text string) (*StatusMessage, error) {
	sent, err := api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return nil, err
	}
	return &StatusMessage{
		api:       api,
		chatID:    chatID,
		messageID: sent.MessageID,
		lastText:  text,
		log:       logger.Get(),
	}, nil
}

// Update replaces the status text. Identical text is skipped - the bot
// api rejects no-op edits.
func (s *StatusMessage) Update(text string) {
	if text == "" || text == s.lastText {
		return
	}
	s.lastText = text

	edit := tgbotapi.NewEditMessageText(s.chatID, s.messageID, text)
	if _, err := s.api.Send(edit); err != nil {
		s.log.Debug().Err(err).Int64("chat_id", s.chatID).Msg("bot: status edit failed")
	}
}
