package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gotd/contrib/bg"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"

	"github.com/blockedby/copygram/internal/config"
	"github.com/blockedby/copygram/internal/logger"
)

// ErrPasswordNeeded signals that the account has two-step verification
// enabled and the login needs the cloud password to continue.
var ErrPasswordNeeded = errors.New("two-step verification password required")

// pendingLogin is one in-flight phone verification.
type pendingLogin struct {
	client        *telegram.Client
	stop          bg.StopFunc
	storage       *session.StorageMemory
	phone         string
	phoneCodeHash string
}

func (p *pendingLogin) close() {
	if p.stop != nil {
		_ = p.stop()
		p.stop = nil
	}
}

// LoginFlow drives phone-number authentication step by step, keeping the
// half-authorized client connected between the bot's question turns.
type LoginFlow struct {
	cfg *config.Config
	log *logger.Logger

	mu      sync.Mutex
	pending map[int64]*pendingLogin
}

// NewLoginFlow creates a login flow helper.
func NewLoginFlow(cfg *config.Config) *LoginFlow {
	return &LoginFlow{
		cfg:     cfg,
		log:     logger.Get(),
		pending: make(map[int64]*pendingLogin),
	}
}

// StartPhone connects a fresh client and requests a login code for the
// phone number. Any previous in-flight login for the user is dropped.
func (f *LoginFlow) StartPhone(ctx context.Context, userID int64, phone string) error {
	f.Cancel(userID)

	storage := &session.StorageMemory{}
	client := telegram.NewClient(f.cfg.TGApiID, f.cfg.TGApiHash, telegram.Options{
		SessionStorage: storage,
	})

	stop, err := bg.Connect(client)
	if err != nil {
		return fmt.Errorf("connect for login: %w", err)
	}

	sent, err := client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		_ = stop()
		return fmt.Errorf("send login code: %w", err)
	}

	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		_ = stop()
		return fmt.Errorf("unexpected sent code response %T", sent)
	}

	f.mu.Lock()
	f.pending[userID] = &pendingLogin{
		client:        client,
		stop:          stop,
		storage:       storage,
		phone:         phone,
		phoneCodeHash: code.PhoneCodeHash,
	}
	f.mu.Unlock()

	f.log.Info().Int64("user_id", userID).Msg("telegram: login code sent")
	return nil
}

// SubmitCode completes the login with the code the user received.
// Returns ErrPasswordNeeded when the account requires its 2FA password,
// in which case the flow stays pending and expects SubmitPassword next.
// On success the session string and connected account are returned, and
// the flow entry is consumed.
func (f *LoginFlow) SubmitCode(ctx context.Context, userID int64, code string) (string, *Account, error) {
	p := f.get(userID)
	if p == nil {
		return "", nil, fmt.Errorf("no login in progress")
	}

	_, err := p.client.Auth().SignIn(ctx, p.phone, code, p.phoneCodeHash)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordAuthNeeded) {
			return "", nil, ErrPasswordNeeded
		}
		return "", nil, fmt.Errorf("sign in: %w", err)
	}

	return f.finish(ctx, userID, p)
}

// SubmitPassword completes a login stopped at the 2FA step.
func (f *LoginFlow) SubmitPassword(ctx context.Context, userID int64, password string) (string, *Account, error) {
	p := f.get(userID)
	if p == nil {
		return "", nil, fmt.Errorf("no login in progress")
	}

	if _, err := p.client.Auth().Password(ctx, password); err != nil {
		return "", nil, fmt.Errorf("check password: %w", err)
	}

	return f.finish(ctx, userID, p)
}

// finish exports the session string and rebuilds the account over a
// fresh client so the login client can be torn down cleanly.
func (f *LoginFlow) finish(ctx context.Context, userID int64, p *pendingLogin) (string, *Account, error) {
	sessionString, err := exportSessionString(ctx, p.storage)
	if err != nil {
		f.Cancel(userID)
		return "", nil, err
	}

	status, err := p.client.Auth().Status(ctx)
	if err != nil || !status.Authorized {
		f.Cancel(userID)
		return "", nil, fmt.Errorf("login did not produce an authorized session")
	}

	f.mu.Lock()
	delete(f.pending, userID)
	f.mu.Unlock()

	acc := &Account{
		userID:  userID,
		client:  p.client,
		stop:    p.stop,
		limiter: DefaultRateLimiter(),
		log:     logger.Get(),
		self:    status.User,
	}

	f.log.Info().
		Int64("user_id", userID).
		Str("telegram_user", status.User.Username).
		Msg("telegram: phone login completed")
	return sessionString, acc, nil
}

// Cancel drops any in-flight login for the user.
func (f *LoginFlow) Cancel(userID int64) {
	f.mu.Lock()
	p := f.pending[userID]
	delete(f.pending, userID)
	f.mu.Unlock()

	if p != nil {
		p.close()
	}
}

// Active reports whether a login is waiting for a code or password.
func (f *LoginFlow) Active(userID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[userID] != nil
}

func (f *LoginFlow) get(userID int64) *pendingLogin {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[userID]
}
