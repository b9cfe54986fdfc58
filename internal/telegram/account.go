package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gotd/contrib/bg"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"

	"github.com/blockedby/copygram/internal/config"
	"github.com/blockedby/copygram/internal/logger"
)

// ErrNoSession is returned when a user has no stored credential and no
// connected account.
var ErrNoSession = errors.New("no active session")

// Account is one user's connected MTProto client.
type Account struct {
	userID  int64
	client  *telegram.Client
	stop    bg.StopFunc
	limiter *RateLimiter
	log     *logger.Logger

	self *tg.User
}

// API returns the raw tg.Client for direct api calls.
func (a *Account) API() *tg.Client {
	return a.client.API()
}

// Self returns the authenticated user, as verified at connect time.
func (a *Account) Self() *tg.User {
	return a.self
}

// Close disconnects the account.
func (a *Account) Close() {
	if a.stop != nil {
		if err := a.stop(); err != nil {
			a.log.Warn().Err(err).Int64("user_id", a.userID).Msg("telegram: account stop failed")
		}
		a.stop = nil
	}
}

// RateFunc decides the api pacing for a user, in requests per second.
type RateFunc func(userID int64) float64

// SessionStrings provides stored credentials for reconnecting accounts.
type SessionStrings interface {
	SessionString(userID int64) string
}

// Manager is the registry of connected user accounts. Accounts are created
// on first use from the stored session string and removed on logout.
type Manager struct {
	cfg      *config.Config
	rateFor  RateFunc
	sessions SessionStrings
	log      *logger.Logger

	mu       sync.Mutex
	accounts map[int64]*Account
}

// NewManager creates an account manager.
func NewManager(cfg *config.Config, sessions SessionStrings, rateFor RateFunc) *Manager {
	return &Manager{
		cfg:      cfg,
		rateFor:  rateFor,
		sessions: sessions,
		log:      logger.Get(),
		accounts: make(map[int64]*Account),
	}
}

// Client returns the user's connected account, restoring it from the
// stored session string when needed. Returns ErrNoSession when the user
// has never authenticated.
func (m *Manager) Client(ctx context.Context, userID int64) (*Account, error) {
	m.mu.Lock()
	if acc, ok := m.accounts[userID]; ok {
		m.mu.Unlock()
		// verify the connection still works before handing it out
		if _, err := acc.API().UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUserSelf{}}); err == nil {
			return acc, nil
		}
		m.log.Warn().Int64("user_id", userID).Msg("telegram: cached account is stale, reconnecting")
		m.Disconnect(userID)
	} else {
		m.mu.Unlock()
	}

	sessionString := m.sessions.SessionString(userID)
	if sessionString == "" {
		return nil, ErrNoSession
	}

	acc, err := m.connect(ctx, userID, sessionString)
	if err != nil {
		return nil, err
	}

	m.Adopt(userID, acc)
	return acc, nil
}

// ConnectWithString connects and registers an account from a pasted
// session string, used when a user imports a credential directly.
func (m *Manager) ConnectWithString(ctx context.Context, userID int64, sessionString string) (*Account, error) {
	acc, err := m.connect(ctx, userID, sessionString)
	if err != nil {
		return nil, err
	}
	m.Adopt(userID, acc)
	return acc, nil
}

// Adopt registers an already-connected account for a user, replacing and
// closing any previous one. Used after a completed phone login.
func (m *Manager) Adopt(userID int64, acc *Account) {
	m.mu.Lock()
	prev := m.accounts[userID]
	m.accounts[userID] = acc
	m.mu.Unlock()

	if prev != nil && prev != acc {
		prev.Close()
	}
}

// Disconnect closes and forgets the user's account, keeping the credential.
func (m *Manager) Disconnect(userID int64) {
	m.mu.Lock()
	acc := m.accounts[userID]
	delete(m.accounts, userID)
	m.mu.Unlock()

	if acc != nil {
		acc.Close()
	}
}

// StopAll disconnects every account, for shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	accounts := make([]*Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		accounts = append(accounts, acc)
	}
	m.accounts = make(map[int64]*Account)
	m.mu.Unlock()

	for _, acc := range accounts {
		acc.Close()
	}
}

// connect builds and connects a client from a stored session string.
func (m *Manager) connect(ctx context.Context, userID int64, sessionString string) (*Account, error) {
	storage, err := seededStorage(ctx, sessionString)
	if err != nil {
		return nil, fmt.Errorf("restore session for %d: %w", userID, err)
	}

	acc, err := m.connectWithStorage(ctx, userID, storage)
	if err != nil {
		return nil, err
	}

	m.log.Info().
		Int64("user_id", userID).
		Str("telegram_user", acc.self.Username).
		Msg("telegram: account restored from session string")
	return acc, nil
}

// connectWithStorage connects a client over the given session storage and
// verifies authorization.
func (m *Manager) connectWithStorage(ctx context.Context, userID int64, storage session.Storage) (*Account, error) {
	client := telegram.NewClient(m.cfg.TGApiID, m.cfg.TGApiHash, telegram.Options{
		SessionStorage: storage,
	})

	stop, err := bg.Connect(client)
	if err != nil {
		return nil, fmt.Errorf("connect account %d: %w", userID, err)
	}

	status, err := client.Auth().Status(ctx)
	if err != nil {
		_ = stop()
		return nil, fmt.Errorf("auth status for %d: %w", userID, err)
	}
	if !status.Authorized {
		_ = stop()
		return nil, fmt.Errorf("account %d: %w", userID, ErrNoSession)
	}

	rps := 2.0
	if m.rateFor != nil {
		rps = m.rateFor(userID)
	}

	return &Account{
		userID:  userID,
		client:  client,
		stop:    stop,
		limiter: NewRateLimiter(rps, 1),
		log:     logger.Get(),
		self:    status.User,
	}, nil
}
