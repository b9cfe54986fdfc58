package session

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/blockedby/copygram/internal/logger"
)

// FileStore persists sessions to a JSON file keyed by user id.
// Saves are atomic: write to a temp file, then rename over the original.
type FileStore struct {
	path string
	log  *logger.Logger

	mu       sync.Mutex
	sessions map[int64]*Session
}

var _ Store = (*FileStore)(nil)

// NewFileStore loads sessions from path, starting empty if the file
// does not exist or cannot be parsed.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		log:      logger.Get(),
		sessions: make(map[int64]*Session),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read sessions file: %w", err)
	}

	// json keys are strings, user ids are int64
	raw := make(map[string]*Session)
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("session: corrupt sessions file, starting empty")
		return s, nil
	}
	for k, v := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		s.sessions[id] = v
	}

	s.log.Info().Int("count", len(s.sessions)).Msg("session: loaded user sessions")
	return s, nil
}

// Get returns the user's session, creating it on first use.
func (s *FileStore) Get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = newSession()
		s.sessions[userID] = sess
		if err := s.saveLocked(); err != nil {
			s.log.Warn().Err(err).Msg("session: save after create failed")
		}
		return s.copyOf(sess)
	}
	return s.copyOf(sess)
}

// SessionString returns the user's stored credential, empty when the
// user never logged in. Satisfies the account manager's lookup interface.
func (s *FileStore) SessionString(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[userID]; ok {
		return sess.SessionString
	}
	return ""
}

// Update applies fn to the user's session and persists the result.
func (s *FileStore) Update(userID int64, fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = newSession()
		s.sessions[userID] = sess
	}

	fn(sess)
	sess.LastActive = time.Now().Unix()

	return s.saveLocked()
}

// Clear removes the user's session entirely.
func (s *FileStore) Clear(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[userID]; !ok {
		return nil
	}
	delete(s.sessions, userID)

	s.log.Info().Int64("user_id", userID).Msg("session: cleared")
	return s.saveLocked()
}

// copyOf returns a detached copy so callers cannot mutate the store
// without going through Update.
func (s *FileStore) copyOf(sess *Session) *Session {
	cp := *sess
	return &cp
}

// saveLocked writes the session map to disk. Caller holds s.mu.
func (s *FileStore) saveLocked() error {
	raw := make(map[string]*Session, len(s.sessions))
	for id, sess := range s.sessions {
		raw[strconv.FormatInt(id, 10)] = sess
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write sessions temp file: %w", err)
	}

	// keep the previous file around as a recovery point
	if prev, err := os.ReadFile(s.path); err == nil {
		_ = os.WriteFile(s.path+".bak", prev, 0600)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace sessions file: %w", err)
	}

	return nil
}
