// Package session keeps per-user conversation state and copy parameters
// in a JSON file, the single source of truth for an operation's setup.
package session

import "time"

// UI states a user's conversation can be in. The bot layer switches on the
// state tag to decide how to interpret the next text message.
const (
	StateMainMenu            = "main_menu"
	StateAwaitingPhone       = "awaiting_phone"
	StateAwaitingCode        = "awaiting_code"
	StateAwaitingPassword    = "awaiting_password"
	StateAwaitingSession     = "awaiting_session_string"
	StateAwaitingSource      = "awaiting_source_channel"
	StateAwaitingTarget      = "awaiting_target_channel"
	StateAwaitingRange       = "awaiting_message_range"
	StateAwaitingStartLink   = "awaiting_range_start_link"
	StateAwaitingEndLink     = "awaiting_range_end_link"
	StateAwaitingPersonal    = "awaiting_personal_copy_link"
	StateAwaitingVIPPromote  = "awaiting_vip_promotion"
	StateAwaitingVIPDemote   = "awaiting_vip_demotion"
	StateAwaitingFreeLimit   = "awaiting_free_limit"
	StateAwaitingBroadcast   = "awaiting_broadcast"
	StateAwaitingUserLookup  = "awaiting_user_lookup"
)

// Session is one user's mutable record. Created on first interaction,
// mutated continuously, removed only on explicit deletion.
type Session struct {
	State string `json:"state"`

	SourceChannel string `json:"source_channel,omitempty"`
	SourceTitle   string `json:"source_title,omitempty"`
	TargetChannel string `json:"target_channel,omitempty"`
	TargetTitle   string `json:"target_title,omitempty"`

	StartMsgID int `json:"start_msg_id,omitempty"`
	EndMsgID   int `json:"end_msg_id,omitempty"`

	// opaque credential for reconnecting the user's own account
	SessionString string `json:"session_string,omitempty"`

	// transient phone-login state
	Phone         string `json:"phone,omitempty"`
	PhoneCodeHash string `json:"phone_code_hash,omitempty"`

	LastActive int64 `json:"last_active"`
	CreatedAt  int64 `json:"created_at"`
}

// newSession returns a fresh main-menu session.
func newSession() *Session {
	now := time.Now().Unix()
	return &Session{
		State:      StateMainMenu,
		LastActive: now,
		CreatedAt:  now,
	}
}

// HasCopyConfig reports whether source, target and range are all set.
func (s *Session) HasCopyConfig() bool {
	return s.SourceChannel != "" && s.TargetChannel != "" &&
		s.StartMsgID > 0 && s.EndMsgID > 0
}

// ResetCopyConfig clears the copy parameters but keeps the credential.
func (s *Session) ResetCopyConfig() {
	s.SourceChannel = ""
	s.SourceTitle = ""
	s.TargetChannel = ""
	s.TargetTitle = ""
	s.StartMsgID = 0
	s.EndMsgID = 0
	s.State = StateMainMenu
}

// Store is the session store the core works against.
type Store interface {
	// Get returns the user's session, creating it on first use.
	Get(userID int64) *Session
	// Update applies fn to the user's session and persists the result.
	Update(userID int64, fn func(*Session)) error
	// Clear removes the user's session entirely.
	Clear(userID int64) error
}
