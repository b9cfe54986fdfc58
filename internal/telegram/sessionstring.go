package telegram

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/gotd/td/session"
)

// EncodeSessionString serializes session data into the opaque credential
// stored in the session store. It is url-safe base64 over the session JSON.
func EncodeSessionString(data *session.Data) (string, error) {
	if data == nil {
		return "", fmt.Errorf("session data is nil")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal session data: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeSessionString parses a stored session string back into session data.
func DecodeSessionString(s string) (*session.Data, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode session string: %w", err)
	}
	var data session.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse session data: %w", err)
	}
	return &data, nil
}

// seededStorage returns an in-memory session storage preloaded with the
// credential, ready to hand to a fresh client.
func seededStorage(ctx context.Context, sessionString string) (*session.StorageMemory, error) {
	data, err := DecodeSessionString(sessionString)
	if err != nil {
		return nil, err
	}

	storage := &session.StorageMemory{}
	loader := session.Loader{Storage: storage}
	if err := loader.Save(ctx, data); err != nil {
		return nil, fmt.Errorf("seed session storage: %w", err)
	}
	return storage, nil
}

// exportSessionString reads the current session out of a storage and
// encodes it as a session string.
func exportSessionString(ctx context.Context, storage session.Storage) (string, error) {
	loader := session.Loader{Storage: storage}
	data, err := loader.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	return EncodeSessionString(data)
}
