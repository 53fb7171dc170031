package broker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"llm-trading-agent/internal/errs"
	"llm-trading-agent/internal/types"
)

// LoadSession reads the persisted session file. Returns ErrUnauthenticated
// when the file does not exist, so callers can fail fast before any remote
// call is attempted.
func LoadSession(path string) (types.Session, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.Session{}, errs.ErrUnauthenticated
	}
	if err != nil {
		return types.Session{}, fmt.Errorf("read session file: %w", err)
	}

	var s types.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return types.Session{}, fmt.Errorf("parse session file: %w", err)
	}
	if s.AccessToken == "" {
		return types.Session{}, errs.ErrUnauthenticated
	}
	return s, nil
}

// SaveSession writes the session file. Only login calls this.
func SaveSession(path string, s types.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// HasSession reports whether a session file exists without validating it.
func HasSession(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
