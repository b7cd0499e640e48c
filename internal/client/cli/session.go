package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/client/api"
	"github.com/dmitrijs2005/authkeeper/internal/filex"
)

// ErrNoSession means nobody is logged in on this machine.
var ErrNoSession = errors.New("not logged in")

// sessionStore keeps the current token pair in a user-only JSON file.
type sessionStore struct {
	path string
}

func (s sessionStore) Load() (*api.TokenPair, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var pair api.TokenPair
	if err := json.Unmarshal(b, &pair); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if pair.RefreshToken == "" {
		return nil, ErrNoSession
	}
	return &pair, nil
}

func (s sessionStore) Save(pair *api.TokenPair) error {
	b, err := json.Marshal(pair)
	if err != nil {
		return err
	}
	return filex.WriteFileAtomic(s.path, b, 0o600)
}

func (s sessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
