package trakt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Token is a stored OAuth token for one linked user.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TokenStore persists per-user OAuth tokens.
type TokenStore interface {
	Token(userID string) (*Token, error)
	Save(userID string, token *Token) error
}

// DirTokenStore keeps one JSON token file per user in a directory.
type DirTokenStore struct {
	dir string
}

// NewDirTokenStore creates the token directory if needed.
func NewDirTokenStore(dir string) (*DirTokenStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}
	return &DirTokenStore{dir: dir}, nil
}

func (s *DirTokenStore) path(userID string) string {
	return filepath.Join(s.dir, "token-"+userID+".json")
}

// Token reads the stored token for a user.
func (s *DirTokenStore) Token(userID string) (*Token, error) {
	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotAuthorized
		}
		return nil, err
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Save writes the token for a user.
func (s *DirTokenStore) Save(userID string, token *Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(userID), data, 0600)
}
