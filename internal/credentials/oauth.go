package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// OAuthTokens is the persisted token record for one OAuth-backed provider (§3).
type OAuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	AccountID    string `json:"account_id,omitempty"`
	ExpiresAt    *int64 `json:"expires_at,omitempty"` // epoch seconds
}

// Expired reports whether the token is known to be expired. Tokens without
// an ExpiresAt are treated as not expired (the provider didn't declare one).
func (t OAuthTokens) Expired(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return now.Unix() >= *t.ExpiresAt
}

// OAuthTokenStore is the full oauth_tokens.json mapping, keyed by provider name.
type OAuthTokenStore map[string]OAuthTokens

// LoadOAuthTokens reads oauth_tokens.json. A missing file is an empty map.
func (s *Store) LoadOAuthTokens() (OAuthTokenStore, error) {
	data, err := os.ReadFile(s.oauthPath())
	if os.IsNotExist(err) {
		return OAuthTokenStore{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read oauth tokens: %w", err)
	}
	var store OAuthTokenStore
	if err := json.Unmarshal(data, &store); err != nil {
		// Invalid JSON disables the file (§6): treated as empty, not an error.
		return OAuthTokenStore{}, nil
	}
	if store == nil {
		store = OAuthTokenStore{}
	}
	return store, nil
}

// SaveOAuthTokens rewrites oauth_tokens.json atomically with mode 0600.
func (s *Store) SaveOAuthTokens(store OAuthTokenStore) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal oauth tokens: %w", err)
	}
	return atomicWrite(s.oauthPath(), data, 0o600)
}

// PutOAuthTokens persists tokens for provider, replacing any prior entry.
func (s *Store) PutOAuthTokens(provider string, tokens OAuthTokens) error {
	store, err := s.LoadOAuthTokens()
	if err != nil {
		return err
	}
	store[provider] = tokens
	return s.SaveOAuthTokens(store)
}

// codexAuthPath returns the external CLI's auth.json location (~/.codex/auth.json).
func codexAuthPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".codex", "auth.json"), nil
}

type codexAuthFile struct {
	Tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token,omitempty"`
		IDToken      string `json:"id_token,omitempty"`
		AccountID    string `json:"account_id,omitempty"`
	} `json:"tokens"`
}

// DetectExternalCodexTokens reads ~/.codex/auth.json, if present, and
// returns tokens for the "openai-codex" provider when a non-empty
// access_token is found (§6 "External OAuth import").
func DetectExternalCodexTokens() (OAuthTokens, bool) {
	path, err := codexAuthPath()
	if err != nil {
		return OAuthTokens{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return OAuthTokens{}, false
	}
	var f codexAuthFile
	if err := json.Unmarshal(data, &f); err != nil {
		return OAuthTokens{}, false
	}
	if f.Tokens.AccessToken == "" {
		return OAuthTokens{}, false
	}
	return OAuthTokens{
		AccessToken:  f.Tokens.AccessToken,
		RefreshToken: f.Tokens.RefreshToken,
		IDToken:      f.Tokens.IDToken,
		AccountID:    f.Tokens.AccountID,
	}, true
}

// ImportExternalCodexTokens copies detected external tokens into the
// internal store idempotently: a no-op if the internal store already has
// an entry for "openai-codex" (§3 "OAuthTokens").
func (s *Store) ImportExternalCodexTokens() (imported bool, err error) {
	store, err := s.LoadOAuthTokens()
	if err != nil {
		return false, err
	}
	if _, exists := store["openai-codex"]; exists {
		return false, nil
	}
	tokens, found := DetectExternalCodexTokens()
	if !found {
		return false, nil
	}
	store["openai-codex"] = tokens
	if err := s.SaveOAuthTokens(store); err != nil {
		return false, err
	}
	return true, nil
}
