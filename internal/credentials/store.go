// Package credentials persists per-provider LLM credentials and OAuth
// tokens as two small JSON files under the gateway's configuration
// directory. Both files load lazily, cache nothing across calls beyond the
// resolved path, and are rewritten wholesale on every save using an atomic
// temp-file + rename, following the pattern in the teacher's
// agent/persistence file stores.
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ProviderConfig is the persisted, per-provider credential record (§3).
type ProviderConfig struct {
	APIKey      string   `json:"apiKey,omitempty"`
	BaseURL     string   `json:"baseUrl,omitempty"`
	Models      []string `json:"models,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
}

// ProviderKeyStore is the full provider_keys.json mapping, keyed by
// lowercase provider name.
type ProviderKeyStore map[string]ProviderConfig

// Store reads and writes provider_keys.json and oauth_tokens.json under a
// single configuration directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. dir is created lazily on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) keysPath() string  { return filepath.Join(s.dir, "provider_keys.json") }
func (s *Store) oauthPath() string { return filepath.Join(s.dir, "oauth_tokens.json") }

// KeysPath exposes provider_keys.json's resolved path, e.g. for a file watcher.
func (s *Store) KeysPath() string { return s.keysPath() }

// OAuthPath exposes oauth_tokens.json's resolved path, e.g. for a file watcher.
func (s *Store) OAuthPath() string { return s.oauthPath() }

// LoadKeys reads provider_keys.json. A missing file is an empty map, not an
// error. The legacy format — a bare `{"provider": "apikey"}` mapping — is
// silently migrated to the structured form in the returned value; the file
// on disk is left untouched until the next save (§3, §9 "legacy-migration
// path is read-only").
func (s *Store) LoadKeys() (ProviderKeyStore, error) {
	data, err := os.ReadFile(s.keysPath())
	if os.IsNotExist(err) {
		return ProviderKeyStore{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read provider keys: %w", err)
	}
	return parseKeyStore(data)
}

// parseKeyStore accepts the structured format, falls back to the legacy
// `{name: apiKey}` format, and treats anything else as empty rather than
// partially applied (§3 invariant).
func parseKeyStore(data []byte) (ProviderKeyStore, error) {
	var structured ProviderKeyStore
	if err := json.Unmarshal(data, &structured); err == nil {
		if structured == nil {
			structured = ProviderKeyStore{}
		}
		return structured, nil
	}

	var legacy map[string]string
	if err := json.Unmarshal(data, &legacy); err == nil {
		out := make(ProviderKeyStore, len(legacy))
		for name, key := range legacy {
			out[name] = ProviderConfig{APIKey: key}
		}
		return out, nil
	}

	// Neither structured nor legacy: treat as empty, never partially applied.
	return ProviderKeyStore{}, nil
}

// SaveKeys rewrites provider_keys.json atomically with mode 0600.
func (s *Store) SaveKeys(store ProviderKeyStore) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal provider keys: %w", err)
	}
	return atomicWrite(s.keysPath(), data, 0o600)
}

// UpsertKey merges fields into the entry for name, only overwriting fields
// that were actually provided: nil pointers preserve the existing value,
// an explicitly empty base URL clears it (§4.3 save_key semantics).
func (s *Store) UpsertKey(name string, apiKey, baseURL *string, models []string, clearBaseURL bool) error {
	store, err := s.LoadKeys()
	if err != nil {
		return err
	}
	entry := store[name]
	if apiKey != nil {
		entry.APIKey = *apiKey
	}
	if clearBaseURL {
		entry.BaseURL = ""
	} else if baseURL != nil {
		entry.BaseURL = *baseURL
	}
	if models != nil {
		entry.Models = normalizeModels(models)
	}
	store[name] = entry
	return s.SaveKeys(store)
}

// RemoveKey deletes name from the key store, if present. It patches the raw
// file in place with sjson rather than a full unmarshal/marshal roundtrip,
// which also means a legacy-format file keeps its remaining entries in
// whatever format they were already in, instead of being silently migrated
// as a side effect of removal.
func (s *Store) RemoveKey(name string) error {
	data, err := os.ReadFile(s.keysPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read provider keys: %w", err)
	}
	if !gjson.GetBytes(data, gjsonEscape(name)).Exists() {
		return nil
	}
	patched, err := sjson.DeleteBytes(data, gjsonEscape(name))
	if err != nil {
		return fmt.Errorf("patch provider keys: %w", err)
	}
	return atomicWrite(s.keysPath(), patched, 0o600)
}

// gjsonEscape escapes a provider name for use as a gjson/sjson top-level
// path segment, since custom provider names may contain '.' or '*'.
func gjsonEscape(name string) string {
	escaped := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '.', '*', '?', '|':
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, name[i])
	}
	return string(escaped)
}

// normalizeModels strips empty entries and de-duplicates while preserving
// the first-seen order (§4.3 "Empty and duplicate entries are dropped").
func normalizeModels(models []string) []string {
	seen := make(map[string]struct{}, len(models))
	out := make([]string, 0, len(models))
	for _, m := range models {
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// PrependModels prepends newModels to existing, deduplicating against the
// combined list while keeping the first occurrence (used by save_model /
// save_models' "prepend... deduplicating" semantics, §4.3).
func PrependModels(existing, newModels []string) []string {
	combined := make([]string, 0, len(newModels)+len(existing))
	combined = append(combined, newModels...)
	combined = append(combined, existing...)
	return normalizeModels(combined)
}

// SortedNames returns the key store's provider names sorted for stable iteration.
func (store ProviderKeyStore) SortedNames() []string {
	names := make([]string, 0, len(store))
	for n := range store {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// fastHasNonEmptyAPIKey reports whether the raw JSON has a non-empty
// string at provider.apiKey, used by callers that only need a quick
// "configured?" probe without a full unmarshal (gjson-backed, Domain Stack).
func fastHasNonEmptyAPIKey(raw []byte, provider string) bool {
	return gjson.GetBytes(raw, provider+".apiKey").String() != ""
}

// HasNonEmptyAPIKey reports whether provider_keys.json currently has a
// non-empty apiKey for name, without unmarshaling the full key store. Used
// by providers.save_key to log a replace-vs-create distinction cheaply.
func (s *Store) HasNonEmptyAPIKey(name string) bool {
	data, err := os.ReadFile(s.keysPath())
	if err != nil {
		return false
	}
	return fastHasNonEmptyAPIKey(data, name)
}
