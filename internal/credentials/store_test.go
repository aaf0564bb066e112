package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeysMissingFileIsEmpty(t *testing.T) {
	s := NewStore(t.TempDir())
	store, err := s.LoadKeys()
	require.NoError(t, err)
	assert.Empty(t, store)
}

func TestSaveThenLoadKeysRoundTrips(t *testing.T) {
	s := NewStore(t.TempDir())
	key := "sk-x"
	require.NoError(t, s.UpsertKey("openai", &key, nil, nil, false))

	store, err := s.LoadKeys()
	require.NoError(t, err)
	require.Contains(t, store, "openai")
	assert.Equal(t, "sk-x", store["openai"].APIKey)
}

func TestLegacyFormatMigratesOnRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "provider_keys.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"openai":"sk-legacy"}`), 0o600))

	s := NewStore(dir)
	store, err := s.LoadKeys()
	require.NoError(t, err)
	assert.Equal(t, "sk-legacy", store["openai"].APIKey)
}

func TestInvalidJSONTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "provider_keys.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))

	s := NewStore(dir)
	store, err := s.LoadKeys()
	require.NoError(t, err)
	assert.Empty(t, store)
}

func TestSaveKeysWritesMode0600(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	require.NoError(t, s.SaveKeys(ProviderKeyStore{"openai": {APIKey: "sk"}}))

	info, err := os.Stat(filepath.Join(dir, "provider_keys.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestUpsertKeyPreservesUnsetFields(t *testing.T) {
	s := NewStore(t.TempDir())
	key := "sk-1"
	url := "https://example.com"
	require.NoError(t, s.UpsertKey("custom-foo", &key, &url, nil, false))

	newKey := "sk-2"
	require.NoError(t, s.UpsertKey("custom-foo", &newKey, nil, nil, false))

	store, err := s.LoadKeys()
	require.NoError(t, err)
	assert.Equal(t, "sk-2", store["custom-foo"].APIKey)
	assert.Equal(t, "https://example.com", store["custom-foo"].BaseURL) // preserved
}

func TestUpsertKeyClearsBaseURL(t *testing.T) {
	s := NewStore(t.TempDir())
	key := "sk-1"
	url := "https://example.com"
	require.NoError(t, s.UpsertKey("custom-foo", &key, &url, nil, false))
	require.NoError(t, s.UpsertKey("custom-foo", nil, nil, nil, true))

	store, err := s.LoadKeys()
	require.NoError(t, err)
	assert.Empty(t, store["custom-foo"].BaseURL)
}

func TestRemoveKeyRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	key := "sk"
	require.NoError(t, s.UpsertKey("openai", &key, nil, nil, false))
	require.NoError(t, s.RemoveKey("openai"))

	store, err := s.LoadKeys()
	require.NoError(t, err)
	assert.NotContains(t, store, "openai")
}

func TestPrependModelsDeduplicates(t *testing.T) {
	got := PrependModels([]string{"a", "b"}, []string{"b", "c"})
	assert.Equal(t, []string{"b", "c", "a"}, got)
}

func TestDeriveProviderNameFromURL(t *testing.T) {
	name, ok := DeriveProviderNameFromURL("https://api.together.ai/v1")
	require.True(t, ok)
	assert.Equal(t, "custom-together-ai", name)
}

func TestMakeUniqueProviderName(t *testing.T) {
	existing := map[string]ProviderConfig{"custom-foo": {}}
	assert.Equal(t, "custom-foo-2", MakeUniqueProviderName("custom-foo", existing))

	existing["custom-foo-2"] = ProviderConfig{}
	assert.Equal(t, "custom-foo-3", MakeUniqueProviderName("custom-foo", existing))
}

func TestNormalizeBaseURLForCompareCaseInsensitive(t *testing.T) {
	a := NormalizeBaseURLForCompare("https://openrouter.ai/api/v1/")
	b := NormalizeBaseURLForCompare("https://OPENROUTER.ai/api/v1")
	assert.Equal(t, a, b)
}

func TestHomeStoreMergesUnderneathPrimary(t *testing.T) {
	primaryDir := t.TempDir()
	homeDir := t.TempDir()

	home := NewStore(homeDir)
	hk := "home-key"
	require.NoError(t, home.UpsertKey("anthropic", &hk, nil, nil, false))
	require.NoError(t, home.UpsertKey("openai", &hk, nil, nil, false))

	primary := NewStore(primaryDir)
	pk := "primary-key"
	require.NoError(t, primary.UpsertKey("openai", &pk, nil, nil, false))

	hs := NewHomeStore(primaryDir, homeDir)
	merged, err := hs.MergedKeys()
	require.NoError(t, err)

	assert.Equal(t, "primary-key", merged["openai"].APIKey) // primary wins
	assert.Equal(t, "home-key", merged["anthropic"].APIKey) // home-only entry surfaces
}
