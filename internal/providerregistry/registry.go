package providerregistry

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/moltis/gateway/internal/credentials"
)

// ProviderInfo is one entry of available()'s result (§4.3).
type ProviderInfo struct {
	Name        string
	DisplayName string
	Configured  bool
	Custom      bool
	Local       bool
}

// Registry is the current, non-persisted snapshot of configured providers.
// It is replaced wholesale on rebuild (§4.3); readers take a brief RLock.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ProviderInfo
	version   uint64
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{providers: make(map[string]ProviderInfo)}
}

// snapshot replaces the registry's contents. Called only by Rebuilder.runOnce.
func (r *Registry) snapshot(providers map[string]ProviderInfo, version uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = providers
	r.version = version
}

// Version returns the rebuild version currently installed.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Get returns the ProviderInfo for name, if configured or otherwise known.
func (r *Registry) Get(name string) (ProviderInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// All returns a copy of the currently installed provider map, used by
// providers.available to feed Available()'s ordering pass.
func (r *Registry) All() map[string]ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ProviderInfo, len(r.providers))
	for k, v := range r.providers {
		out[k] = v
	}
	return out
}

// EnvLookup resolves a provider's API-key environment variable. It checks an
// in-process override map before falling back to the OS environment (§6
// "A provider's declared env name is read through an in-process override
// map first").
type EnvLookup struct {
	Overrides map[string]string
}

// Lookup returns the value of name, preferring Overrides.
func (e EnvLookup) Lookup(name string) (string, bool) {
	if e.Overrides != nil {
		if v, ok := e.Overrides[name]; ok {
			return v, v != ""
		}
	}
	v, ok := os.LookupEnv(name)
	return v, ok && v != ""
}

// Sources bundles every credential source consulted while building a
// Registry (§4.3 rebuild inputs and §3's "configured" invariant).
type Sources struct {
	Env            EnvLookup
	InMemoryConfig credentials.ProviderKeyStore // in-memory ProvidersConfig
	KeyStore       credentials.ProviderKeyStore
	HomeKeyStore   credentials.ProviderKeyStore // may be nil
	OAuthTokens    credentials.OAuthTokenStore
	HomeOAuth      credentials.OAuthTokenStore // may be nil
	LocalModelIDs  []string                    // non-empty => local-llm.json exists
	DisabledNames  map[string]bool
	DeployPlatform string   // non-empty hides local providers (§4.3)
	Offered        []string // operator-owner's offered allow-list (§4.3 ordering rule 1)
}

// Build computes the full provider snapshot from Sources — the pure
// function rebuild(env, config, key_store, local_model_ids) of §4.3.
func Build(src Sources) map[string]ProviderInfo {
	out := make(map[string]ProviderInfo)

	for _, b := range Builtins {
		if b.IsLocal && src.DeployPlatform != "" {
			continue // §4.3: hidden when deploy platform is set
		}
		configured := isBuiltinConfigured(b, src)
		out[b.Name] = ProviderInfo{
			Name:        b.Name,
			DisplayName: b.DisplayName,
			Configured:  configured,
			Local:       b.IsLocal,
		}
	}

	for name, cfg := range src.KeyStore {
		if !credentials.IsCustomProvider(name) {
			continue
		}
		if src.DisabledNames[name] {
			continue
		}
		display := cfg.DisplayName
		if display == "" {
			display = credentials.BaseURLToDisplayName(cfg.BaseURL)
		}
		out[name] = ProviderInfo{
			Name:        name,
			DisplayName: display,
			Configured:  cfg.APIKey != "" || (src.InMemoryConfig[name].APIKey != ""),
			Custom:      true,
		}
	}

	return out
}

func isBuiltinConfigured(b BuiltinProvider, src Sources) bool {
	disabled := src.DisabledNames[b.Name]

	switch {
	case b.Name == LocalLLMProviderName:
		return len(src.LocalModelIDs) > 0 && !disabled

	case b.AuthType == AuthOAuth:
		hasToken := hasNonEmptyToken(src.OAuthTokens, b.Name) || hasNonEmptyToken(src.HomeOAuth, b.Name)
		if b.Name == "openai-codex" && !hasToken {
			if _, found := credentials.DetectExternalCodexTokens(); found {
				hasToken = true
			}
		}
		// Disabled OAuth subscription providers still report configured if
		// valid local tokens exist (§4.3 "except for OAuth subscription
		// providers with valid local tokens").
		return hasToken

	default:
		if disabled {
			return false
		}
		if b.EnvVar != "" {
			if v, ok := src.Env.Lookup(b.EnvVar); ok && v != "" {
				return true
			}
		}
		if cfg, ok := src.InMemoryConfig[b.Name]; ok && cfg.APIKey != "" {
			return true
		}
		if cfg, ok := src.KeyStore[b.Name]; ok {
			if b.Name == "ollama" {
				return true // ollama's apiKey is optional
			}
			if cfg.APIKey != "" {
				return true
			}
		}
		if cfg, ok := src.HomeKeyStore[b.Name]; ok && cfg.APIKey != "" {
			return true
		}
		return false
	}
}

func hasNonEmptyToken(store credentials.OAuthTokenStore, provider string) bool {
	if store == nil {
		return false
	}
	t, ok := store[provider]
	return ok && t.AccessToken != ""
}

// Available returns the ordered list the available() method reports (§4.3).
// Ordering: offered allow-list first (in list order), then the fixed
// built-in order, then custom providers, ties broken by display name.
func Available(providers map[string]ProviderInfo, offered []string) []ProviderInfo {
	offeredIndex := make(map[string]int, len(offered))
	for i, name := range offered {
		offeredIndex[name] = i
	}
	builtinIndex := make(map[string]int, len(Builtins))
	for i, b := range Builtins {
		builtinIndex[b.Name] = i
	}

	out := make([]ProviderInfo, 0, len(providers))
	for _, p := range providers {
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		ai, aOffered := offeredIndex[a.Name]
		bi, bOffered := offeredIndex[b.Name]
		if aOffered != bOffered {
			return aOffered // offered entries sort first
		}
		if aOffered && bOffered {
			return ai < bi
		}
		// Neither offered: builtins (in fixed order) before custom, then
		// display-name tiebreak.
		aBuiltinIdx, aIsBuiltin := builtinIndex[a.Name]
		bBuiltinIdx, bIsBuiltin := builtinIndex[b.Name]
		if aIsBuiltin != bIsBuiltin {
			return aIsBuiltin // builtins sort before custom providers
		}
		if aIsBuiltin && bIsBuiltin {
			return aBuiltinIdx < bBuiltinIdx
		}
		return strings.ToLower(a.DisplayName) < strings.ToLower(b.DisplayName)
	})
	return out
}
