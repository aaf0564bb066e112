package providerregistry

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltis/gateway/internal/credentials"
	"github.com/moltis/gateway/internal/protocol"
)

func TestBuildConfiguredFromEnv(t *testing.T) {
	src := Sources{
		Env: EnvLookup{Overrides: map[string]string{"ANTHROPIC_API_KEY": "sk-x"}},
	}
	snap := Build(src)
	require.Contains(t, snap, "anthropic")
	assert.True(t, snap["anthropic"].Configured)
	assert.False(t, snap["openai"].Configured)
}

func TestBuildHidesLocalWhenDeployPlatformSet(t *testing.T) {
	src := Sources{DeployPlatform: "fly"}
	snap := Build(src)
	assert.NotContains(t, snap, "ollama")
	assert.NotContains(t, snap, LocalLLMProviderName)
}

func TestBuildLocalLLMRequiresModelIDs(t *testing.T) {
	snap := Build(Sources{})
	assert.False(t, snap[LocalLLMProviderName].Configured)

	snap = Build(Sources{LocalModelIDs: []string{"mistral-7b"}})
	assert.True(t, snap[LocalLLMProviderName].Configured)
}

func TestBuildOAuthProviderConfiguredFromTokens(t *testing.T) {
	src := Sources{
		OAuthTokens: credentials.OAuthTokenStore{
			"openai-codex": {AccessToken: "tok"},
		},
	}
	snap := Build(src)
	assert.True(t, snap["openai-codex"].Configured)
}

func TestBuildDisabledOAuthProviderStillConfiguredWithTokens(t *testing.T) {
	src := Sources{
		OAuthTokens: credentials.OAuthTokenStore{
			"openai-codex": {AccessToken: "tok"},
		},
		DisabledNames: map[string]bool{"openai-codex": true},
	}
	snap := Build(src)
	require.Contains(t, snap, "openai-codex")
	assert.True(t, snap["openai-codex"].Configured)
}

func TestBuildCustomProviderFromKeyStore(t *testing.T) {
	src := Sources{
		KeyStore: credentials.ProviderKeyStore{
			"custom-together-ai": {APIKey: "sk", BaseURL: "https://api.together.ai/v1"},
		},
	}
	snap := Build(src)
	require.Contains(t, snap, "custom-together-ai")
	assert.True(t, snap["custom-together-ai"].Custom)
	assert.Equal(t, "together.ai", snap["custom-together-ai"].DisplayName)
}

func TestAvailableOrdersOfferedFirst(t *testing.T) {
	providers := map[string]ProviderInfo{
		"anthropic": {Name: "anthropic", DisplayName: "Anthropic"},
		"openai":    {Name: "openai", DisplayName: "OpenAI"},
		"groq":      {Name: "groq", DisplayName: "Groq"},
	}
	out := Available(providers, []string{"groq", "openai"})
	require.Len(t, out, 3)
	assert.Equal(t, "groq", out[0].Name)
	assert.Equal(t, "openai", out[1].Name)
	assert.Equal(t, "anthropic", out[2].Name)
}

func TestAvailableFallsBackToBuiltinOrderThenCustom(t *testing.T) {
	providers := map[string]ProviderInfo{
		"custom-foo": {Name: "custom-foo", DisplayName: "Foo", Custom: true},
		"openai":     {Name: "openai", DisplayName: "OpenAI"},
		"anthropic":  {Name: "anthropic", DisplayName: "Anthropic"},
	}
	out := Available(providers, nil)
	require.Len(t, out, 3)
	assert.Equal(t, "anthropic", out[0].Name)
	assert.Equal(t, "openai", out[1].Name)
	assert.Equal(t, "custom-foo", out[2].Name)
}

func TestRebuilderDiscardsStaleResult(t *testing.T) {
	reg := New()
	gate := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int64
	rb := NewRebuilder(reg, func(ctx context.Context) (Sources, error) {
		n := calls.Add(1)
		if n == 1 {
			close(started)
			<-gate // block the first rebuild until the counter has been bumped
		}
		return Sources{Env: EnvLookup{Overrides: map[string]string{"ANTHROPIC_API_KEY": "sk"}}}, nil
	}, nil)

	done := make(chan struct{})
	go func() {
		_ = rb.Trigger(context.Background())
		close(done)
	}()

	<-started
	rb.counter.Add(1) // simulate a newer trigger racing ahead
	close(gate)
	<-done

	// The stale rebuild must have been discarded: no snapshot installed.
	assert.Equal(t, uint64(0), reg.Version())
}

type stubProber struct {
	results map[string]error
}

func (p stubProber) Probe(ctx context.Context, provider, model string) (bool, error) {
	if err, ok := p.results[model]; ok {
		return false, err
	}
	return true, nil
}

func TestValidateKeyStopsAfterTwoTimeouts(t *testing.T) {
	prober := stubProber{results: map[string]error{
		"m1": context.DeadlineExceeded,
		"m2": context.DeadlineExceeded,
	}}
	var events []ValidateProgress
	res := ValidateKey(context.Background(), ValidateInput{
		Provider: "openai",
		Models:   []string{"m1", "m2", "m3"},
	}, prober, nil, func(p ValidateProgress) { events = append(events, p) })

	assert.False(t, res.Valid)
	assert.Contains(t, res.Error, "timed out")

	probed := 0
	for _, e := range events {
		if e.Phase == "probe_started" {
			probed++
		}
	}
	assert.Equal(t, 2, probed, "third candidate must never be probed")
}

func TestValidateKeyReturnsFirstUnsupportedModelMessage(t *testing.T) {
	prober := stubProber{results: map[string]error{
		"m1": protocol.NewError(protocol.ErrUnsupportedModel, "m1 unsupported"),
		"m2": protocol.NewError(protocol.ErrUnsupportedModel, "m2 unsupported"),
	}}
	res := ValidateKey(context.Background(), ValidateInput{
		Provider: "openai",
		Models:   []string{"m1", "m2"},
	}, prober, nil, nil)

	assert.False(t, res.Valid)
	assert.Contains(t, res.Error, "m1 unsupported")
}

func TestValidateKeySucceedsOnFirstGoodCandidate(t *testing.T) {
	prober := stubProber{}
	res := ValidateKey(context.Background(), ValidateInput{
		Provider: "openai",
		Models:   []string{"gpt-4o"},
	}, prober, nil, nil)

	require.True(t, res.Valid)
	require.Len(t, res.Models, 1)
	assert.Equal(t, "gpt-4o", res.Models[0].ID)
}

func TestEffectiveProviderRewritesToCustomOnBaseURLOverride(t *testing.T) {
	provider := effectiveProvider(ValidateInput{Provider: "openai", BaseURL: "https://api.together.ai/v1"})
	assert.Equal(t, "custom-together-ai", provider)
}
