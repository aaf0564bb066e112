package methods

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moltis/gateway/internal/broadcast"
	"github.com/moltis/gateway/internal/credentials"
	"github.com/moltis/gateway/internal/protocol"
	"github.com/moltis/gateway/internal/providerregistry"
)

// oauthFlows tracks providers.oauth.start's pending {state -> provider}
// mapping until providers.oauth.complete (or the /auth/callback HTTP route)
// resolves it. Concrete authorize-URL construction is provider-specific and
// out of core scope (§1); this only tracks the handshake's state token.
type oauthFlows struct {
	mu      sync.Mutex
	pending map[string]string
}

func newOAuthFlows() *oauthFlows {
	return &oauthFlows{pending: make(map[string]string)}
}

func (f *oauthFlows) start(provider string) string {
	state := uuid.NewString()
	f.mu.Lock()
	f.pending[state] = provider
	f.mu.Unlock()
	return state
}

func (f *oauthFlows) resolve(state string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	provider, ok := f.pending[state]
	if ok {
		delete(f.pending, state)
	}
	return provider, ok
}

var globalOAuthFlows = newOAuthFlows()

// registerProviders installs the service-delegated provider-setup handlers
// (§4.3): save_key, save_model/save_models, add_custom, remove_key,
// oauth.start/complete/status, available, and validate_key.
func registerProviders(reg *Registry, d Deps) {
	if d.Credentials == nil {
		return
	}
	store := d.Credentials.Primary()

	reg.Register("providers.save_key", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			Provider     string   `json:"provider"`
			APIKey       *string  `json:"apiKey"`
			BaseURL      *string  `json:"baseUrl"`
			ClearBaseURL bool     `json:"clearBaseUrl"`
			Models       []string `json:"models"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if p.Provider == "" {
			return nil, protocol.Invalidf("provider is required")
		}
		replacing := store.HasNonEmptyAPIKey(p.Provider)
		if err := store.UpsertKey(p.Provider, p.APIKey, p.BaseURL, p.Models, p.ClearBaseURL); err != nil {
			return nil, protocol.Unavailablef("save provider key: %v", err)
		}
		if d.Log != nil {
			d.Log.Info("provider key saved", zap.String("provider", p.Provider), zap.Bool("replacing", replacing))
		}
		if d.Rebuilder != nil {
			d.Rebuilder.TriggerAsync(context.Background())
		}
		return map[string]any{}, nil
	})

	reg.Register("providers.remove_key", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			Provider string `json:"provider"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if err := store.RemoveKey(p.Provider); err != nil {
			return nil, protocol.Unavailablef("remove provider key: %v", err)
		}
		if d.Rebuilder != nil {
			d.Rebuilder.TriggerAsync(context.Background())
		}
		return map[string]any{}, nil
	})

	// saveModels implements save_model / save_models' shared semantics:
	// prepend the given model(s) into both the provider's stored model list
	// and the process-wide priority list, then queue a rebuild (§4.3).
	saveModels := func(provider, model string, models []string) (any, error) {
		if provider == "" {
			return nil, protocol.Invalidf("provider is required")
		}
		incoming := models
		if model != "" {
			incoming = append([]string{model}, incoming...)
		}
		if len(incoming) == 0 {
			return nil, protocol.Invalidf("model or models is required")
		}
		keys, err := store.LoadKeys()
		if err != nil {
			return nil, protocol.Unavailablef("load provider keys: %v", err)
		}
		merged := credentials.PrependModels(keys[provider].Models, incoming)
		if err := store.UpsertKey(provider, nil, nil, merged, false); err != nil {
			return nil, protocol.Unavailablef("save provider models: %v", err)
		}
		d.Gateway.PrependPriorityModels(incoming)
		if d.Rebuilder != nil {
			d.Rebuilder.TriggerAsync(context.Background())
		}
		return map[string]any{}, nil
	}

	reg.Register("providers.save_model", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			Provider string `json:"provider"`
			Model    string `json:"model"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return saveModels(p.Provider, p.Model, nil)
	})

	reg.Register("providers.save_models", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			Provider string   `json:"provider"`
			Models   []string `json:"models"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return saveModels(p.Provider, "", p.Models)
	})

	reg.Register("providers.add_custom", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			BaseURL string `json:"baseUrl"`
			APIKey  string `json:"apiKey"`
			Model   string `json:"model"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if p.BaseURL == "" || p.APIKey == "" {
			return nil, protocol.Invalidf("baseUrl and apiKey are required")
		}
		keys, err := store.LoadKeys()
		if err != nil {
			return nil, protocol.Unavailablef("load provider keys: %v", err)
		}
		normalized := credentials.NormalizeBaseURLForCompare(p.BaseURL)
		name, reused := credentials.FindExistingCustomProviderByURL(keys, normalized)
		if !reused {
			derived, ok := credentials.DeriveProviderNameFromURL(p.BaseURL)
			if !ok {
				return nil, protocol.Invalidf("cannot derive provider name from baseUrl")
			}
			name = credentials.MakeUniqueProviderName(derived, keys)
		}
		var models []string
		if p.Model != "" {
			models = credentials.PrependModels(keys[name].Models, []string{p.Model})
		}
		apiKey := p.APIKey
		baseURL := p.BaseURL
		if err := store.UpsertKey(name, &apiKey, &baseURL, models, false); err != nil {
			return nil, protocol.Unavailablef("save custom provider: %v", err)
		}
		if d.Rebuilder != nil {
			if err := d.Rebuilder.Trigger(ctx); err != nil {
				d.log().Warn("provider registry rebuild failed", zap.Error(err))
			}
		}
		return map[string]any{
			"ok":           true,
			"providerName": name,
			"displayName":  credentials.BaseURLToDisplayName(p.BaseURL),
		}, nil
	})

	reg.Register("providers.oauth.start", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			Provider string `json:"provider"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if p.Provider == "" {
			return nil, protocol.Invalidf("provider is required")
		}
		state := globalOAuthFlows.start(p.Provider)
		return map[string]any{"state": state}, nil
	})

	reg.Register("providers.oauth.complete", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			State        string `json:"state"`
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			IDToken      string `json:"id_token"`
			AccountID    string `json:"account_id"`
			ExpiresAt    *int64 `json:"expires_at"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		provider, ok := globalOAuthFlows.resolve(p.State)
		if !ok {
			return nil, protocol.Invalidf("unknown or expired oauth state")
		}
		tokens := credentials.OAuthTokens{
			AccessToken:  p.AccessToken,
			RefreshToken: p.RefreshToken,
			IDToken:      p.IDToken,
			AccountID:    p.AccountID,
			ExpiresAt:    p.ExpiresAt,
		}
		if err := store.PutOAuthTokens(provider, tokens); err != nil {
			return nil, protocol.Unavailablef("save oauth tokens: %v", err)
		}
		if d.Rebuilder != nil {
			d.Rebuilder.TriggerAsync(context.Background())
		}
		return map[string]any{"provider": provider}, nil
	})

	reg.Register("providers.oauth.status", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		tokens, err := d.Credentials.MergedOAuthTokens()
		if err != nil {
			return nil, protocol.Unavailablef("read oauth tokens: %v", err)
		}
		status := make(map[string]bool, len(tokens))
		for provider, t := range tokens {
			status[provider] = t.AccessToken != "" && !t.Expired(time.Now())
		}
		return map[string]any{"providers": status}, nil
	})

	reg.Register("providers.available", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		providers := providerregistry.Available(d.Gateway.Providers.All(), nil)
		return map[string]any{"providers": providers}, nil
	})

	// validate_key falls through authz's bucket tables to the admin-only
	// fallback, as in the ported original (it is not named in any bucket).
	reg.Register("providers.validate_key", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var in providerregistry.ValidateInput
		if err := unmarshalParams(params, &in); err != nil {
			return nil, err
		}
		if d.Prober == nil {
			return nil, protocol.Unavailablef("no model prober configured")
		}
		result := providerregistry.ValidateKey(ctx, in, d.Prober, http.DefaultClient, func(prog providerregistry.ValidateProgress) {
			if d.Broadcaster != nil {
				_ = d.Broadcaster.Broadcast(broadcast.TopicProvidersValidate, prog, broadcast.Options{
					DropIfSlow: true,
					Audience:   broadcast.OperatorsOnly(),
				})
			}
		})
		return result, nil
	})
}
