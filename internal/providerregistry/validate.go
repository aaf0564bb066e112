package providerregistry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/moltis/gateway/internal/credentials"
	"github.com/moltis/gateway/internal/protocol"
)

// Prober issues a minimal completion against a candidate model to test
// whether a credential is live and the model supports tool calls. Concrete
// LLM HTTP clients are out of core scope; a real deploy binds whichever
// provider client it needs behind this interface.
type Prober interface {
	Probe(ctx context.Context, provider, model string) (supportsTools bool, err error)
}

const (
	maxProbeCandidates = 8
	maxProbeTimeouts   = 2
	probeTimeout       = 10 * time.Second
)

// ValidateProgress is one event emitted during ValidateKey.
type ValidateProgress struct {
	Provider  string
	Phase     string // start, candidates_discovered, probe_started, probe_succeeded, probe_failed, probe_timeout, complete, error
	RequestID string
	Model     string
	Error     string
}

// ValidatedModel is one entry of a successful ValidateKey result.
type ValidatedModel struct {
	ID            string
	DisplayName   string
	Provider      string
	SupportsTools bool
}

// ValidateResult is validate_key's final payload.
type ValidateResult struct {
	Valid  bool
	Models []ValidatedModel
	Error  string
}

// ValidateInput mirrors validate_key's {provider, apiKey?, baseUrl?, models?,
// requestId?} parameters.
type ValidateInput struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Models    []string
	RequestID string
}

// ValidateKey runs the validate_key flow: Ollama installed-model lookup, or
// sequential candidate probing for every other provider, up to 8 candidates
// with a 10-second per-model timeout and an abort after 2 timeouts.
func ValidateKey(ctx context.Context, in ValidateInput, prober Prober, httpClient *http.Client, emit func(ValidateProgress)) ValidateResult {
	if emit == nil {
		emit = func(ValidateProgress) {}
	}
	provider := effectiveProvider(in)
	emit(ValidateProgress{Provider: provider, Phase: "start", RequestID: in.RequestID})

	if provider == "ollama" {
		return validateOllama(ctx, in, httpClient, emit)
	}
	return validateGeneric(ctx, provider, in, prober, emit)
}

// effectiveProvider rewrites provider to its derived custom-… identity when
// a baseUrl overrides a builtin's default endpoint (§4.3 "a notable
// subtlety").
func effectiveProvider(in ValidateInput) string {
	if in.BaseURL == "" {
		return in.Provider
	}
	if derived, ok := credentials.DeriveProviderNameFromURL(in.BaseURL); ok {
		return derived
	}
	return in.Provider
}

func validateOllama(ctx context.Context, in ValidateInput, httpClient *http.Client, emit func(ValidateProgress)) ValidateResult {
	installed, err := ListOllamaModels(ctx, httpClient, in.BaseURL)
	if err != nil {
		emit(ValidateProgress{Provider: "ollama", Phase: "error", RequestID: in.RequestID, Error: err.Error()})
		return ValidateResult{Valid: false, Error: err.Error()}
	}

	if len(in.Models) == 0 {
		models := make([]ValidatedModel, 0, len(installed))
		for _, m := range installed {
			models = append(models, ValidatedModel{
				ID:            "ollama::" + m.Name,
				DisplayName:   m.Name,
				Provider:      "ollama",
				SupportsTools: true,
			})
		}
		emit(ValidateProgress{Provider: "ollama", Phase: "complete", RequestID: in.RequestID})
		return ValidateResult{Valid: true, Models: models}
	}

	requested := in.Models[0]
	if !MatchesOllamaModel(requested, installed) {
		msg := "model not installed: " + requested
		emit(ValidateProgress{Provider: "ollama", Phase: "error", RequestID: in.RequestID, Error: msg})
		return ValidateResult{Valid: false, Error: msg}
	}
	emit(ValidateProgress{Provider: "ollama", Phase: "complete", RequestID: in.RequestID})
	return ValidateResult{
		Valid: true,
		Models: []ValidatedModel{{
			ID:            "ollama::" + requested,
			DisplayName:   requested,
			Provider:      "ollama",
			SupportsTools: true,
		}},
	}
}

func validateGeneric(ctx context.Context, provider string, in ValidateInput, prober Prober, emit func(ValidateProgress)) ValidateResult {
	candidates := in.Models
	if len(candidates) > maxProbeCandidates {
		candidates = candidates[:maxProbeCandidates]
	}
	emit(ValidateProgress{Provider: provider, Phase: "candidates_discovered", RequestID: in.RequestID})

	if len(candidates) == 0 {
		err := "no candidate models available"
		emit(ValidateProgress{Provider: provider, Phase: "error", RequestID: in.RequestID, Error: err})
		return ValidateResult{Valid: false, Error: err}
	}

	timeouts := 0
	var firstUnsupported string

	for _, model := range candidates {
		emit(ValidateProgress{Provider: provider, Phase: "probe_started", RequestID: in.RequestID, Model: model})

		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		supportsTools, err := prober.Probe(probeCtx, provider, model)
		cancel()

		switch {
		case err == nil:
			emit(ValidateProgress{Provider: provider, Phase: "probe_succeeded", RequestID: in.RequestID, Model: model})
			emit(ValidateProgress{Provider: provider, Phase: "complete", RequestID: in.RequestID})
			return ValidateResult{
				Valid: true,
				Models: []ValidatedModel{{
					ID:            model,
					DisplayName:   model,
					Provider:      provider,
					SupportsTools: supportsTools,
				}},
			}

		case errors.Is(err, context.DeadlineExceeded) || errors.Is(probeCtx.Err(), context.DeadlineExceeded):
			timeouts++
			emit(ValidateProgress{Provider: provider, Phase: "probe_timeout", RequestID: in.RequestID, Model: model})
			if timeouts >= maxProbeTimeouts {
				msg := "Connection timed out…"
				emit(ValidateProgress{Provider: provider, Phase: "error", RequestID: in.RequestID, Error: msg})
				return ValidateResult{Valid: false, Error: msg}
			}

		case isUnsupportedModel(err):
			if firstUnsupported == "" {
				firstUnsupported = err.Error()
			}
			emit(ValidateProgress{Provider: provider, Phase: "probe_failed", RequestID: in.RequestID, Model: model, Error: err.Error()})

		default:
			emit(ValidateProgress{Provider: provider, Phase: "error", RequestID: in.RequestID, Error: err.Error()})
			return ValidateResult{Valid: false, Error: err.Error()}
		}
	}

	if firstUnsupported != "" {
		emit(ValidateProgress{Provider: provider, Phase: "error", RequestID: in.RequestID, Error: firstUnsupported})
		return ValidateResult{Valid: false, Error: firstUnsupported}
	}
	msg := "no candidate model succeeded"
	emit(ValidateProgress{Provider: provider, Phase: "error", RequestID: in.RequestID, Error: msg})
	return ValidateResult{Valid: false, Error: msg}
}

func isUnsupportedModel(err error) bool {
	var perr *protocol.Error
	if errors.As(err, &perr) {
		return perr.Code == protocol.ErrUnsupportedModel
	}
	return false
}
