package providerregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultOllamaBaseURL is used when no custom base URL is configured (§4.3).
const DefaultOllamaBaseURL = "http://localhost:11434"

// OllamaAPIBase rewrites a configured Ollama base URL to its native /api
// root, tolerating a URL that already points at the OpenAI-compatible /v1
// surface.
func OllamaAPIBase(configured string) string {
	base := strings.TrimRight(configured, "/")
	if base == "" {
		base = DefaultOllamaBaseURL
	}
	base = strings.TrimSuffix(base, "/v1")
	base = strings.TrimSuffix(base, "/api")
	return base + "/api"
}

// OllamaV1Base rewrites a configured Ollama base URL to its OpenAI-compatible
// /v1 surface, the form LLM provider construction expects.
func OllamaV1Base(configured string) string {
	base := strings.TrimRight(configured, "/")
	if base == "" {
		base = DefaultOllamaBaseURL
	}
	base = strings.TrimSuffix(base, "/v1")
	base = strings.TrimSuffix(base, "/api")
	return base + "/v1"
}

// OllamaModel is one entry of GET /api/tags.
type OllamaModel struct {
	Name string `json:"name"`
}

type ollamaTagsResponse struct {
	Models []OllamaModel `json:"models"`
}

// ListOllamaModels queries the local Ollama daemon's tag list.
func ListOllamaModels(ctx context.Context, client *http.Client, configuredBaseURL string) ([]OllamaModel, error) {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	url := OllamaAPIBase(configuredBaseURL) + "/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama tags: unexpected status %d", resp.StatusCode)
	}
	var parsed ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed.Models, nil
}

// MatchesOllamaModel reports whether a requested model id matches a locally
// installed Ollama tag either exactly or ignoring the ":tag" suffix, e.g.
// "llama3" matches the installed tag "llama3:latest".
func MatchesOllamaModel(requested string, installed []OllamaModel) bool {
	requestedBase, _, _ := strings.Cut(requested, ":")
	for _, m := range installed {
		if m.Name == requested {
			return true
		}
		base, _, _ := strings.Cut(m.Name, ":")
		if base == requestedBase {
			return true
		}
	}
	return false
}
