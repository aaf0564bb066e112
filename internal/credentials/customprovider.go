package credentials

import (
	"net/url"
	"strconv"
	"strings"
)

// CustomProviderPrefix marks user-added OpenAI-compatible providers (§3).
const CustomProviderPrefix = "custom-"

// IsCustomProvider reports whether name carries the custom- prefix.
func IsCustomProvider(name string) bool {
	return strings.HasPrefix(name, CustomProviderPrefix)
}

// DeriveProviderNameFromURL derives a provider name from a base URL's host,
// e.g. "https://api.together.ai/v1" -> "custom-together-ai". Ported from
// the original implementation's derive_provider_name_from_url.
func DeriveProviderNameFromURL(raw string) (string, bool) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return "", false
	}
	host := parsed.Hostname()
	stripped := strings.TrimPrefix(host, "api.")
	slug := strings.ReplaceAll(stripped, ".", "-")
	return CustomProviderPrefix + slug, true
}

// BaseURLToDisplayName extracts a human-friendly display name from a URL,
// e.g. "https://api.together.ai/v1" -> "together.ai".
func BaseURLToDisplayName(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return raw
	}
	host := parsed.Hostname()
	return strings.TrimPrefix(host, "api.")
}

// NormalizeBaseURLForCompare normalizes a base URL to scheme://host[:port]path
// (lowercased scheme/host, trailing slash trimmed) so two URLs that name the
// same endpoint compare equal regardless of casing or a trailing slash.
func NormalizeBaseURLForCompare(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return trimmed
	}
	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Hostname())
	normalized := scheme + "://" + host
	if port := parsed.Port(); port != "" {
		normalized += ":" + port
	}
	normalized += strings.TrimRight(parsed.Path, "/")
	return normalized
}

// MakeUniqueProviderName returns base if unused in existing, else base-2,
// base-3, ... Ported from make_unique_provider_name.
func MakeUniqueProviderName(base string, existing map[string]ProviderConfig) string {
	if _, taken := existing[base]; !taken {
		return base
	}
	for i := 2; ; i++ {
		candidate := base + "-" + strconv.Itoa(i)
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
	}
}

// FindExistingCustomProviderByURL returns the name of a pre-existing custom
// provider whose normalized base URL equals normalizedURL, if any (§3 "a
// pre-existing custom provider... is reused rather than duplicated").
func FindExistingCustomProviderByURL(store ProviderKeyStore, normalizedURL string) (string, bool) {
	for name, cfg := range store {
		if !IsCustomProvider(name) {
			continue
		}
		if NormalizeBaseURLForCompare(cfg.BaseURL) == normalizedURL {
			return name, true
		}
	}
	return "", false
}
