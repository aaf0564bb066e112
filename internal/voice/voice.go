// Package voice enriches voice-provider configuration with a small static
// substitution table rather than calling any concrete TTS/STT provider
// (§1 Non-goals: "voice provider HTTP calls" are an external collaborator).
// It also owns the session/channel voice-override handlers that sit on top
// of internal/sandbox's overlay maps (§3 "Sandbox overrides").
package voice

import (
	"github.com/moltis/gateway/internal/sandbox"
)

// Catalog entry describing one voice option a provider offers. Real catalog
// content (ElevenLabs voice ids, etc.) comes from the provider's HTTP API,
// out of core scope; this table only carries the shape UIs need to render
// a picker before a key is even configured.
type CatalogEntry struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
}

// DefaultCatalog is a small built-in substitution table, standing in for a
// live provider catalog fetch (§9 "may be substituted with a simpler
// enrichment table without affecting the core's contracts").
var DefaultCatalog = []CatalogEntry{
	{Provider: "elevenlabs", VoiceID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel"},
	{Provider: "elevenlabs", VoiceID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi"},
	{Provider: "openai", VoiceID: "alloy", Name: "Alloy"},
	{Provider: "openai", VoiceID: "verse", Name: "Verse"},
}

// Config is the gateway-held voice configuration snapshot (voice.config.get).
type Config struct {
	Provider string `json:"provider,omitempty"`
	VoiceID  string `json:"voice_id,omitempty"`
	Model    string `json:"model,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// Manager holds the process-wide voice config and delegates overrides to
// sandbox.Overrides' Voice sub-field.
type Manager struct {
	overrides *sandbox.Overrides
	cfg       Config
}

// NewManager constructs a Manager backed by overrides for per-session and
// per-channel overrides.
func NewManager(overrides *sandbox.Overrides) *Manager {
	return &Manager{overrides: overrides}
}

// Config returns the current process-wide voice configuration.
func (m *Manager) Config() Config { return m.cfg }

// SetConfig installs a new process-wide voice configuration
// (voice.config.save_settings).
func (m *Manager) SetConfig(cfg Config) { m.cfg = cfg }

// CatalogFor returns DefaultCatalog entries for provider, or the full
// catalog when provider is empty (voice.providers.all /
// voice.elevenlabs.catalog).
func CatalogFor(provider string) []CatalogEntry {
	if provider == "" {
		return DefaultCatalog
	}
	out := make([]CatalogEntry, 0, len(DefaultCatalog))
	for _, e := range DefaultCatalog {
		if e.Provider == provider {
			out = append(out, e)
		}
	}
	return out
}

// SetSessionOverride installs a session's voice override
// (voice.override.session.set).
func (m *Manager) SetSessionOverride(sessionKey string, ov sandbox.VoiceOverride) {
	existing, _ := m.overrides.Session(sessionKey)
	existing.Voice = &ov
	m.overrides.SetSession(sessionKey, existing)
}

// ClearSessionOverride removes a session's voice override, leaving any
// enabled/image override in place (voice.override.session.clear).
func (m *Manager) ClearSessionOverride(sessionKey string) {
	existing, ok := m.overrides.Session(sessionKey)
	if !ok {
		return
	}
	existing.Voice = nil
	m.overrides.SetSession(sessionKey, existing)
}

// SetChannelOverride installs a channel's voice override
// (voice.override.channel.set).
func (m *Manager) SetChannelOverride(channelType, accountID string, ov sandbox.VoiceOverride) {
	existing, _ := m.overrides.Channel(channelType, accountID)
	existing.Voice = &ov
	m.overrides.SetChannel(channelType, accountID, existing)
}

// ClearChannelOverride removes a channel's voice override
// (voice.override.channel.clear).
func (m *Manager) ClearChannelOverride(channelType, accountID string) {
	existing, ok := m.overrides.Channel(channelType, accountID)
	if !ok {
		return
	}
	existing.Voice = nil
	m.overrides.SetChannel(channelType, accountID, existing)
}
