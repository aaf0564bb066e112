package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltis/gateway/internal/sandbox"
)

func TestCatalogForFiltersByProvider(t *testing.T) {
	entries := CatalogFor("openai")
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, "openai", e.Provider)
	}
}

func TestCatalogForEmptyReturnsEverything(t *testing.T) {
	assert.Equal(t, DefaultCatalog, CatalogFor(""))
}

func TestSessionOverrideSetThenClearRemovesOnlyVoice(t *testing.T) {
	overrides := sandbox.NewOverrides()
	enabled := true
	overrides.SetSession("sess-1", sandbox.Override{Enabled: &enabled})

	m := NewManager(overrides)
	m.SetSessionOverride("sess-1", sandbox.VoiceOverride{Provider: "openai", VoiceID: "alloy"})

	ov, ok := overrides.Session("sess-1")
	require.True(t, ok)
	require.NotNil(t, ov.Voice)
	assert.Equal(t, "alloy", ov.Voice.VoiceID)
	assert.NotNil(t, ov.Enabled)

	m.ClearSessionOverride("sess-1")
	ov, ok = overrides.Session("sess-1")
	require.True(t, ok)
	assert.Nil(t, ov.Voice)
	assert.NotNil(t, ov.Enabled)
}

func TestChannelOverrideRoundTrip(t *testing.T) {
	overrides := sandbox.NewOverrides()
	m := NewManager(overrides)
	m.SetChannelOverride("telegram", "acct-1", sandbox.VoiceOverride{Provider: "elevenlabs", VoiceID: "21m00Tcm4TlvDq8ikWAM"})

	ov, ok := overrides.Channel("telegram", "acct-1")
	require.True(t, ok)
	require.NotNil(t, ov.Voice)
	assert.Equal(t, "elevenlabs", ov.Voice.Provider)

	m.ClearChannelOverride("telegram", "acct-1")
	ov, ok = overrides.Channel("telegram", "acct-1")
	require.True(t, ok)
	assert.Nil(t, ov.Voice)
}

func TestSetConfigAndConfigRoundTrip(t *testing.T) {
	m := NewManager(sandbox.NewOverrides())
	m.SetConfig(Config{Provider: "openai", VoiceID: "alloy", Enabled: true})
	assert.Equal(t, "openai", m.Config().Provider)
}
