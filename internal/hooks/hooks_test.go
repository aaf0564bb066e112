package hooks

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `---
name: notify-slack
description: posts a message to Slack
events: [chat.send]
command: ./notify.sh
---
# notify-slack

Posts session summaries to Slack.
`

func TestParseManifestValid(t *testing.T) {
	m, err := ParseManifest([]byte(validManifest))
	require.NoError(t, err)
	assert.Equal(t, "notify-slack", m.Name)
	assert.Equal(t, []string{"chat.send"}, m.Events)
	assert.Contains(t, m.Body, "Posts session summaries")
}

func TestParseManifestMissingRequiredField(t *testing.T) {
	_, err := ParseManifest([]byte("---\nname: x\n---\nbody"))
	assert.Error(t, err)
}

func TestParseManifestNoFrontMatter(t *testing.T) {
	_, err := ParseManifest([]byte("just markdown, no manifest"))
	assert.ErrorIs(t, err, errNoFrontMatter)
}

func writeHook(t *testing.T, root, name, manifest string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "HOOK.md"), []byte(manifest), 0o644))
}

func TestDiscoverRegistersEligibleHooks(t *testing.T) {
	root := t.TempDir()
	writeHook(t, root, "notify-slack", validManifest)

	reg := NewRegistry([]string{root}, filepath.Join(t.TempDir(), "disabled_hooks.json"), nil)
	require.NoError(t, reg.Discover())

	list := reg.List()
	require.Len(t, list, 1)
	assert.Equal(t, "notify-slack", list[0].Manifest.Name)
}

func TestDiscoverSkipsIneligibleOS(t *testing.T) {
	root := t.TempDir()
	other := "windows"
	if runtime.GOOS == "windows" {
		other = "plan9"
	}
	writeHook(t, root, "win-only", `---
name: win-only
events: [chat.send]
os: [`+other+`]
command: run.sh
---
body
`)
	reg := NewRegistry([]string{root}, filepath.Join(t.TempDir(), "disabled_hooks.json"), nil)
	require.NoError(t, reg.Discover())
	assert.Empty(t, reg.List())
}

func TestEnableDisableRoundTripsPersistence(t *testing.T) {
	root := t.TempDir()
	writeHook(t, root, "notify-slack", validManifest)
	disabledPath := filepath.Join(t.TempDir(), "disabled_hooks.json")

	reg := NewRegistry([]string{root}, disabledPath, nil)
	require.NoError(t, reg.Discover())
	require.NoError(t, reg.Disable("notify-slack"))
	assert.True(t, reg.IsDisabled("notify-slack"))

	reloaded := NewRegistry([]string{root}, disabledPath, nil)
	require.NoError(t, reloaded.LoadDisabled())
	assert.True(t, reloaded.IsDisabled("notify-slack"))

	require.NoError(t, reg.Enable("notify-slack"))
	assert.False(t, reg.IsDisabled("notify-slack"))
}

func TestHookInfoRecordsCounters(t *testing.T) {
	h := &HookInfo{Manifest: &Manifest{Name: "x"}}
	h.RecordCall(0, false)
	h.RecordCall(0, true)

	snap := h.Snapshot()
	assert.Equal(t, int64(2), snap.Calls)
	assert.Equal(t, int64(1), snap.Failures)
}
