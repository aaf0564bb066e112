package hooks

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// HookInfo is one discovered, eligible hook handler (§3 "Hook registry").
type HookInfo struct {
	Manifest *Manifest
	Path     string // directory containing HOOK.md

	calls    atomic.Int64
	failures atomic.Int64
	totalNs  atomic.Int64
}

// RecordCall updates call/failure/latency counters after an invocation.
func (h *HookInfo) RecordCall(d time.Duration, failed bool) {
	h.calls.Add(1)
	h.totalNs.Add(d.Nanoseconds())
	if failed {
		h.failures.Add(1)
	}
}

// Counters snapshots a hook's live call statistics for hooks.list.
type Counters struct {
	Calls        int64
	Failures     int64
	TotalLatency time.Duration
}

// Snapshot reads h's current counters.
func (h *HookInfo) Snapshot() Counters {
	return Counters{
		Calls:        h.calls.Load(),
		Failures:     h.failures.Load(),
		TotalLatency: time.Duration(h.totalNs.Load()),
	}
}

// Registry holds discovered hooks and the persisted disabled-names set.
type Registry struct {
	log   *zap.Logger
	roots []string
	path  string // disabled_hooks.json path

	mu       sync.RWMutex
	hooks    map[string]*HookInfo
	disabled map[string]bool
}

// NewRegistry constructs a Registry that discovers hooks under roots and
// persists its disabled set at disabledHooksPath.
func NewRegistry(roots []string, disabledHooksPath string, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		log:      log.With(zap.String("component", "hooks")),
		roots:    roots,
		path:     disabledHooksPath,
		hooks:    make(map[string]*HookInfo),
		disabled: make(map[string]bool),
	}
}

// LoadDisabled reads the persisted disabled-names set. A missing file is
// treated as an empty set.
func (r *Registry) LoadDisabled() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var names []string
	if err := jsonUnmarshal(data, &names); err != nil {
		r.log.Warn("disabled_hooks.json is invalid, treating as empty", zap.Error(err))
		return nil
	}
	r.mu.Lock()
	r.disabled = make(map[string]bool, len(names))
	for _, n := range names {
		r.disabled[n] = true
	}
	r.mu.Unlock()
	return nil
}

// saveDisabled persists the current disabled-names set atomically.
func (r *Registry) saveDisabled() error {
	r.mu.RLock()
	names := make([]string, 0, len(r.disabled))
	for n := range r.disabled {
		names = append(names, n)
	}
	r.mu.RUnlock()
	data, err := jsonMarshalIndent(names)
	if err != nil {
		return err
	}
	return atomicWriteFile(r.path, data, 0o600)
}

// Discover walks every root, parses HOOK.md manifests, evaluates eligibility,
// and replaces the registered hook set (hooks.reload and startup).
func (r *Registry) Discover() error {
	fresh := make(map[string]*HookInfo)

	for _, root := range r.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			r.log.Warn("hook root unreadable", zap.String("root", root), zap.Error(err))
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			hookDir := filepath.Join(root, entry.Name())
			manifestPath := filepath.Join(hookDir, "HOOK.md")
			content, err := os.ReadFile(manifestPath)
			if err != nil {
				continue // no manifest in this directory: not a hook
			}
			m, err := ParseManifest(content)
			if err != nil {
				r.log.Warn("invalid hook manifest", zap.String("path", manifestPath), zap.Error(err))
				continue
			}
			if !eligible(m) {
				r.log.Debug("hook not eligible on this host", zap.String("name", m.Name))
				continue
			}
			fresh[m.Name] = &HookInfo{Manifest: m, Path: hookDir}
		}
	}

	r.mu.Lock()
	r.hooks = fresh
	r.mu.Unlock()
	return nil
}

// eligible evaluates OS/binary/env requirements from a manifest.
func eligible(m *Manifest) bool {
	if len(m.OS) > 0 {
		matched := false
		for _, os := range m.OS {
			if os == runtime.GOOS {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, bin := range m.RequiresBinary {
		if _, err := exec.LookPath(bin); err != nil {
			return false
		}
	}
	for _, env := range m.RequiresEnv {
		if os.Getenv(env) == "" {
			return false
		}
	}
	return true
}

// List returns discovered hooks enriched with live counters (hooks.list).
func (r *Registry) List() []*HookInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*HookInfo, 0, len(r.hooks))
	for _, h := range r.hooks {
		out = append(out, h)
	}
	return out
}

// IsDisabled reports whether name is in the disabled set.
func (r *Registry) IsDisabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.disabled[name]
}

// Enable removes name from the disabled set, persists it, and rediscovers
// (hooks.enable).
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	delete(r.disabled, name)
	r.mu.Unlock()
	if err := r.saveDisabled(); err != nil {
		return err
	}
	return r.Discover()
}

// Disable adds name to the disabled set, persists it, and rediscovers
// (hooks.disable).
func (r *Registry) Disable(name string) error {
	r.mu.Lock()
	r.disabled[name] = true
	r.mu.Unlock()
	if err := r.saveDisabled(); err != nil {
		return err
	}
	return r.Discover()
}

// Save writes content back to name's HOOK.md on disk and reloads
// (hooks.save).
func (r *Registry) Save(name, content string) error {
	r.mu.RLock()
	h, ok := r.hooks[name]
	r.mu.RUnlock()
	if !ok {
		return os.ErrNotExist
	}
	manifestPath := filepath.Join(h.Path, "HOOK.md")
	if err := atomicWriteFile(manifestPath, []byte(content), 0o644); err != nil {
		return err
	}
	return r.Discover()
}
