package methods

import (
	"context"
	"encoding/json"

	"github.com/moltis/gateway/internal/broadcast"
	"github.com/moltis/gateway/internal/protocol"
)

// registerHooks installs hooks.list/enable/disable/save/reload (§4.7).
func registerHooks(reg *Registry, d Deps) {
	if d.Hooks == nil {
		return
	}

	reg.Register("hooks.list", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		hooks := d.Hooks.List()
		out := make([]map[string]any, 0, len(hooks))
		for _, h := range hooks {
			counters := h.Snapshot()
			out = append(out, map[string]any{
				"name":        h.Manifest.Name,
				"description": h.Manifest.Description,
				"events":      h.Manifest.Events,
				"disabled":    d.Hooks.IsDisabled(h.Manifest.Name),
				"calls":       counters.Calls,
				"failures":    counters.Failures,
			})
		}
		return map[string]any{"hooks": out}, nil
	})

	reg.Register("hooks.enable", hookToggleHandler(d, true))
	reg.Register("hooks.disable", hookToggleHandler(d, false))

	reg.Register("hooks.save", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			Name    string `json:"name"`
			Content string `json:"content"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if err := d.Hooks.Save(p.Name, p.Content); err != nil {
			return nil, protocol.Unavailablef("save hook: %v", err)
		}
		broadcastHooksStatus(d)
		return map[string]any{}, nil
	})

	reg.Register("hooks.reload", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		if err := d.Hooks.Discover(); err != nil {
			return nil, protocol.Unavailablef("reload hooks: %v", err)
		}
		broadcastHooksStatus(d)
		return map[string]any{}, nil
	})
}

func hookToggleHandler(d Deps, enable bool) Handler {
	return func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			Name string `json:"name"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		var err error
		if enable {
			err = d.Hooks.Enable(p.Name)
		} else {
			err = d.Hooks.Disable(p.Name)
		}
		if err != nil {
			return nil, protocol.Unavailablef("toggle hook: %v", err)
		}
		broadcastHooksStatus(d)
		return map[string]any{}, nil
	}
}

func broadcastHooksStatus(d Deps) {
	if d.Broadcaster == nil {
		return
	}
	_ = d.Broadcaster.Broadcast(broadcast.TopicHooksStatus, map[string]any{"hooks": d.Hooks.List()}, broadcast.Options{
		DropIfSlow: true,
		Audience:   broadcast.OperatorsOnly(),
	})
}
