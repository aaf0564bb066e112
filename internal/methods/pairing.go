package methods

import (
	"context"
	"encoding/json"

	"github.com/moltis/gateway/internal/broadcast"
	"github.com/moltis/gateway/internal/protocol"
)

// registerPairing installs the node-pairing registration group (§"Pairing"):
// node.pair.request/list/approve/reject/verify and device.token.rotate/revoke.
func registerPairing(reg *Registry, d Deps) {
	if d.Pairing == nil {
		return
	}

	reg.Register("node.pair.request", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			DeviceID    string `json:"device_id"`
			DisplayName string `json:"display_name"`
			Platform    string `json:"platform"`
			PublicKey   string `json:"public_key"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		req := d.Pairing.Request(p.DeviceID, p.DisplayName, p.Platform, p.PublicKey)
		if d.Broadcaster != nil {
			_ = d.Broadcaster.Broadcast(broadcast.TopicNodePairRequested, req, broadcast.Options{
				Audience: broadcast.ScopeAudience(protocol.ScopePairing),
			})
		}
		return map[string]any{"id": req.ID, "nonce": req.Nonce}, nil
	})

	reg.Register("node.pair.list", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		return map[string]any{"requests": d.Pairing.List()}, nil
	})

	reg.Register("node.pair.approve", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			ID     string   `json:"id"`
			Scopes []string `json:"scopes"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		token, err := d.Pairing.Approve(p.ID, protocol.ParseScopes(p.Scopes))
		if err != nil {
			return nil, err
		}
		if d.Broadcaster != nil {
			_ = d.Broadcaster.Broadcast(broadcast.TopicNodePairResolved, map[string]any{"id": p.ID, "status": "approved"}, broadcast.Options{
				Audience: broadcast.ScopeAudience(protocol.ScopePairing),
			})
		}
		return map[string]any{"deviceToken": token.Token, "scopes": token.Scopes}, nil
	})

	reg.Register("node.pair.reject", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			ID string `json:"id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if err := d.Pairing.Reject(p.ID); err != nil {
			return nil, err
		}
		if d.Broadcaster != nil {
			_ = d.Broadcaster.Broadcast(broadcast.TopicNodePairResolved, map[string]any{"id": p.ID, "status": "rejected"}, broadcast.Options{
				Audience: broadcast.ScopeAudience(protocol.ScopePairing),
			})
		}
		return map[string]any{}, nil
	})

	// node.pair.verify is reserved for a future signature challenge; its
	// handler currently acknowledges (§"Pairing").
	reg.Register("node.pair.verify", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		return map[string]any{"acknowledged": true}, nil
	})

	reg.Register("device.token.rotate", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			DeviceID string   `json:"device_id"`
			Scopes   []string `json:"scopes"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		token, err := d.Pairing.Rotate(p.DeviceID, protocol.ParseScopes(p.Scopes))
		if err != nil {
			return nil, err
		}
		return map[string]any{"deviceToken": token.Token, "scopes": token.Scopes}, nil
	})

	reg.Register("device.token.revoke", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			DeviceID string `json:"device_id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if err := d.Pairing.Revoke(p.DeviceID); err != nil {
			return nil, err
		}
		return map[string]any{}, nil
	})
}
