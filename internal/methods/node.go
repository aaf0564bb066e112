package methods

import (
	"context"
	"encoding/json"

	"github.com/moltis/gateway/internal/broadcast"
	"github.com/moltis/gateway/internal/gwstate"
	"github.com/moltis/gateway/internal/protocol"
)

// registerNode installs the node-facing registration group: node.list,
// node.describe, node.rename, node.invoke, node.invoke.result, node.event
// (§4.5, §"node.invoke"/"node.invoke.result").
func registerNode(reg *Registry, d Deps) {
	reg.Register("node.list", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var nodes []*gwstate.Node
		for _, n := range d.Gateway.Nodes.Values() {
			nodes = append(nodes, n)
		}
		return map[string]any{"nodes": nodes}, nil
	})

	reg.Register("node.describe", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			NodeID string `json:"node_id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		n, ok := d.Gateway.Nodes.Get(p.NodeID)
		if !ok {
			return nil, protocol.Invalidf("unknown node: %s", p.NodeID)
		}
		return n, nil
	})

	reg.Register("node.rename", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			NodeID      string `json:"node_id"`
			DisplayName string `json:"display_name"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		n, ok := d.Gateway.Nodes.Get(p.NodeID)
		if !ok {
			return nil, protocol.Invalidf("unknown node: %s", p.NodeID)
		}
		renamed := *n
		renamed.DisplayName = p.DisplayName
		d.Gateway.Nodes.Register(&renamed)
		d.Gateway.SyncRegisteredNodesGauge()
		return map[string]any{}, nil
	})

	reg.Register("node.invoke", handleNodeInvoke(d))

	reg.Register("node.invoke.result", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			InvokeID string          `json:"invoke_id"`
			Result   json.RawMessage `json:"result,omitempty"`
			Error    string          `json:"error,omitempty"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if p.InvokeID == "" {
			return nil, protocol.Invalidf("invoke_id is required")
		}
		var ok bool
		if p.Error != "" {
			ok = d.Gateway.PendingInvokes.Reject(p.InvokeID, protocol.Unavailablef("%s", p.Error))
		} else {
			ok = d.Gateway.PendingInvokes.Resolve(p.InvokeID, p.Result)
		}
		if !ok {
			return nil, protocol.Invalidf("unknown or already-resolved invoke_id: %s", p.InvokeID)
		}
		return map[string]any{}, nil
	})

	reg.Register("node.event", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			Event   string `json:"event"`
			Payload any    `json:"payload"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if d.Broadcaster != nil && p.Event != "" {
			_ = d.Broadcaster.Broadcast(p.Event, p.Payload, broadcast.Options{DropIfSlow: true, Audience: broadcast.OperatorsOnly()})
		}
		return map[string]any{}, nil
	})
}

// handleNodeInvoke builds node.invoke: allocate invoke_id, forward a
// node.invoke.request event to the node's own socket, and await the
// result with the pending-invoke table's 30s timeout (§"node.invoke").
func handleNodeInvoke(d Deps) Handler {
	return func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			NodeID  string          `json:"node_id"`
			Command string          `json:"command"`
			Args    json.RawMessage `json:"args,omitempty"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if p.NodeID == "" {
			return nil, protocol.Invalidf("node_id is required")
		}

		node, ok := d.Gateway.Nodes.Get(p.NodeID)
		if !ok {
			return nil, protocol.Unavailablef("node not connected: %s", p.NodeID)
		}
		target, ok := d.Gateway.Connection(node.ConnID)
		if !ok {
			return nil, protocol.Unavailablef("node not connected: %s", p.NodeID)
		}

		invokeID, wait := d.Gateway.PendingInvokes.Allocate(rc.ConnID)

		frame, err := json.Marshal(protocol.Event{
			Event: "node.invoke.request",
			Seq:   target.NextSeq(),
			Payload: map[string]any{
				"invoke_id": invokeID,
				"command":   p.Command,
				"args":      p.Args,
			},
		})
		if err != nil {
			d.Gateway.PendingInvokes.Reject(invokeID, err)
			return nil, protocol.Unavailablef("failed to encode invoke request: %v", err)
		}
		if err := target.SendBlocking(frame); err != nil {
			d.Gateway.PendingInvokes.Reject(invokeID, err)
			return nil, protocol.Unavailablef("failed to reach node %s: %v", p.NodeID, err)
		}

		return wait(ctx)
	}
}
