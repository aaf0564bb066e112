package methods

import (
	"context"
	"encoding/json"
	"time"

	"github.com/moltis/gateway/internal/broadcast"
	"github.com/moltis/gateway/internal/cron"
	"github.com/moltis/gateway/internal/gwstate"
	"github.com/moltis/gateway/internal/protocol"
)

// registerCore installs the gateway-internal registration group: health,
// status, system-presence, system-event, last-heartbeat, set-heartbeats
// (§4.5).
func registerCore(reg *Registry, d Deps) {
	reg.Register("health", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		return map[string]any{"status": "ok"}, nil
	})

	reg.Register("status", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		clients := d.Gateway.Clients.Len()
		nodes := 0
		if d.Gateway.Nodes != nil {
			nodes = d.Gateway.Nodes.Len()
		}
		hb := d.Gateway.Heartbeat()
		return map[string]any{
			"connected_clients": clients,
			"registered_nodes":  nodes,
			"provider_version":  d.Gateway.Providers.Version(),
			"heartbeat_enabled": hb.Enabled,
		}, nil
	})

	reg.Register("system-presence", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var out []map[string]any
		d.Gateway.Clients.Range(func(connID string, c *gwstate.Connection) bool {
			out = append(out, map[string]any{
				"conn_id":  c.ConnID,
				"role":     c.Role,
				"platform": c.Platform,
			})
			return true
		})
		return map[string]any{"connections": out}, nil
	})

	reg.Register("system-event", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			Event   string `json:"event"`
			Payload any    `json:"payload"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if p.Event == "" {
			return nil, protocol.Invalidf("event is required")
		}
		if d.Broadcaster != nil {
			_ = d.Broadcaster.Broadcast(p.Event, p.Payload, broadcast.Options{Audience: broadcast.OperatorsOnly()})
		}
		return map[string]any{}, nil
	})

	reg.Register("last-heartbeat", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		if d.Cron == nil {
			return map[string]any{}, nil
		}
		runs := d.Cron.Runs(cron.HeartbeatJobID)
		if len(runs) == 0 {
			return map[string]any{}, nil
		}
		last := runs[len(runs)-1]
		return runRecordPayload(last), nil
	})

	reg.Register("set-heartbeats", handleHeartbeatUpdate(d))
}

func runRecordPayload(r cron.RunRecord) map[string]any {
	payload := map[string]any{
		"job_id":     r.JobID,
		"started_at": r.StartedAt.Format(time.RFC3339),
		"duration_ms": r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		payload["error"] = r.Err.Error()
	}
	return payload
}
