package methods

import (
	"context"
	"encoding/json"

	"github.com/moltis/gateway/internal/cron"
	"github.com/moltis/gateway/internal/gwstate"
	"github.com/moltis/gateway/internal/protocol"
)

// registerHeartbeat installs heartbeat.update, heartbeat.run, and
// heartbeat.runs (§"Heartbeat"). heartbeat.status is served by the read
// bucket straight off the gwstate snapshot.
func registerHeartbeat(reg *Registry, d Deps) {
	reg.Register("heartbeat.update", handleHeartbeatUpdate(d))

	reg.Register("heartbeat.run", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		if d.Cron == nil {
			return nil, protocol.Unavailablef("cron scheduler not configured")
		}
		if err := d.Cron.Run(cron.HeartbeatJobID); err != nil {
			return nil, protocol.Unavailablef("run heartbeat: %v", err)
		}
		return map[string]any{}, nil
	})

	reg.Register("heartbeat.runs", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		if d.Cron == nil {
			return map[string]any{"runs": []cron.RunRecord{}}, nil
		}
		return map[string]any{"runs": d.Cron.Runs(cron.HeartbeatJobID)}, nil
	})

	reg.Register("heartbeat.status", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		snap := d.Gateway.Heartbeat()
		return snap, nil
	})
}

func handleHeartbeatUpdate(d Deps) Handler {
	return func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		if d.Cron == nil {
			return nil, protocol.Unavailablef("cron scheduler not configured")
		}
		var p struct {
			Schedule      string `json:"schedule"`
			Enabled       bool   `json:"enabled"`
			Prompt        string `json:"prompt"`
			Model         string `json:"model"`
			SandboxEnable bool   `json:"sandbox_enable"`
			SandboxImage  string `json:"sandbox_image"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if p.Schedule == "" {
			return nil, protocol.Invalidf("schedule is required")
		}

		job, err := d.Cron.UpsertHeartbeat(p.Schedule, p.Enabled, p.Prompt, p.Model, p.SandboxEnable, p.SandboxImage)
		if err != nil {
			return nil, protocol.Unavailablef("update heartbeat: %v", err)
		}

		d.Gateway.SetHeartbeat(gwstate.HeartbeatSnapshot{
			Enabled:       job.Enabled,
			Every:         job.Schedule,
			Prompt:        job.Prompt,
			Model:         job.Model,
			SandboxEnable: job.SandboxEnable,
			SandboxImage:  job.SandboxImage,
		})
		return job, nil
	}
}
