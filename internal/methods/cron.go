package methods

import (
	"context"
	"encoding/json"

	"github.com/moltis/gateway/internal/cron"
	"github.com/moltis/gateway/internal/protocol"
)

// registerCron installs the user-defined cron job registration group:
// cron.list/status/runs/add/update/remove/run. Unlike heartbeat.update,
// cron.add/cron.update install arbitrary non-reserved jobs.
func registerCron(reg *Registry, d Deps) {
	if d.Cron == nil {
		return
	}

	reg.Register("cron.list", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		return map[string]any{"jobs": d.Cron.List()}, nil
	})

	reg.Register("cron.status", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		return map[string]any{"jobs": d.Cron.List()}, nil
	})

	reg.Register("cron.runs", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			JobID string `json:"job_id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return map[string]any{"runs": d.Cron.Runs(p.JobID)}, nil
	})

	reg.Register("cron.add", cronUpsertHandler(d))
	reg.Register("cron.update", cronUpsertHandler(d))

	reg.Register("cron.remove", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			JobID string `json:"job_id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if err := d.Cron.Remove(p.JobID); err != nil {
			return nil, protocol.Unavailablef("remove job: %v", err)
		}
		return map[string]any{}, nil
	})

	reg.Register("cron.run", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			JobID string `json:"job_id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if err := d.Cron.Run(p.JobID); err != nil {
			return nil, protocol.Unavailablef("run job: %v", err)
		}
		return map[string]any{}, nil
	})
}

func cronUpsertHandler(d Deps) Handler {
	return func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var job cron.Job
		if err := unmarshalParams(params, &job); err != nil {
			return nil, err
		}
		if job.ID == "" {
			return nil, protocol.Invalidf("id is required")
		}
		if err := d.Cron.UpsertJob(&job); err != nil {
			return nil, protocol.Unavailablef("upsert job: %v", err)
		}
		return job, nil
	}
}
