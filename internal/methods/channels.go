package methods

import (
	"context"
	"encoding/json"
)

// registerChannels installs channels.senders.list/approve/deny (§8 scenario
// 1, supplemented).
func registerChannels(reg *Registry, d Deps) {
	if d.Channels == nil {
		return
	}

	reg.Register("channels.senders.list", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		return map[string]any{"senders": d.Channels.List()}, nil
	})

	reg.Register("channels.senders.approve", channelsSenderDecision(d, true))
	reg.Register("channels.senders.deny", channelsSenderDecision(d, false))
}

func channelsSenderDecision(d Deps, approve bool) Handler {
	return func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			ChannelType string `json:"channel_type"`
			AccountID   string `json:"account_id"`
			SenderID    string `json:"sender_id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		var err error
		if approve {
			err = d.Channels.Approve(p.ChannelType, p.AccountID, p.SenderID)
		} else {
			err = d.Channels.Reject(p.ChannelType, p.AccountID, p.SenderID)
		}
		if err != nil {
			return nil, err
		}
		return map[string]any{}, nil
	}
}
