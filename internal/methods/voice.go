package methods

import (
	"context"
	"encoding/json"

	"github.com/moltis/gateway/internal/broadcast"
	"github.com/moltis/gateway/internal/protocol"
	"github.com/moltis/gateway/internal/sandbox"
	"github.com/moltis/gateway/internal/voice"
)

// registerVoice installs voice.config.get/save_settings, voice.providers.all,
// and the session/channel voice-override handlers.
func registerVoice(reg *Registry, d Deps) {
	if d.Voice == nil {
		return
	}

	reg.Register("voice.config.get", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		return d.Voice.Config(), nil
	})

	reg.Register("voice.config.save_settings", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var cfg voice.Config
		if err := unmarshalParams(params, &cfg); err != nil {
			return nil, err
		}
		d.Voice.SetConfig(cfg)
		if d.Broadcaster != nil {
			_ = d.Broadcaster.Broadcast(broadcast.TopicVoiceConfigChanged, cfg, broadcast.Options{
				DropIfSlow: true,
				Audience:   broadcast.OperatorsOnly(),
			})
		}
		return map[string]any{}, nil
	})

	reg.Register("voice.providers.all", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		return map[string]any{"catalog": voice.CatalogFor("")}, nil
	})

	reg.Register("voice.elevenlabs.catalog", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		return map[string]any{"catalog": voice.CatalogFor("elevenlabs")}, nil
	})

	reg.Register("voice.override.session.set", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			SessionKey string              `json:"session_key"`
			Override   sandbox.VoiceOverride `json:"override"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if p.SessionKey == "" {
			return nil, protocol.Invalidf("session_key is required")
		}
		d.Voice.SetSessionOverride(p.SessionKey, p.Override)
		return map[string]any{}, nil
	})

	reg.Register("voice.override.session.clear", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			SessionKey string `json:"session_key"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		d.Voice.ClearSessionOverride(p.SessionKey)
		return map[string]any{}, nil
	})

	reg.Register("voice.override.channel.set", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			ChannelType string              `json:"channel_type"`
			AccountID   string              `json:"account_id"`
			Override    sandbox.VoiceOverride `json:"override"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		d.Voice.SetChannelOverride(p.ChannelType, p.AccountID, p.Override)
		return map[string]any{}, nil
	})

	reg.Register("voice.override.channel.clear", func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		var p struct {
			ChannelType string `json:"channel_type"`
			AccountID   string `json:"account_id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		d.Voice.ClearChannelOverride(p.ChannelType, p.AccountID)
		return map[string]any{}, nil
	})
}
