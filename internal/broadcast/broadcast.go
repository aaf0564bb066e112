// Package broadcast fans named events out to subsets of connected clients
// (§4.5 "Broadcast protocol").
package broadcast

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/moltis/gateway/internal/metrics"
	"github.com/moltis/gateway/internal/protocol"
)

// Standard broadcast topics (§4.5).
const (
	TopicSession              = "session"
	TopicChat                 = "chat"
	TopicSandboxImageBuild    = "sandbox.image.build"
	TopicSandboxImageProvide  = "sandbox.image.provision"
	TopicSkillsInstallProgress = "skills.install.progress"
	TopicProvidersValidate    = "providers.validate.progress"
	TopicVoiceConfigChanged   = "voice.config.changed"
	TopicHooksStatus          = "hooks.status"
	TopicNodePairRequested    = "node.pair.requested"
	TopicNodePairResolved     = "node.pair.resolved"
	TopicLogsEntry            = "logs.entry"
	TopicMetricsUpdate        = "metrics.update"
	TopicTick                 = "tick"
)

// Target is the minimal view broadcast needs of a connection: its role and
// scopes for audience filtering, and a non-blocking or blocking send.
type Target interface {
	HasScope(scope protocol.Scope) bool
	IsOperator() bool
	Send(frame []byte) bool
	SendBlocking(frame []byte) error
}

// AudienceFilter selects which connections receive an event. A nil filter
// means "every connection".
type AudienceFilter func(Target) bool

// Options configures one Broadcast call.
type Options struct {
	DropIfSlow bool
	Audience   AudienceFilter
}

// Broadcaster enumerates live connections and pushes serialized events.
type Broadcaster struct {
	log     *zap.Logger
	targets func() []Target
	nextSeq func(Target) uint64
	metrics *metrics.Collector
}

// SetMetrics wires a Collector so Broadcast records attempted and dropped
// sends per topic. Safe to leave unset.
func (b *Broadcaster) SetMetrics(c *metrics.Collector) {
	b.metrics = c
}

// NewBroadcaster constructs a Broadcaster. targets lists the current live
// connections; nextSeq returns a target's next per-connection sequence
// number (monotonically increasing per §4.1).
func NewBroadcaster(targets func() []Target, nextSeq func(Target) uint64, log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{log: log.With(zap.String("component", "broadcast")), targets: targets, nextSeq: nextSeq}
}

// Broadcast serializes payload under event into one frame per connection
// passing opts.Audience, each carrying that connection's own sequence
// number, and pushes it to that connection. DropIfSlow sends skip backpressured
// receivers instead of blocking (§5).
func (b *Broadcaster) Broadcast(event string, payload any, opts Options) error {
	for _, target := range b.targets() {
		if opts.Audience != nil && !opts.Audience(target) {
			continue
		}
		frame, err := json.Marshal(protocol.Event{
			Event:   event,
			Payload: payload,
			Seq:     b.nextSeq(target),
		})
		if err != nil {
			return err
		}
		if b.metrics != nil {
			b.metrics.BroadcastTotal.WithLabelValues(event).Inc()
		}
		if opts.DropIfSlow {
			if !target.Send(frame) {
				b.log.Debug("dropped slow broadcast target", zap.String("event", event))
				if b.metrics != nil {
					b.metrics.BroadcastDropped.WithLabelValues(event).Inc()
				}
			}
			continue
		}
		if err := target.SendBlocking(frame); err != nil {
			b.log.Warn("broadcast send failed", zap.String("event", event), zap.Error(err))
		}
	}
	return nil
}

// ScopeAudience returns an AudienceFilter restricting delivery to operator
// connections carrying scope (e.g. node.pair.requested -> pairing scope).
func ScopeAudience(scope protocol.Scope) AudienceFilter {
	return func(t Target) bool {
		return t.IsOperator() && t.HasScope(scope)
	}
}

// OperatorsOnly restricts delivery to every operator connection regardless
// of scope.
func OperatorsOnly() AudienceFilter {
	return func(t Target) bool {
		return t.IsOperator()
	}
}
