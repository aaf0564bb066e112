package gwstate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moltis/gateway/internal/metrics"
	"github.com/moltis/gateway/internal/protocol"
)

// InvokeTimeout is node.invoke's hard suspension limit (§5).
const InvokeTimeout = 30 * time.Second

// PendingInvoke is one outstanding node.invoke awaiting its result (§3),
// grounded on the pending-response-channel-with-timeout pattern the teacher
// uses for human-in-the-loop interrupts.
type PendingInvoke struct {
	InvokeID  string
	RequestID string
	CreatedAt time.Time
	result    chan invokeOutcome
	once      sync.Once
}

type invokeOutcome struct {
	payload any
	err     error
}

// PendingInvokes tracks in-flight node.invoke calls keyed by invoke_id.
type PendingInvokes struct {
	guarded[string, *PendingInvoke]
	metrics *metrics.Collector
}

// NewPendingInvokes constructs an empty table.
func NewPendingInvokes() *PendingInvokes {
	return &PendingInvokes{guarded: newGuarded[string, *PendingInvoke]()}
}

// SetMetrics wires a Collector so the pending-invokes gauge tracks this
// table's size. Safe to leave unset.
func (p *PendingInvokes) SetMetrics(c *metrics.Collector) {
	p.metrics = c
}

func (p *PendingInvokes) syncGauge() {
	if p.metrics != nil {
		p.metrics.PendingInvokes.Set(float64(p.Len()))
	}
}

// Allocate creates a new PendingInvoke, installs it, and returns its
// invoke_id alongside a waiter that blocks until Resolve/Reject fires or
// ctx's deadline (capped at InvokeTimeout) elapses.
func (p *PendingInvokes) Allocate(requestID string) (invokeID string, wait func(ctx context.Context) (any, error)) {
	invokeID = uuid.NewString()
	entry := &PendingInvoke{
		InvokeID:  invokeID,
		RequestID: requestID,
		CreatedAt: time.Now(),
		result:    make(chan invokeOutcome, 1),
	}
	p.Set(invokeID, entry)
	p.syncGauge()

	wait = func(ctx context.Context) (any, error) {
		timeoutCtx, cancel := context.WithTimeout(ctx, InvokeTimeout)
		defer cancel()
		select {
		case out := <-entry.result:
			return out.payload, out.err
		case <-timeoutCtx.Done():
			// Removal happens exactly once: by timeout, cancellation, or
			// result arrival (§3 invariant).
			p.Delete(invokeID)
			p.syncGauge()
			return nil, protocol.NewError(protocol.ErrAgentTimeout, "node.invoke timed out")
		}
	}
	return invokeID, wait
}

// Resolve delivers a successful node.invoke.result, removing the entry. It
// reports false if invokeID is unknown (already resolved or timed out).
func (p *PendingInvokes) Resolve(invokeID string, payload any) bool {
	entry, ok := p.Get(invokeID)
	if !ok {
		return false
	}
	p.Delete(invokeID)
	p.syncGauge()
	entry.once.Do(func() {
		entry.result <- invokeOutcome{payload: payload}
	})
	return true
}

// Reject delivers a failed outcome, removing the entry.
func (p *PendingInvokes) Reject(invokeID string, err error) bool {
	entry, ok := p.Get(invokeID)
	if !ok {
		return false
	}
	p.Delete(invokeID)
	p.syncGauge()
	entry.once.Do(func() {
		entry.result <- invokeOutcome{err: err}
	})
	return true
}
