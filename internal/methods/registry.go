// Package methods is the gateway's name -> handler dispatch table (§4.5),
// grounded on the teacher's plugin/skill registry pattern for the map shape
// and on its RecoveryMiddleware for handler-panic containment.
package methods

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moltis/gateway/internal/authz"
	"github.com/moltis/gateway/internal/metrics"
	"github.com/moltis/gateway/internal/protocol"
)

// RequestContext carries the caller identity a handler needs, resolved by
// the transport layer at handshake time.
type RequestContext struct {
	ConnID string
	Role   protocol.Role
	Scopes []protocol.Scope
}

// Handler answers one request's params with a JSON-marshalable result or a
// typed error. Handlers never panic; Dispatch recovers defensively anyway.
type Handler func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error)

// Registry is the gateway's method table. Registration happens once at
// startup, from one or more grouped Register* functions; Dispatch is safe
// for concurrent use once registration is complete.
type Registry struct {
	log     *zap.Logger
	metrics *metrics.Collector

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry constructs an empty method table.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		log:      log.With(zap.String("component", "methods")),
		handlers: make(map[string]Handler),
	}
}

// SetMetrics wires a Collector so Dispatch records per-method counters and
// latencies. Safe to leave unset; Dispatch nil-checks it on every call.
func (r *Registry) SetMetrics(c *metrics.Collector) {
	r.metrics = c
}

// Register installs h under name, overwriting any previous registration
// (used by tests to stub out individual methods).
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
}

func (r *Registry) lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Dispatch implements wire.Dispatcher: it runs the authorization gate, looks
// up the handler, invokes it, and flattens the outcome to a wire Response
// (§4.5 "Run the authorization gate... Look up the handler... Await the
// handler").
func (r *Registry) Dispatch(ctx context.Context, connID string, role protocol.Role, scopes []protocol.Scope, req protocol.Request) protocol.Response {
	if authErr := authz.Authorize(req.Method, role, scopes); authErr != nil {
		if r.metrics != nil {
			r.metrics.AuthzDenied.WithLabelValues(req.Method).Inc()
		}
		return protocol.ErrResponse(req.ID, authErr)
	}

	h, ok := r.lookup(req.Method)
	if !ok {
		return protocol.ErrResponse(req.ID, protocol.Invalidf("unknown method: %s", req.Method))
	}

	rc := RequestContext{ConnID: connID, Role: role, Scopes: scopes}
	start := time.Now()
	result, err := r.invoke(ctx, h, rc, req.Params)
	if r.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		r.metrics.DispatchTotal.WithLabelValues(req.Method, outcome).Inc()
		r.metrics.DispatchDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return protocol.ErrResponse(req.ID, err)
	}
	return protocol.OkResponse(req.ID, result)
}

// invoke runs h, recovering a panic into an ErrUnavailable rather than
// letting it cross into the connection's read loop.
func (r *Registry) invoke(ctx context.Context, h Handler, rc RequestContext, params json.RawMessage) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("handler panicked", zap.Any("recovered", rec), zap.String("conn_id", rc.ConnID))
			err = protocol.Unavailablef("handler panic: %v", rec)
		}
	}()
	return h(ctx, rc, params)
}

// unmarshalParams decodes raw into dst, wrapping a decode failure as a
// structured invalid_request error rather than a bare encoding/json error.
func unmarshalParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return protocol.Invalidf("bad params: %v", err)
	}
	return nil
}
