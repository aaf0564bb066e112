// Package ctxkeys defines the request-scoped values the gateway stitches
// into context.Context as a connection's request flows from the wire
// transport down into method handlers and back out through logging.
package ctxkeys

import (
	"context"

	"github.com/moltis/gateway/internal/protocol"
)

// contextKey is the key type stored in context.Context, private so values
// set here can only be read through the accessors below.
type contextKey string

const (
	connIDKey    contextKey = "conn_id"
	requestIDKey contextKey = "request_id"
	roleKey      contextKey = "role"
	scopesKey    contextKey = "scopes"
)

// WithConnID attaches the originating connection's id.
func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, connIDKey, connID)
}

// ConnID reads the connection id set by WithConnID.
func ConnID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(connIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithRequestID attaches the current request's id (the wire envelope's id,
// not a connection id), used to correlate log lines across a dispatch.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID reads the request id set by WithRequestID.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithRole attaches the caller's resolved role.
func WithRole(ctx context.Context, role protocol.Role) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// Role reads the role set by WithRole.
func Role(ctx context.Context) (protocol.Role, bool) {
	v, ok := ctx.Value(roleKey).(protocol.Role)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithScopes attaches the caller's granted scopes.
func WithScopes(ctx context.Context, scopes []protocol.Scope) context.Context {
	return context.WithValue(ctx, scopesKey, scopes)
}

// Scopes reads the scopes set by WithScopes.
func Scopes(ctx context.Context) ([]protocol.Scope, bool) {
	v, ok := ctx.Value(scopesKey).([]protocol.Scope)
	if !ok || len(v) == 0 {
		return nil, false
	}
	return v, true
}
