package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moltis/gateway/internal/protocol"
)

func TestConnIDRoundTrip(t *testing.T) {
	ctx := WithConnID(context.Background(), "conn-1")
	got, ok := ConnID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "conn-1", got)
}

func TestConnIDMissingReturnsFalse(t *testing.T) {
	_, ok := ConnID(context.Background())
	assert.False(t, ok)
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	got, ok := RequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-42", got)
}

func TestRoleRoundTrip(t *testing.T) {
	ctx := WithRole(context.Background(), protocol.RoleOperator)
	got, ok := Role(ctx)
	assert.True(t, ok)
	assert.Equal(t, protocol.RoleOperator, got)
}

func TestScopesRoundTrip(t *testing.T) {
	scopes := []protocol.Scope{protocol.ScopeRead, protocol.ScopeWrite}
	ctx := WithScopes(context.Background(), scopes)
	got, ok := Scopes(ctx)
	assert.True(t, ok)
	assert.Equal(t, scopes, got)
}

func TestScopesEmptyReturnsFalse(t *testing.T) {
	ctx := WithScopes(context.Background(), nil)
	_, ok := Scopes(ctx)
	assert.False(t, ok)
}
