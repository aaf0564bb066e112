package pairing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltis/gateway/internal/protocol"
)

func newTestRegistry() *Registry {
	return NewRegistry(NewTokenIssuer([]byte("test-secret")), nil)
}

func TestApproveMintsTokenAndMarksApproved(t *testing.T) {
	reg := newTestRegistry()
	req := reg.Request("dev-1", "Phone", "ios", "")

	token, err := reg.Approve(req.ID, []protocol.Scope{protocol.ScopeRead})
	require.NoError(t, err)
	assert.Equal(t, "dev-1", token.DeviceID)
	assert.NotEmpty(t, token.Token)

	deviceID, scopes, err := reg.tokens.Verify(token.Token)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", deviceID)
	assert.Equal(t, []protocol.Scope{protocol.ScopeRead}, scopes)
}

func TestApproveTwiceFails(t *testing.T) {
	reg := newTestRegistry()
	req := reg.Request("dev-1", "Phone", "ios", "")
	_, err := reg.Approve(req.ID, nil)
	require.NoError(t, err)

	_, err = reg.Approve(req.ID, nil)
	assert.Error(t, err)
}

func TestRejectMarksRejected(t *testing.T) {
	reg := newTestRegistry()
	req := reg.Request("dev-1", "Phone", "ios", "")
	require.NoError(t, reg.Reject(req.ID))

	pending := reg.List()
	assert.Empty(t, pending)
}

func TestRevokeInvalidatesToken(t *testing.T) {
	reg := newTestRegistry()
	req := reg.Request("dev-1", "Phone", "ios", "")
	token, err := reg.Approve(req.ID, nil)
	require.NoError(t, err)

	require.NoError(t, reg.Revoke("dev-1"))

	_, _, err = reg.tokens.Verify(token.Token)
	assert.Error(t, err)
}

func TestRotateIssuesNewTokenAndRevokesOld(t *testing.T) {
	reg := newTestRegistry()
	req := reg.Request("dev-1", "Phone", "ios", "")
	oldToken, err := reg.Approve(req.ID, nil)
	require.NoError(t, err)

	newToken, err := reg.Rotate("dev-1", []protocol.Scope{protocol.ScopeWrite})
	require.NoError(t, err)
	assert.NotEqual(t, oldToken.Token, newToken.Token)

	_, _, err = reg.tokens.Verify(oldToken.Token)
	assert.Error(t, err)

	_, scopes, err := reg.tokens.Verify(newToken.Token)
	require.NoError(t, err)
	assert.Equal(t, []protocol.Scope{protocol.ScopeWrite}, scopes)
}

func TestListOnlyReturnsPending(t *testing.T) {
	reg := newTestRegistry()
	pending := reg.Request("dev-1", "Phone", "ios", "")
	approved := reg.Request("dev-2", "Laptop", "mac", "")
	_, err := reg.Approve(approved.ID, nil)
	require.NoError(t, err)

	got := reg.List()
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)
}
