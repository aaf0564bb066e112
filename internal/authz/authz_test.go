package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moltis/gateway/internal/protocol"
)

func TestNodeMethodRequiresNodeRole(t *testing.T) {
	assert.Nil(t, Authorize("node.event", protocol.RoleNode, nil))

	err := Authorize("node.event", protocol.RoleOperator, []protocol.Scope{protocol.ScopeAdmin})
	assert.NotNil(t, err)
	assert.Equal(t, protocol.ErrInvalidRequest, err.Code)
}

func TestNodeCannotCallOperatorMethod(t *testing.T) {
	err := Authorize("health", protocol.RoleNode, nil)
	assert.NotNil(t, err)
	assert.Contains(t, err.Message, "unauthorized role: node")
}

func TestAdminScopeBypassesAllBuckets(t *testing.T) {
	scopes := []protocol.Scope{protocol.ScopeAdmin}
	assert.Nil(t, Authorize("hooks.enable", protocol.RoleOperator, scopes))
	assert.Nil(t, Authorize("node.pair.approve", protocol.RoleOperator, scopes))
}

func TestReadMethodAcceptsReadOrWriteScope(t *testing.T) {
	assert.Nil(t, Authorize("health", protocol.RoleOperator, []protocol.Scope{protocol.ScopeRead}))
	assert.Nil(t, Authorize("health", protocol.RoleOperator, []protocol.Scope{protocol.ScopeWrite}))

	err := Authorize("health", protocol.RoleOperator, []protocol.Scope{protocol.ScopeApprovals})
	assert.NotNil(t, err)
	assert.Contains(t, err.Message, "missing scope: operator.read")
}

func TestWriteMethodRequiresWriteScope(t *testing.T) {
	err := Authorize("chat.send", protocol.RoleOperator, []protocol.Scope{protocol.ScopeRead})
	assert.NotNil(t, err)
	assert.Contains(t, err.Message, "missing scope: operator.write")

	assert.Nil(t, Authorize("chat.send", protocol.RoleOperator, []protocol.Scope{protocol.ScopeWrite}))
}

func TestApprovalAndPairingBuckets(t *testing.T) {
	err := Authorize("exec.approval.request", protocol.RoleOperator, []protocol.Scope{protocol.ScopeWrite})
	assert.NotNil(t, err)
	assert.Contains(t, err.Message, "missing scope: operator.approvals")
	assert.Nil(t, Authorize("exec.approval.request", protocol.RoleOperator, []protocol.Scope{protocol.ScopeApprovals}))

	err = Authorize("node.pair.request", protocol.RoleOperator, []protocol.Scope{protocol.ScopeWrite})
	assert.NotNil(t, err)
	assert.Contains(t, err.Message, "missing scope: operator.pairing")
	assert.Nil(t, Authorize("node.pair.request", protocol.RoleOperator, []protocol.Scope{protocol.ScopePairing}))
}

func TestUnknownMethodFallsThroughToAdminOnly(t *testing.T) {
	err := Authorize("some.unlisted.method", protocol.RoleOperator, []protocol.Scope{protocol.ScopeWrite, protocol.ScopeRead})
	assert.NotNil(t, err)
	assert.Contains(t, err.Message, "missing scope: operator.admin")
}
