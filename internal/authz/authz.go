// Package authz implements the gateway's role + scope authorization gate
// (§4.4): every inbound method maps into exactly one bucket, checked in a
// fixed order before dispatch ever reaches a handler.
package authz

import (
	"github.com/moltis/gateway/internal/protocol"
)

// Authorize checks method against role and scopes, returning nil if the
// call is authorized or a structured *protocol.Error naming the missing
// scope or role otherwise. Ported line-for-line in semantics from the
// original gateway's authorize_method.
func Authorize(method string, role protocol.Role, scopes []protocol.Scope) *protocol.Error {
	if isIn(method, nodeMethods) {
		if role == protocol.RoleNode {
			return nil
		}
		return protocol.UnauthorizedRole(string(role))
	}

	if role != protocol.RoleOperator {
		return protocol.UnauthorizedRole(string(role))
	}

	if protocol.HasScope(scopes, protocol.ScopeAdmin) {
		return nil
	}

	if isIn(method, approvalMethods) {
		if !protocol.HasScope(scopes, protocol.ScopeApprovals) {
			return protocol.MissingScope("approvals")
		}
		return nil
	}
	if isIn(method, pairingMethods) {
		if !protocol.HasScope(scopes, protocol.ScopePairing) {
			return protocol.MissingScope("pairing")
		}
		return nil
	}
	if isIn(method, readMethods) {
		if !(protocol.HasScope(scopes, protocol.ScopeRead) || protocol.HasScope(scopes, protocol.ScopeWrite)) {
			return protocol.MissingScope("read")
		}
		return nil
	}
	if isIn(method, writeMethods) {
		if !protocol.HasScope(scopes, protocol.ScopeWrite) {
			return protocol.MissingScope("write")
		}
		return nil
	}

	return protocol.MissingScope("admin")
}
