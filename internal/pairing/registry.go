package pairing

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moltis/gateway/internal/protocol"
)

// Registry tracks pending PairRequests and issued device tokens. A request's
// status transitions strictly pending -> approved | rejected; approved
// requests produce exactly one device token (§3 invariant).
type Registry struct {
	log    *zap.Logger
	tokens *TokenIssuer

	mu       sync.Mutex
	requests map[string]*PairRequest
	active   map[string]string // device_id -> active token jti
}

// NewRegistry constructs a Registry backed by tokens for minting/verifying
// device tokens.
func NewRegistry(tokens *TokenIssuer, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		log:      log.With(zap.String("component", "pairing")),
		tokens:   tokens,
		requests: make(map[string]*PairRequest),
		active:   make(map[string]string),
	}
}

// Request creates a new pending PairRequest (node.pair.request).
func (r *Registry) Request(deviceID, displayName, platform, publicKey string) *PairRequest {
	req := &PairRequest{
		ID:          uuid.NewString(),
		DeviceID:    deviceID,
		DisplayName: displayName,
		Platform:    platform,
		PublicKey:   publicKey,
		Nonce:       uuid.NewString(),
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
	r.mu.Lock()
	r.requests[req.ID] = req
	r.mu.Unlock()
	return req
}

// List returns every pending PairRequest (node.pair.list).
func (r *Registry) List() []*PairRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*PairRequest, 0, len(r.requests))
	for _, req := range r.requests {
		if req.Status == StatusPending {
			out = append(out, req)
		}
	}
	return out
}

// Approve mints a device token for req.DeviceID with scopes, marking the
// request approved (node.pair.approve).
func (r *Registry) Approve(id string, scopes []protocol.Scope) (*DeviceToken, error) {
	r.mu.Lock()
	req, ok := r.requests[id]
	if !ok {
		r.mu.Unlock()
		return nil, protocol.Invalidf("unknown pair request: %s", id)
	}
	if req.Status != StatusPending {
		r.mu.Unlock()
		return nil, protocol.Invalidf("pair request %s is already %s", id, req.Status)
	}
	req.Status = StatusApproved
	deviceID := req.DeviceID
	r.mu.Unlock()

	token, err := r.tokens.Mint(deviceID, scopes)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.active[deviceID] = token.JTI
	r.mu.Unlock()
	return token, nil
}

// Reject marks req as rejected (node.pair.reject).
func (r *Registry) Reject(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return protocol.Invalidf("unknown pair request: %s", id)
	}
	if req.Status != StatusPending {
		return protocol.Invalidf("pair request %s is already %s", id, req.Status)
	}
	req.Status = StatusRejected
	return nil
}

// Rotate revokes deviceID's current token and mints a replacement
// (device.token.rotate).
func (r *Registry) Rotate(deviceID string, scopes []protocol.Scope) (*DeviceToken, error) {
	if err := r.Revoke(deviceID); err != nil {
		r.log.Debug("rotate: no prior token to revoke", zap.String("device_id", deviceID))
	}
	token, err := r.tokens.Mint(deviceID, scopes)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.active[deviceID] = token.JTI
	r.mu.Unlock()
	return token, nil
}

// Revoke invalidates deviceID's active token (device.token.revoke).
func (r *Registry) Revoke(deviceID string) error {
	r.mu.Lock()
	jti, ok := r.active[deviceID]
	if ok {
		delete(r.active, deviceID)
	}
	r.mu.Unlock()
	if !ok {
		return protocol.Invalidf("no active token for device: %s", deviceID)
	}
	r.tokens.Revoke(jti)
	return nil
}
