// Package pairing implements node pairing requests and device-token
// lifecycle management (§3 PairRequest/DeviceToken, §4.5 "Pairing").
package pairing

import (
	"time"

	"github.com/moltis/gateway/internal/protocol"
)

// Status is a PairRequest's lifecycle state. Transitions are strictly
// pending -> approved | rejected (§3 invariant).
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// PairRequest is a node's request to be paired with an operator (§3).
type PairRequest struct {
	ID          string
	DeviceID    string
	DisplayName string
	Platform    string
	PublicKey   string
	Nonce       string
	Status      Status
	CreatedAt   time.Time
}

// DeviceToken is minted on approval (§3). Token is a signed JWT, opaque to
// the wire but structured and independently verifiable.
type DeviceToken struct {
	DeviceID string
	Token    string
	JTI      string
	Scopes   []protocol.Scope
	IssuedAt time.Time
}
