// Package channels tracks messaging-channel senders pending operator
// approval (§8 scenario 1, supplementing the distilled spec). Concrete
// channel transports (Telegram, Discord, ...) are external collaborators
// reached only through the Sender interface.
package channels

import (
	"context"
	"sync"

	"github.com/moltis/gateway/internal/protocol"
)

// Channel-type constants name the transports the spec's glossary mentions.
// Only Telegram is named explicitly; others may be added as collaborators
// are wired without changing this package's shape.
const (
	ChannelTypeTelegram = "telegram"
)

// SenderStatus is a ChannelSenderApproval's lifecycle state.
type SenderStatus string

const (
	SenderPending  SenderStatus = "pending"
	SenderApproved SenderStatus = "approved"
	SenderRejected SenderStatus = "rejected"
)

// SenderApproval tracks one inbound sender's approval state, gated by the
// write bucket for approve/reject and read for list (§4.4, [DOMAIN]).
type SenderApproval struct {
	ChannelType string
	AccountID   string
	SenderID    string
	DisplayName string
	Status      SenderStatus
}

func key(channelType, accountID, senderID string) string {
	return channelType + ":" + accountID + ":" + senderID
}

// Registry tracks sender approvals across every configured channel account.
type Registry struct {
	mu       sync.RWMutex
	senders  map[string]*SenderApproval
}

// NewRegistry constructs an empty sender-approval registry.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[string]*SenderApproval)}
}

// Observe records (or updates the display name of) an inbound sender the
// first time a message arrives from it, defaulting to pending.
func (r *Registry) Observe(channelType, accountID, senderID, displayName string) *SenderApproval {
	k := key(channelType, accountID, senderID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.senders[k]; ok {
		if displayName != "" {
			existing.DisplayName = displayName
		}
		return existing
	}
	approval := &SenderApproval{
		ChannelType: channelType,
		AccountID:   accountID,
		SenderID:    senderID,
		DisplayName: displayName,
		Status:      SenderPending,
	}
	r.senders[k] = approval
	return approval
}

// List returns every known sender approval (channels.senders.list).
func (r *Registry) List() []*SenderApproval {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*SenderApproval, 0, len(r.senders))
	for _, s := range r.senders {
		out = append(out, s)
	}
	return out
}

// Approve marks a sender approved (channels.senders.approve).
func (r *Registry) Approve(channelType, accountID, senderID string) error {
	return r.setStatus(channelType, accountID, senderID, SenderApproved)
}

// Reject marks a sender rejected (channels.senders.deny).
func (r *Registry) Reject(channelType, accountID, senderID string) error {
	return r.setStatus(channelType, accountID, senderID, SenderRejected)
}

func (r *Registry) setStatus(channelType, accountID, senderID string, status SenderStatus) error {
	k := key(channelType, accountID, senderID)
	r.mu.Lock()
	defer r.mu.Unlock()
	approval, ok := r.senders[k]
	if !ok {
		return protocol.Invalidf("unknown sender: %s", senderID)
	}
	approval.Status = status
	return nil
}

// IsApproved reports whether a sender is currently approved, used to gate
// inbound message handling.
func (r *Registry) IsApproved(channelType, accountID, senderID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	approval, ok := r.senders[key(channelType, accountID, senderID)]
	return ok && approval.Status == SenderApproved
}

// Sender delivers outbound messages to one channel account. Concrete
// transports (Telegram bot API, etc.) implement this outside core scope.
type Sender interface {
	Send(ctx context.Context, accountID, recipientID, text string) error
}
