package gwstate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/moltis/gateway/internal/protocol"
)

// defaultInboundRate and defaultInboundBurst bound how many inbound frames
// a single connection may submit per second before the read loop starts
// rejecting requests with a rate_limited error (§5, defensive ambient
// concern against a single runaway client starving the dispatch pool).
const (
	defaultInboundRate  = 50
	defaultInboundBurst = 100
)

// Sender pushes a serialized frame onto a connection's outbound channel.
// Implementations must be non-blocking-safe for broadcast's drop_if_slow
// mode: Send should return quickly, reporting back-pressure via ok=false
// rather than blocking the caller (§5 "slow consumers are silently skipped").
type Sender interface {
	Send(frame []byte) (ok bool)
	SendBlocking(frame []byte) error
	Close()
}

// Connection is one open WebSocket (§3).
type Connection struct {
	ConnID       string
	Role         protocol.Role
	Scopes       []protocol.Scope
	Platform     string
	ClientID     string
	AcceptLang   string
	RemoteIP     string
	Timezone     string
	ConnectedAt  time.Time
	out          Sender
	limiter      *rate.Limiter

	mu           sync.Mutex
	lastActivity time.Time
	sendSeq      uint64
}

// NewConnection constructs a Connection at handshake success.
func NewConnection(connID string, role protocol.Role, scopes []protocol.Scope, out Sender) *Connection {
	now := time.Now()
	return &Connection{
		ConnID:       connID,
		Role:         role,
		Scopes:       scopes,
		out:          out,
		limiter:      rate.NewLimiter(rate.Limit(defaultInboundRate), defaultInboundBurst),
		ConnectedAt:  now,
		lastActivity: now,
	}
}

// Allow reports whether the connection's inbound frame budget has room for
// one more request, consuming from the budget if so.
func (c *Connection) Allow() bool {
	return c.limiter.Allow()
}

// Touch records inbound activity; called on every inbound frame.
func (c *Connection) Touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

// LastActivity returns the last time an inbound frame was observed.
func (c *Connection) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// NextSeq returns the next per-connection event sequence number (§4.1,
// monotonically increasing per-connection sender).
func (c *Connection) NextSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendSeq++
	return c.sendSeq
}

// HasScope reports whether the connection carries scope.
func (c *Connection) HasScope(scope protocol.Scope) bool {
	return protocol.HasScope(c.Scopes, scope)
}

// IsOperator reports whether this connection's role is operator, letting
// Connection satisfy broadcast.Target without a Role()/field name clash.
func (c *Connection) IsOperator() bool {
	return c.Role == protocol.RoleOperator
}

// Send pushes frame without blocking; used for drop_if_slow broadcasts.
func (c *Connection) Send(frame []byte) bool {
	if c.out == nil {
		return false
	}
	return c.out.Send(frame)
}

// SendBlocking pushes frame, blocking until accepted or the connection is
// gone; used for node.invoke.request, where the call must reach the node.
func (c *Connection) SendBlocking(frame []byte) error {
	if c.out == nil {
		return protocol.Unavailablef("connection has no outbound sender")
	}
	return c.out.SendBlocking(frame)
}

// Close tears down the connection's outbound channel.
func (c *Connection) Close() {
	if c.out != nil {
		c.out.Close()
	}
}
