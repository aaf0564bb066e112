package gwstate

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/moltis/gateway/internal/credentials"
	"github.com/moltis/gateway/internal/metrics"
	"github.com/moltis/gateway/internal/providerregistry"
)

// ChatService is the late-bound chat collaborator gwstate exposes through
// chat() (§4.6: "set late during startup because the chat service depends
// on the provider registry"). The concrete implementation lives outside
// core scope.
type ChatService interface {
	Resolve(ctx context.Context, connID, sessionKey string) error
	MarkSeen(ctx context.Context, sessionKey string) error
}

// HeartbeatSnapshot mirrors the cron component's current heartbeat config
// (§4.5 "Heartbeat").
type HeartbeatSnapshot struct {
	Enabled       bool
	Every         string
	Prompt        string
	Model         string
	SandboxEnable bool
	SandboxImage  string
}

// Gateway is the shared, interior-mutable, per-process singleton binding
// connections, sessions, nodes, and service handles (§4.6). Each field that
// mutates concurrently is its own guarded structure; Gateway itself never
// holds a single outer lock across an await, matching §4.6's invariant.
type Gateway struct {
	log *zap.Logger

	Clients        guarded[string, *Connection]
	Nodes          *NodeRegistry
	PendingInvokes *PendingInvokes
	Sessions       *ActiveSessions
	Providers      *providerregistry.Registry

	hbMu      sync.RWMutex
	heartbeat HeartbeatSnapshot

	chatMu sync.RWMutex
	chat   ChatService

	priorityMu     sync.RWMutex
	priorityModels []string

	metrics *metrics.Collector
}

// SetMetrics wires a Collector so AddConnection/RemoveConnection and node
// registration keep its connected-client/registered-node gauges current.
// Safe to leave unset.
func (g *Gateway) SetMetrics(c *metrics.Collector) {
	g.metrics = c
}

// New constructs an empty Gateway. Service handles and the provider
// registry are wired by the composition root (cmd/moltisgw).
func New(log *zap.Logger, providers *providerregistry.Registry) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		log:            log.With(zap.String("component", "gwstate")),
		Clients:        newGuarded[string, *Connection](),
		Nodes:          NewNodeRegistry(),
		PendingInvokes: NewPendingInvokes(),
		Sessions:       NewActiveSessions(),
		Providers:      providers,
	}
}

// AddConnection registers a newly handshaken connection.
func (g *Gateway) AddConnection(c *Connection) {
	g.Clients.Set(c.ConnID, c)
	g.syncConnectedClientsGauge()
}

// RemoveConnection tears down a connection's bookkeeping on socket close.
func (g *Gateway) RemoveConnection(connID string) {
	g.Clients.Delete(connID)
	g.Sessions.Forget(connID)
	g.syncConnectedClientsGauge()
}

func (g *Gateway) syncConnectedClientsGauge() {
	if g.metrics != nil {
		g.metrics.ConnectedClients.Set(float64(g.Clients.Len()))
	}
}

// SyncRegisteredNodesGauge recomputes the registered-nodes gauge from the
// current node registry size. Called after node.list-affecting mutations
// (node registration, pairing approval, device revocation) since NodeRegistry
// itself has no Gateway back-reference to update the gauge inline.
func (g *Gateway) SyncRegisteredNodesGauge() {
	if g.metrics != nil {
		g.metrics.RegisteredNodes.Set(float64(g.Nodes.Len()))
	}
}

// Connection looks up a live connection by conn_id.
func (g *Gateway) Connection(connID string) (*Connection, bool) {
	return g.Clients.Get(connID)
}

// Heartbeat returns the current heartbeat config snapshot.
func (g *Gateway) Heartbeat() HeartbeatSnapshot {
	g.hbMu.RLock()
	defer g.hbMu.RUnlock()
	return g.heartbeat
}

// SetHeartbeat installs a new heartbeat config snapshot (heartbeat.update).
func (g *Gateway) SetHeartbeat(snap HeartbeatSnapshot) {
	g.hbMu.Lock()
	g.heartbeat = snap
	g.hbMu.Unlock()
}

// PriorityModels returns the process-wide priority model list shared with
// the model picker (§4.3 save_model / save_models).
func (g *Gateway) PriorityModels() []string {
	g.priorityMu.RLock()
	defer g.priorityMu.RUnlock()
	out := make([]string, len(g.priorityModels))
	copy(out, g.priorityModels)
	return out
}

// PrependPriorityModels prepends models to the priority list, deduplicating.
func (g *Gateway) PrependPriorityModels(models []string) {
	g.priorityMu.Lock()
	g.priorityModels = credentials.PrependModels(g.priorityModels, models)
	g.priorityMu.Unlock()
}

// Chat returns the currently installed chat service, or nil before startup
// finishes wiring it.
func (g *Gateway) Chat() ChatService {
	g.chatMu.RLock()
	defer g.chatMu.RUnlock()
	return g.chat
}

// SetChat installs the chat service late during startup.
func (g *Gateway) SetChat(svc ChatService) {
	g.chatMu.Lock()
	g.chat = svc
	g.chatMu.Unlock()
}

// BackgroundTask is one supervised goroutine started by Run: periodic
// broadcast tick, log broadcast, cron scheduler, registry rebuilds, and
// similar long-lived loops (§5).
type BackgroundTask func(ctx context.Context) error

// Run starts every background task under a single errgroup so that one
// task's unexpected exit cancels the others and is reported to the caller,
// mirroring the teacher's supervised-worker-pool approach in internal/pool.
func (g *Gateway) Run(ctx context.Context, tasks ...BackgroundTask) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		group.Go(func() error {
			if err := task(ctx); err != nil {
				g.log.Warn("background task exited", zap.Error(err))
				return err
			}
			return nil
		})
	}
	return group.Wait()
}
