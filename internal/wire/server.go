// Package wire implements the gateway's HTTP/WebSocket transport: the /ws
// upgrade, /health, and /auth/callback routes (§6 External Interfaces).
package wire

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moltis/gateway/internal/ctxkeys"
	"github.com/moltis/gateway/internal/gwstate"
	"github.com/moltis/gateway/internal/pool"
	"github.com/moltis/gateway/internal/protocol"
)

// Dispatcher routes one parsed Request to its handler and returns the
// Response to write back, given the connection's identity.
type Dispatcher interface {
	Dispatch(ctx context.Context, connID string, role protocol.Role, scopes []protocol.Scope, req protocol.Request) protocol.Response
}

// Identity resolves a handshake's role/scopes/client metadata from the
// upgrade request (auth header, query params, or a paired device token).
type Identity struct {
	Role       protocol.Role
	Scopes     []protocol.Scope
	Platform   string
	ClientID   string
	AcceptLang string
}

// Authenticator resolves an Identity from an inbound upgrade request,
// returning an error to reject the handshake.
type Authenticator interface {
	Authenticate(r *http.Request) (Identity, error)
}

// Server is the gateway's HTTP/WS listener.
type Server struct {
	log      *zap.Logger
	gw       *gwstate.Gateway
	dispatch Dispatcher
	auth     Authenticator
	mux      *http.ServeMux
	workers  *pool.GoroutinePool

	tickInterval time.Duration
}

// Config configures Server construction.
type Config struct {
	TickInterval time.Duration // default 5s
	MaxWorkers   int           // default 100, bounds concurrent in-flight dispatches
}

// NewServer wires a Server around gw, dispatching inbound requests through
// dispatch and authenticating handshakes through auth. Dispatch goroutines
// run under a bounded worker pool rather than one goroutine per request, so
// a burst of inbound frames cannot spawn unbounded concurrency alongside
// the per-connection rate limiter.
func NewServer(gw *gwstate.Gateway, dispatch Dispatcher, auth Authenticator, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 5 * time.Second
	}
	poolCfg := pool.DefaultGoroutinePoolConfig()
	if cfg.MaxWorkers > 0 {
		poolCfg.MaxWorkers = cfg.MaxWorkers
	}
	s := &Server{
		log:          log.With(zap.String("component", "wire")),
		gw:           gw,
		dispatch:     dispatch,
		auth:         auth,
		mux:          http.NewServeMux(),
		workers:      pool.NewGoroutinePool(poolCfg),
		tickInterval: cfg.TickInterval,
	}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.HandleFunc("/auth/callback", s.handleAuthCallback)
	return s
}

// Handler exposes the registered routes for http.ListenAndServe / testing.
func (s *Server) Handler() http.Handler { return s.mux }

// Close drains the dispatch worker pool, waiting for in-flight requests to
// finish. Call after the HTTP listener stops accepting new connections.
func (s *Server) Close() {
	s.workers.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"workers": s.workers.Stats(),
	})
}

// handleAuthCallback completes server-callback-mode OAuth flows
// (providers.oauth_start / oauth_complete, §4.3).
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		http.Error(w, "missing state or code", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte("<html><body>Authentication complete. You may close this window.</body></html>"))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" {
		if !isSameOrigin(origin, r.Host) {
			http.Error(w, "origin mismatch", http.StatusForbidden)
			return
		}
	}

	identity, err := s.auth.Authenticate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // same-origin already verified above
	})
	if err != nil {
		return
	}

	connID := uuid.NewString()
	sender := newSocketSender(ws)
	conn := gwstate.NewConnection(connID, identity.Role, identity.Scopes, sender)
	conn.Platform = identity.Platform
	conn.ClientID = identity.ClientID
	conn.AcceptLang = identity.AcceptLang
	conn.RemoteIP = r.RemoteAddr

	s.gw.AddConnection(conn)
	if identity.Role == protocol.RoleNode {
		s.registerNode(conn, r.RemoteAddr)
	}
	s.log.Info("connection opened", zap.String("conn_id", connID), zap.String("role", string(identity.Role)))
	defer func() {
		s.gw.RemoveConnection(connID)
		conn.Close()
		s.log.Info("connection closed", zap.String("conn_id", connID))
	}()

	s.readLoop(r.Context(), ws, conn)
}

// registerNode installs or refreshes a Node entry for a paired device's
// socket (§3: "at most one live connection exists per NodeID"). ClientID
// carries the paired device id minted at pairing approval.
func (s *Server) registerNode(conn *gwstate.Connection, remoteAddr string) {
	nodeID := conn.ClientID
	if nodeID == "" {
		return
	}
	n, existing := s.gw.Nodes.Get(nodeID)
	if !existing {
		n = &gwstate.Node{NodeID: nodeID, RegisteredAt: time.Now()}
	} else {
		updated := *n
		n = &updated
	}
	n.Platform = conn.Platform
	n.RemoteIP = remoteAddr
	n.ConnID = conn.ConnID
	s.gw.Nodes.Register(n)
	s.gw.SyncRegisteredNodesGauge()
}

func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, conn *gwstate.Connection) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		conn.Touch()

		var req protocol.Request
		if err := json.Unmarshal(data, &req); err != nil {
			resp := protocol.ErrResponse("", protocol.Invalidf("malformed request: %v", err))
			s.writeResponse(conn, resp)
			continue
		}

		if !conn.Allow() {
			s.writeResponse(conn, protocol.ErrResponse(req.ID, protocol.RateLimited()))
			continue
		}

		submitErr := s.workers.Submit(ctx, func(taskCtx context.Context) error {
			reqCtx := ctxkeys.WithConnID(taskCtx, conn.ConnID)
			reqCtx = ctxkeys.WithRequestID(reqCtx, req.ID)
			reqCtx = ctxkeys.WithRole(reqCtx, conn.Role)
			reqCtx = ctxkeys.WithScopes(reqCtx, conn.Scopes)
			resp := s.dispatch.Dispatch(reqCtx, conn.ConnID, conn.Role, conn.Scopes, req)
			s.writeResponse(conn, resp)
			return nil
		})
		if submitErr != nil {
			s.writeResponse(conn, protocol.ErrResponse(req.ID, protocol.Unavailablef("dispatch pool saturated")))
		}
	}
}

func (s *Server) writeResponse(conn *gwstate.Connection, resp protocol.Response) {
	frame, err := json.Marshal(resp)
	if err != nil {
		s.log.Warn("failed to marshal response", zap.Error(err))
		return
	}
	if err := conn.SendBlocking(frame); err != nil {
		s.log.Debug("response send failed, connection likely closed", zap.Error(err))
	}
}

// TickLoop emits a periodic tick event via broadcaster; it is a
// gwstate.BackgroundTask meant to run under Gateway.Run.
func (s *Server) TickLoop(broadcast func(event string, payload any) error) gwstate.BackgroundTask {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				if err := broadcast("tick", map[string]any{"time": now.Unix()}); err != nil {
					s.log.Warn("tick broadcast failed", zap.Error(err))
				}
			}
		}
	}
}
