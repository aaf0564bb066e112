package wire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltis/gateway/internal/gwstate"
	"github.com/moltis/gateway/internal/protocol"
	"github.com/moltis/gateway/internal/providerregistry"
)

type stubDispatcher struct{}

func (stubDispatcher) Dispatch(ctx context.Context, connID string, role protocol.Role, scopes []protocol.Scope, req protocol.Request) protocol.Response {
	return protocol.OkResponse(req.ID, map[string]any{"echo": req.Method})
}

type stubAuth struct{}

func (stubAuth) Authenticate(r *http.Request) (Identity, error) {
	return Identity{Role: protocol.RoleOperator, Scopes: []protocol.Scope{protocol.ScopeAdmin}}, nil
}

func newTestServer() *Server {
	gw := gwstate.New(nil, providerregistry.New())
	return NewServer(gw, stubDispatcher{}, stubAuth{}, Config{}, nil)
}

func TestHealthEndpointReturnsOK(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestWSUpgradeRejectsCrossOrigin(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Host = "moltis.local:7890"
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthCallbackRequiresStateAndCode(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthCallbackCompletesWithStateAndCode(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=abc&code=xyz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
