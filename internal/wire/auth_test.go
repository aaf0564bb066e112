package wire

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltis/gateway/internal/pairing"
	"github.com/moltis/gateway/internal/protocol"
)

func TestTokenAuthenticatorAcceptsOperatorToken(t *testing.T) {
	auth := NewTokenAuthenticator([]string{"secret-op"}, nil)
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer secret-op")

	identity, err := auth.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, protocol.RoleOperator, identity.Role)
	assert.True(t, protocol.HasScope(identity.Scopes, protocol.ScopeAdmin))
}

func TestTokenAuthenticatorAcceptsDeviceToken(t *testing.T) {
	issuer := pairing.NewTokenIssuer([]byte("device-secret"))
	token, err := issuer.Mint("device-1", []protocol.Scope{protocol.ScopeRead})
	require.NoError(t, err)

	auth := NewTokenAuthenticator(nil, issuer)
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token.Token)

	identity, err := auth.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, protocol.RoleNode, identity.Role)
	assert.Equal(t, "device-1", identity.ClientID)
}

func TestTokenAuthenticatorRejectsUnknownToken(t *testing.T) {
	auth := NewTokenAuthenticator([]string{"secret-op"}, nil)
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer bogus")

	_, err := auth.Authenticate(r)
	assert.Error(t, err)
}

func TestTokenAuthenticatorRejectsMissingToken(t *testing.T) {
	auth := NewTokenAuthenticator([]string{"secret-op"}, nil)
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)

	_, err := auth.Authenticate(r)
	assert.Error(t, err)
}

func TestTokenAuthenticatorReadsQueryParamFallback(t *testing.T) {
	auth := NewTokenAuthenticator([]string{"secret-op"}, nil)
	r := httptest.NewRequest(http.MethodGet, "/ws?token=secret-op", nil)

	identity, err := auth.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, protocol.RoleOperator, identity.Role)
}
