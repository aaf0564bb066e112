package wire

import (
	"net/http"
	"strings"

	"github.com/moltis/gateway/internal/pairing"
	"github.com/moltis/gateway/internal/protocol"
)

// TokenAuthenticator resolves a handshake's Identity from the Authorization:
// Bearer header, grounded on the teacher's JWTAuth middleware: operator
// static tokens are checked first, then device tokens minted by pairing.
type TokenAuthenticator struct {
	operatorTokens map[string]struct{}
	devices        *pairing.TokenIssuer
}

// NewTokenAuthenticator builds a TokenAuthenticator accepting any of
// operatorTokens as a full-scope operator credential, falling back to
// devices' device-token verification for node connections.
func NewTokenAuthenticator(operatorTokens []string, devices *pairing.TokenIssuer) *TokenAuthenticator {
	set := make(map[string]struct{}, len(operatorTokens))
	for _, t := range operatorTokens {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return &TokenAuthenticator{operatorTokens: set, devices: devices}
}

// Authenticate implements wire.Authenticator.
func (a *TokenAuthenticator) Authenticate(r *http.Request) (Identity, error) {
	token := bearerToken(r)
	if token == "" {
		return Identity{}, protocol.Invalidf("missing bearer token")
	}

	if _, ok := a.operatorTokens[token]; ok {
		return Identity{
			Role:       protocol.RoleOperator,
			Scopes:     []protocol.Scope{protocol.ScopeAdmin, protocol.ScopeRead, protocol.ScopeWrite, protocol.ScopeApprovals, protocol.ScopePairing},
			Platform:   r.Header.Get("X-Moltis-Platform"),
			ClientID:   r.Header.Get("X-Moltis-Client-Id"),
			AcceptLang: r.Header.Get("Accept-Language"),
		}, nil
	}

	if a.devices != nil {
		if deviceID, scopes, err := a.devices.Verify(token); err == nil {
			return Identity{
				Role:       protocol.RoleNode,
				Scopes:     scopes,
				Platform:   r.Header.Get("X-Moltis-Platform"),
				ClientID:   deviceID,
				AcceptLang: r.Header.Get("Accept-Language"),
			}, nil
		}
	}

	return Identity{}, protocol.Invalidf("invalid bearer token")
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
