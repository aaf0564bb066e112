package pairing

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/moltis/gateway/internal/protocol"
)

// deviceClaims is the JWT payload minted for a device token. Device tokens
// are long-lived (§3 "Tokens are long-lived, rotated and revoked
// individually"); no exp claim is set, so validity is controlled entirely
// by the issuer's revocation set.
type deviceClaims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes"`
}

// TokenIssuer signs and verifies device tokens with a single process-wide
// HMAC secret. Revocation is tracked by jti since the tokens themselves
// never expire.
type TokenIssuer struct {
	secret []byte

	mu      sync.Mutex
	revoked map[string]struct{}
}

// NewTokenIssuer constructs a TokenIssuer signing with secret. secret should
// be a stable, persisted value; rotating it invalidates every outstanding
// device token.
func NewTokenIssuer(secret []byte) *TokenIssuer {
	return &TokenIssuer{secret: secret, revoked: make(map[string]struct{})}
}

// Mint signs a new device token for deviceID carrying scopes.
func (ti *TokenIssuer) Mint(deviceID string, scopes []protocol.Scope) (*DeviceToken, error) {
	jti := uuid.NewString()
	issuedAt := time.Now()

	rawScopes := make([]string, len(scopes))
	for i, s := range scopes {
		rawScopes[i] = string(s)
	}

	claims := deviceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  deviceID,
			ID:       jti,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
		Scopes: rawScopes,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return nil, protocol.Unavailablef("sign device token: %v", err)
	}

	return &DeviceToken{
		DeviceID: deviceID,
		Token:    signed,
		JTI:      jti,
		Scopes:   scopes,
		IssuedAt: issuedAt,
	}, nil
}

// Verify parses and validates tokenStr, rejecting revoked tokens. Returns
// the device id and scopes carried by the token.
func (ti *TokenIssuer) Verify(tokenStr string) (deviceID string, scopes []protocol.Scope, err error) {
	var claims deviceClaims
	parsed, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return ti.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", nil, protocol.Invalidf("invalid device token")
	}

	ti.mu.Lock()
	_, isRevoked := ti.revoked[claims.ID]
	ti.mu.Unlock()
	if isRevoked {
		return "", nil, protocol.Invalidf("device token has been revoked")
	}

	scopes = make([]protocol.Scope, len(claims.Scopes))
	for i, s := range claims.Scopes {
		scopes[i] = protocol.Scope(s)
	}
	return claims.Subject, scopes, nil
}

// Revoke marks jti as no longer valid.
func (ti *TokenIssuer) Revoke(jti string) {
	ti.mu.Lock()
	ti.revoked[jti] = struct{}{}
	ti.mu.Unlock()
}
