package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSameOriginExactMatch(t *testing.T) {
	assert.True(t, isSameOrigin("https://example.com:8080", "example.com:8080"))
}

func TestIsSameOriginLoopbackAliasesMatch(t *testing.T) {
	assert.True(t, isSameOrigin("http://localhost:8080", "127.0.0.1:8080"))
	assert.True(t, isSameOrigin("http://[::1]:8080", "localhost:8080"))
}

func TestIsSameOriginDifferentPortFails(t *testing.T) {
	assert.False(t, isSameOrigin("http://localhost:8080", "localhost:9090"))
}

func TestIsSameOriginDifferentHostFails(t *testing.T) {
	assert.False(t, isSameOrigin("http://evil.example.com", "moltis.local"))
}

func TestIsSameOriginNoPortOnEitherSide(t *testing.T) {
	assert.True(t, isSameOrigin("http://localhost", "localhost"))
}
