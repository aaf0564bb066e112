package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(ErrUnavailable, "persist failed").WithCause(cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "persist failed")
	assert.Contains(t, err.Error(), "boom")
}

func TestMissingScopeMessage(t *testing.T) {
	err := MissingScope("write")
	assert.Equal(t, ErrInvalidRequest, err.Code)
	assert.Equal(t, "missing scope: operator.write", err.Message)
}

func TestErrResponseWrapsPlainError(t *testing.T) {
	resp := ErrResponse("1", errors.New("oops"))
	require.NotNil(t, resp.Err)
	assert.Equal(t, ErrUnavailable, resp.Err.Code)
}

func TestParseScopesDropsUnknown(t *testing.T) {
	scopes := ParseScopes([]string{"read", "bogus", "admin"})
	assert.ElementsMatch(t, []Scope{ScopeRead, ScopeAdmin}, scopes)
}
