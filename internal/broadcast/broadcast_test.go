package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltis/gateway/internal/protocol"
)

type fakeTarget struct {
	operator bool
	scopes   []protocol.Scope
	sent     [][]byte
	dropNext bool
}

func (f *fakeTarget) HasScope(scope protocol.Scope) bool { return protocol.HasScope(f.scopes, scope) }
func (f *fakeTarget) IsOperator() bool                   { return f.operator }
func (f *fakeTarget) Send(frame []byte) bool {
	if f.dropNext {
		return false
	}
	f.sent = append(f.sent, frame)
	return true
}
func (f *fakeTarget) SendBlocking(frame []byte) error {
	f.sent = append(f.sent, frame)
	return nil
}

func TestBroadcastDeliversToAllWithoutFilter(t *testing.T) {
	a := &fakeTarget{operator: true}
	b := &fakeTarget{operator: false}
	seq := map[Target]uint64{}
	br := NewBroadcaster(func() []Target { return []Target{a, b} }, func(t Target) uint64 {
		seq[t]++
		return seq[t]
	}, nil)

	require.NoError(t, br.Broadcast(TopicTick, map[string]any{"ok": true}, Options{}))
	assert.Len(t, a.sent, 1)
	assert.Len(t, b.sent, 1)
}

func TestBroadcastScopeAudienceFiltersNonMatching(t *testing.T) {
	pairing := &fakeTarget{operator: true, scopes: []protocol.Scope{protocol.ScopePairing}}
	readOnly := &fakeTarget{operator: true, scopes: []protocol.Scope{protocol.ScopeRead}}
	br := NewBroadcaster(func() []Target { return []Target{pairing, readOnly} }, func(Target) uint64 { return 1 }, nil)

	require.NoError(t, br.Broadcast(TopicNodePairRequested, nil, Options{Audience: ScopeAudience(protocol.ScopePairing)}))
	assert.Len(t, pairing.sent, 1)
	assert.Empty(t, readOnly.sent)
}

func TestBroadcastDropIfSlowSkipsBackpressuredTarget(t *testing.T) {
	slow := &fakeTarget{operator: true, dropNext: true}
	br := NewBroadcaster(func() []Target { return []Target{slow} }, func(Target) uint64 { return 1 }, nil)

	require.NoError(t, br.Broadcast(TopicTick, nil, Options{DropIfSlow: true}))
	assert.Empty(t, slow.sent)
}
