package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDefaultsToPending(t *testing.T) {
	r := NewRegistry()
	approval := r.Observe(ChannelTypeTelegram, "acct-1", "sender-1", "Alice")
	assert.Equal(t, SenderPending, approval.Status)
	assert.False(t, r.IsApproved(ChannelTypeTelegram, "acct-1", "sender-1"))
}

func TestApproveThenIsApproved(t *testing.T) {
	r := NewRegistry()
	r.Observe(ChannelTypeTelegram, "acct-1", "sender-1", "Alice")
	require.NoError(t, r.Approve(ChannelTypeTelegram, "acct-1", "sender-1"))
	assert.True(t, r.IsApproved(ChannelTypeTelegram, "acct-1", "sender-1"))
}

func TestRejectUnknownSenderFails(t *testing.T) {
	r := NewRegistry()
	err := r.Reject(ChannelTypeTelegram, "acct-1", "ghost")
	assert.Error(t, err)
}

func TestObserveUpdatesDisplayNameOnRepeatObservation(t *testing.T) {
	r := NewRegistry()
	r.Observe(ChannelTypeTelegram, "acct-1", "sender-1", "Alice")
	updated := r.Observe(ChannelTypeTelegram, "acct-1", "sender-1", "Alice Smith")
	assert.Equal(t, "Alice Smith", updated.DisplayName)

	list := r.List()
	require.Len(t, list, 1)
}
