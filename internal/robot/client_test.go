package robot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestClientConnectLifecycle(t *testing.T) {
	link := NewMockLink(zaptest.NewLogger(t))
	c := NewClient(link, time.Millisecond, zaptest.NewLogger(t))

	assert.Equal(t, StateDisconnected, c.State())
	assert.False(t, c.Healthy())

	require.True(t, c.Connect(t.Context()))
	assert.Equal(t, StateConnected, c.State())
	assert.True(t, c.Healthy())

	c.Disconnect(t.Context())
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientConnectFailure(t *testing.T) {
	link := NewMockLink(zaptest.NewLogger(t))
	link.ConnectErr = errors.New("robot unreachable")
	c := NewClient(link, time.Millisecond, zaptest.NewLogger(t))

	assert.False(t, c.Connect(t.Context()))
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientHealthyDemotesOnDeadLink(t *testing.T) {
	link := NewMockLink(zaptest.NewLogger(t))
	c := NewClient(link, time.Millisecond, zaptest.NewLogger(t))
	require.True(t, c.Connect(t.Context()))

	// Kill the link behind the client's back, as a dropped session would.
	require.NoError(t, link.Close())

	assert.False(t, c.Healthy())
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientCommandsDegradeWhileDisconnected(t *testing.T) {
	link := NewMockLink(zaptest.NewLogger(t))
	c := NewClient(link, time.Millisecond, zaptest.NewLogger(t))

	// No connection: commands are logged no-ops, not errors.
	assert.NoError(t, c.Say("hello"))
	assert.NoError(t, c.GoToPosture("Stand", 0.8))
	assert.Empty(t, link.Spoken())
	assert.Empty(t, link.Postures())
}

func TestClientCommandsPassThroughWhileConnected(t *testing.T) {
	link := NewMockLink(zaptest.NewLogger(t))
	c := NewClient(link, time.Millisecond, zaptest.NewLogger(t))
	require.True(t, c.Connect(t.Context()))

	require.NoError(t, c.Say("hello there"))
	require.NoError(t, c.GoToPosture("Stand", 0.8))
	assert.Equal(t, []string{"hello there"}, link.Spoken())
	assert.Equal(t, []string{"Stand"}, link.Postures())
}

func TestClientSubscribeArmsPoller(t *testing.T) {
	link := NewMockLink(zaptest.NewLogger(t))
	c := NewClient(link, time.Millisecond, zaptest.NewLogger(t))
	require.True(t, c.Connect(t.Context()))

	col := &eventCollector{}
	c.Subscribe(col.collect)

	link.PushUtterance("are you there", 0.85)
	col.waitFor(t, 1, time.Second)

	c.Disconnect(t.Context())
}

func TestClientResubscribeReplacesPoller(t *testing.T) {
	link := NewMockLink(zaptest.NewLogger(t))
	c := NewClient(link, time.Millisecond, zaptest.NewLogger(t))
	require.True(t, c.Connect(t.Context()))

	first := &eventCollector{}
	second := &eventCollector{}

	c.Subscribe(first.collect)
	c.Subscribe(second.collect)

	link.PushUtterance("routed to the latest callback", 0.9)
	second.waitFor(t, 1, time.Second)
	assert.Empty(t, first.snapshot())

	c.Disconnect(t.Context())
}

func TestClientSubscribeWhileDisconnectedIsNoop(t *testing.T) {
	link := NewMockLink(zaptest.NewLogger(t))
	c := NewClient(link, time.Millisecond, zaptest.NewLogger(t))

	// Must not panic or start a poller against a dead link.
	c.Subscribe(func(SensorEvent) {})
	c.Disconnect(t.Context())
}
