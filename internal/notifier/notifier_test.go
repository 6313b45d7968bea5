package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

func TestNotifyDelivers(t *testing.T) {
	n := New(4)
	defer n.Close()

	n.NotifyDecision(models.DecisionEvent{Kind: models.DecisionAcquire, EIP: "eipalloc-a"})

	event := <-n.GetEventChan()
	assert.Equal(t, models.DecisionAcquire, event.Kind)
	assert.Equal(t, models.EIPID("eipalloc-a"), event.EIP)
}

func TestNotifyNeverBlocksOnFullBuffer(t *testing.T) {
	n := New(2)
	defer n.Close()

	n.NotifyDecision(models.DecisionEvent{EIP: "eipalloc-a"})
	n.NotifyDecision(models.DecisionEvent{EIP: "eipalloc-b"})
	// Buffer is full; the oldest event gives way to the newest.
	n.NotifyDecision(models.DecisionEvent{EIP: "eipalloc-c"})

	first := <-n.GetEventChan()
	second := <-n.GetEventChan()
	require.Equal(t, models.EIPID("eipalloc-b"), first.EIP)
	assert.Equal(t, models.EIPID("eipalloc-c"), second.EIP)
}

func TestNotifyAfterCloseIsNoOp(t *testing.T) {
	n := New(1)
	n.Close()

	assert.NotPanics(t, func() {
		n.NotifyDecision(models.DecisionEvent{EIP: "eipalloc-a"})
	})
}
