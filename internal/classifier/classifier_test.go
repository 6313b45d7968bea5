package classifier

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/metrics"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

func nodeMeta(t *testing.T, zone, eip string) []byte {
	t.Helper()
	raw, err := json.Marshal(models.NodeMeta{Zone: zone, DefaultEIP: eip})
	require.NoError(t, err)
	return raw
}

func TestClassifyDropsEventWithoutName(t *testing.T) {
	c := New("i-a", metrics.Nop{})

	_, ok := c.Classify(models.RawMemberEvent{Kind: models.RawJoin})
	assert.False(t, ok)
}

func TestClassifyDropsUnknownKind(t *testing.T) {
	c := New("i-a", metrics.Nop{})

	_, ok := c.Classify(models.RawMemberEvent{Kind: models.RawUnknown, Name: "i-b"})
	assert.False(t, ok)
}

func TestClassifyJoin(t *testing.T) {
	c := New("i-a", metrics.Nop{})

	intent, ok := c.Classify(models.RawMemberEvent{
		Kind: models.RawJoin,
		Name: "i-b",
		Addr: "10.0.1.2",
		Meta: nodeMeta(t, "eu-west-1b", "eipalloc-b"),
	})

	require.True(t, ok)
	assert.Equal(t, models.IntentInstanceJoined, intent.Type)
	assert.Equal(t, models.NodeID("i-b"), intent.Instance)
	assert.Equal(t, "10.0.1.2", intent.Addr)
	assert.Equal(t, "eu-west-1b", intent.Zone)
	assert.Equal(t, models.EIPID("eipalloc-b"), intent.DefaultEIP)
}

func TestClassifyDetectsSelfJoin(t *testing.T) {
	c := New("i-a", metrics.Nop{})

	intent, ok := c.Classify(models.RawMemberEvent{Kind: models.RawJoin, Name: "i-a"})
	require.True(t, ok)
	assert.Equal(t, models.IntentSelfJoined, intent.Type)
}

func TestClassifyLeaveVersusCrash(t *testing.T) {
	c := New("i-a", metrics.Nop{})

	graceful, ok := c.Classify(models.RawMemberEvent{Kind: models.RawLeave, Name: "i-b"})
	require.True(t, ok)
	assert.Equal(t, models.IntentInstanceLeft, graceful.Type)

	crashed, ok := c.Classify(models.RawMemberEvent{Kind: models.RawLeave, Name: "i-b", Dead: true})
	require.True(t, ok)
	assert.Equal(t, models.IntentInstanceFailed, crashed.Type)
}

func TestClassifyBadMetaStillClassifies(t *testing.T) {
	c := New("i-a", metrics.Nop{})

	intent, ok := c.Classify(models.RawMemberEvent{
		Kind: models.RawJoin,
		Name: "i-b",
		Meta: []byte("not-json"),
	})

	require.True(t, ok)
	assert.Equal(t, models.IntentInstanceJoined, intent.Type)
	assert.Empty(t, intent.DefaultEIP)
}

func TestClassifyUpdate(t *testing.T) {
	c := New("i-a", metrics.Nop{})

	intent, ok := c.Classify(models.RawMemberEvent{Kind: models.RawUpdate, Name: "i-c"})
	require.True(t, ok)
	assert.Equal(t, models.IntentInstanceUpdated, intent.Type)
}
