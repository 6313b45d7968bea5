package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const poolFixture = `{
  "eu-west-1a": {
    "eth1_id": "eni-aaa111",
    "eth2_id": "eni-aaa222",
    "elastic_ip_allocation_id": "eipalloc-aa618fa9"
  },
  "eu-west-1b": {
    "eth1_id": "eni-bbb111",
    "eth2_id": "eni-bbb222",
    "elastic_ip_allocation_id": "eipalloc-bb618fa9"
  },
  "eu-west-1c": {
    "eth1_id": "eni-ccc111",
    "eth2_id": "eni-ccc222"
  }
}`

func TestParsePool(t *testing.T) {
	pool, err := ParsePool([]byte(poolFixture))
	require.NoError(t, err)
	require.Len(t, pool, 3)

	assert.Equal(t, "eni-aaa111", pool["eu-west-1a"].Eth1ID)
	assert.Equal(t, "eni-aaa222", pool["eu-west-1a"].Eth2ID)
	assert.Equal(t, "eipalloc-aa618fa9", pool["eu-west-1a"].AllocationID)
}

func TestParsePoolRejectsGarbage(t *testing.T) {
	_, err := ParsePool([]byte("not json"))
	assert.Error(t, err)

	_, err = ParsePool([]byte("{}"))
	assert.Error(t, err)
}

func TestEIPForZone(t *testing.T) {
	pool, err := ParsePool([]byte(poolFixture))
	require.NoError(t, err)

	eip, ok := pool.EIPForZone("eu-west-1b")
	require.True(t, ok)
	assert.Equal(t, "eipalloc-bb618fa9", eip.String())

	// A zone without an allocation id has no EIP.
	_, ok = pool.EIPForZone("eu-west-1c")
	assert.False(t, ok)

	_, ok = pool.EIPForZone("us-east-1a")
	assert.False(t, ok)
}

func TestZoneForEIP(t *testing.T) {
	pool, err := ParsePool([]byte(poolFixture))
	require.NoError(t, err)

	zone, ok := pool.ZoneForEIP("eipalloc-aa618fa9")
	require.True(t, ok)
	assert.Equal(t, "eu-west-1a", zone)

	_, ok = pool.ZoneForEIP("eipalloc-nope")
	assert.False(t, ok)
}

func TestStableOrders(t *testing.T) {
	pool, err := ParsePool([]byte(poolFixture))
	require.NoError(t, err)

	assert.Equal(t, []string{"eu-west-1a", "eu-west-1b", "eu-west-1c"}, pool.Zones())
	require.Len(t, pool.EIPs(), 2)
	assert.Equal(t, "eipalloc-aa618fa9", pool.EIPs()[0].String())
}
