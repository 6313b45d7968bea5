package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mockactuator "github.com/Sh00ty/network-lb/eip-failover-node/internal/actuator/mock"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/metrics"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

func waitResult(t *testing.T, results <-chan models.ActionResult) models.ActionResult {
	t.Helper()
	select {
	case result := <-results:
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("no actuation result delivered")
		return models.ActionResult{}
	}
}

func TestExecutorDeliversResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	act := mockactuator.New()
	results := make(chan models.ActionResult, 8)
	exec := New(act, results, Config{Concurrency: 2, RetryDelay: time.Millisecond}, metrics.Nop{})
	exec.Run(ctx)
	defer exec.Close()

	err := exec.Submit(models.Action{Type: models.ActionAcquire, EIP: "eipalloc-a", Instance: "i-a"})
	require.NoError(t, err)

	result := waitResult(t, results)
	assert.NoError(t, result.Err)
	assert.Equal(t, models.ActionAcquire, result.Action.Type)
	assert.Equal(t, models.NodeID("i-a"), act.Holder("eipalloc-a"))
}

func TestExecutorReleases(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	act := mockactuator.New()
	act.Seed("eipalloc-a", "i-a")
	results := make(chan models.ActionResult, 8)
	exec := New(act, results, Config{Concurrency: 1, RetryDelay: time.Millisecond}, metrics.Nop{})
	exec.Run(ctx)
	defer exec.Close()

	err := exec.Submit(models.Action{Type: models.ActionRelease, EIP: "eipalloc-a", Instance: "i-a"})
	require.NoError(t, err)

	result := waitResult(t, results)
	assert.NoError(t, result.Err)
	assert.Empty(t, act.Holder("eipalloc-a"))
}

func TestExecutorSurfacesExhaustedRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	act := mockactuator.New()
	act.FailWith(errors.New("api throttled"))
	results := make(chan models.ActionResult, 8)
	exec := New(act, results, Config{Concurrency: 1, Attempts: 2, RetryDelay: time.Millisecond}, metrics.Nop{})
	exec.Run(ctx)
	defer exec.Close()

	err := exec.Submit(models.Action{Type: models.ActionAcquire, EIP: "eipalloc-a", Instance: "i-a"})
	require.NoError(t, err)

	result := waitResult(t, results)
	require.Error(t, result.Err)
	assert.ErrorContains(t, result.Err, "api throttled")
}

func TestExecutorRoutesSameEIPToSameWorker(t *testing.T) {
	exec := New(mockactuator.New(), make(chan models.ActionResult, 1), Config{Concurrency: 8}, metrics.Nop{})

	first := exec.workerFor("eipalloc-a")
	for i := 0; i < 16; i++ {
		assert.Equal(t, first, exec.workerFor("eipalloc-a"))
	}
}

func TestSubmitAfterClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec := New(mockactuator.New(), make(chan models.ActionResult, 1), Config{Concurrency: 1}, metrics.Nop{})
	exec.Run(ctx)
	exec.Close()

	err := exec.Submit(models.Action{Type: models.ActionAcquire, EIP: "eipalloc-a", Instance: "i-a"})
	assert.Error(t, err)
}
