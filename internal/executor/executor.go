package executor

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/actuator"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/metrics"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

type Config struct {
	Concurrency uint16        `envconfig:"ACTUATOR_CONCURRENCY,optional"`
	Buffer      uint32        `envconfig:"ACTUATOR_BUFFER,optional"`
	Attempts    uint          `envconfig:"ACTUATOR_ATTEMPTS,optional"`
	RetryDelay  time.Duration `envconfig:"ACTUATOR_RETRY_DELAY,optional"`
	CallTimeout time.Duration `envconfig:"ACTUATOR_CALL_TIMEOUT,optional"`
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}
	if cfg.Buffer == 0 {
		cfg.Buffer = 64
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	return cfg
}

// Executor performs acquire/release calls against the provider.
// Actions for the same EIP always land on the same worker, so actuation
// for one address is serialized while different addresses proceed
// concurrently. Every outcome is reported back on the results channel;
// the engine loop is the only writer of the ownership table.
type Executor struct {
	cfg     Config
	act     actuator.Actuator
	results chan<- models.ActionResult
	inputs  []chan models.Action
	metrics metrics.Metrics

	// closed by atomic
	closed     int64
	inProgress int64
	close      chan struct{}
}

func New(act actuator.Actuator, results chan<- models.ActionResult, cfg Config, m metrics.Metrics) *Executor {
	cfg = cfg.withDefaults()
	inputs := make([]chan models.Action, cfg.Concurrency)
	for i := range inputs {
		inputs[i] = make(chan models.Action, cfg.Buffer)
	}
	return &Executor{
		cfg:     cfg,
		act:     act,
		results: results,
		inputs:  inputs,
		metrics: m,
		close:   make(chan struct{}),
	}
}

func (e *Executor) Run(ctx context.Context) {
	for i := range e.inputs {
		i := i
		go func() {
			for action := range e.inputs[i] {
				log.Debug().Msgf("actuation worker [%d] received %s of %s for %s",
					i, action.Type, action.EIP, action.Instance)

				started := time.Now()
				err := e.actuate(ctx, action)
				e.metrics.Duration("actuation."+action.Type.String(), time.Since(started))
				if err != nil {
					e.metrics.Increment("actuation.failed")
				}
				select {
				case e.results <- models.ActionResult{Action: action, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

func (e *Executor) actuate(ctx context.Context, action models.Action) error {
	return retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
			defer cancel()

			switch action.Type {
			case models.ActionAcquire:
				return e.act.Associate(callCtx, action.EIP, action.Instance)
			case models.ActionRelease:
				return e.act.Disassociate(callCtx, action.EIP, action.Instance)
			}
			return fmt.Errorf("unknown action type %d", action.Type)
		},
		retry.Context(ctx),
		retry.Attempts(e.cfg.Attempts),
		retry.Delay(e.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// Submit routes the action to its EIP's worker.
func (e *Executor) Submit(action models.Action) error {
	if atomic.LoadInt64(&e.closed) == 1 {
		return fmt.Errorf("executor already closed")
	}
	atomic.AddInt64(&e.inProgress, 1)
	defer atomic.AddInt64(&e.inProgress, -1)

	select {
	case e.inputs[e.workerFor(action.EIP)] <- action:
		return nil
	case <-e.close:
		return fmt.Errorf("failed to submit action: closed")
	}
}

func (e *Executor) workerFor(eip models.EIPID) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(eip))
	return int(h.Sum32() % uint32(len(e.inputs)))
}

func (e *Executor) Close() {
	atomic.AddInt64(&e.closed, 1)
	close(e.close)
	for atomic.LoadInt64(&e.inProgress) != 0 {
		runtime.Gosched()
	}
	for _, input := range e.inputs {
		close(input)
	}
}
