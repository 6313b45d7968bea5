package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

const emptyLoopInterval = 1 * time.Second

// Scheduler holds EIPs whose actuation exhausted its retries and
// re-offers them to the engine once their backoff elapses. The engine
// re-derives the desired holder at that point, so a retry never
// actuates stale state.
type Scheduler struct {
	retryHeap *retryHeap
	out       chan<- models.EIPID
	wake      chan struct{}
}

func New(out chan<- models.EIPID) *Scheduler {
	return &Scheduler{
		retryHeap: newRetryHeap(),
		out:       out,
		wake:      make(chan struct{}, 1),
	}
}

// Schedule queues the EIP for re-evaluation after delay. Duplicate
// schedules keep the earliest attempt.
func (s *Scheduler) Schedule(eip models.EIPID, delay time.Duration) {
	s.retryHeap.push(retryTask{
		EIP:         eip,
		NextAttempt: time.Now().Add(delay),
	})
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Cancel drops a queued retry, e.g. when a later event settled the EIP.
func (s *Scheduler) Cancel(eip models.EIPID) bool {
	return s.retryHeap.remove(eip)
}

func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := emptyLoopInterval
		if task, exists := s.retryHeap.peek(); exists {
			next = time.Until(task.NextAttempt)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
			continue
		case <-time.After(next):
		}
		for {
			task, due := s.retryHeap.popDue(time.Now())
			if !due {
				break
			}
			log.Info().Msgf("re-offering %s for actuation retry", task.EIP)
			select {
			case s.out <- task.EIP:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
