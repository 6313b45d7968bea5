// Package journal persists an operator-facing audit trail of engine
// decisions. The journal is advisory: losing it never changes a
// decision, and the agent runs fine without a configured repository.
package journal

import (
	"context"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

type Repository interface {
	AppendDecisions(ctx context.Context, events []models.DecisionEvent) (int, error)
}

func NewSender(
	eventCh chan models.DecisionEvent,
	repo Repository,
	retryTimeout time.Duration,
) *Sender {
	return &Sender{
		events:      eventCh,
		repo:        repo,
		ttlTicker:   time.NewTicker(retryTimeout),
		unsentGuard: &sync.Mutex{},
		unsent:      make([]models.DecisionEvent, 0),
	}
}

type Sender struct {
	events      chan models.DecisionEvent
	ttlTicker   *time.Ticker
	repo        Repository
	unsentGuard *sync.Mutex
	unsent      []models.DecisionEvent
}

func (s *Sender) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-s.ttlTicker.C:
			if !ok {
				return
			}
			s.sendUnsentEvents(ctx)
		case event, ok := <-s.events:
			if !ok {
				return
			}
			err := retry.Do(
				func() error {
					_, err := s.repo.AppendDecisions(ctx, []models.DecisionEvent{event})
					return err
				},
				retry.Attempts(3),
			)
			if err != nil {
				log.Error().Err(err).Msg("failed to journal decision, put it into unsent queue")
				s.unsentGuard.Lock()
				s.unsent = append(s.unsent, event)
				s.unsentGuard.Unlock()
			}
		}
	}
}

func (s *Sender) sendUnsentEvents(ctx context.Context) {
	s.unsentGuard.Lock()
	defer s.unsentGuard.Unlock()

	if len(s.unsent) == 0 {
		return
	}
	done, err := s.repo.AppendDecisions(ctx, s.unsent)
	if err != nil {
		log.Warn().Err(err).Msgf("failed to flush unsent journal events: done %d", done)

		newUnsent := make([]models.DecisionEvent, len(s.unsent)-done)
		copy(newUnsent, s.unsent[done:])
		s.unsent = newUnsent
		return
	}
	s.unsent = s.unsent[:0]
}
