package notifier

import (
	"sync/atomic"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

// ChanNotifier fans decision events out of the engine loop without
// ever blocking a decision on a slow journal.
type ChanNotifier struct {
	eventChan chan models.DecisionEvent
	closed    atomic.Bool
	close     chan struct{}
}

func New(buf int) *ChanNotifier {
	return &ChanNotifier{
		eventChan: make(chan models.DecisionEvent, buf),
		closed:    atomic.Bool{},
		close:     make(chan struct{}),
	}
}

func (n *ChanNotifier) NotifyDecision(event models.DecisionEvent) {
	if n.closed.Load() {
		return
	}
	select {
	case n.eventChan <- event:
	case <-n.close:
	default:
		// Buffer full. Decisions must not wait on the journal, so the
		// oldest unread event is dropped in favor of the new one.
		select {
		case <-n.eventChan:
		default:
		}
		select {
		case n.eventChan <- event:
		case <-n.close:
		default:
		}
	}
}

func (n *ChanNotifier) GetEventChan() chan models.DecisionEvent {
	return n.eventChan
}

func (n *ChanNotifier) Close() {
	n.closed.Store(true)
	close(n.close)
	close(n.eventChan)
}
