package scheduler

import (
	"container/heap"
	"slices"
	"sync"
	"time"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

var _ heap.Interface = (*timeBasedHeap)(nil)

type retryTask struct {
	EIP         models.EIPID
	NextAttempt time.Time
}

// retryHeap orders deferred re-actuations by their next attempt time.
type retryHeap struct {
	taskHeap timeBasedHeap
	guard    sync.Mutex
}

func newRetryHeap() *retryHeap {
	hp := &retryHeap{}
	heap.Init(&hp.taskHeap)
	return hp
}

func (h *retryHeap) push(task retryTask) {
	h.guard.Lock()
	defer h.guard.Unlock()

	index := slices.IndexFunc(h.taskHeap, func(t retryTask) bool {
		return t.EIP == task.EIP
	})
	if index >= 0 {
		// Keep the earlier attempt.
		if task.NextAttempt.Before(h.taskHeap[index].NextAttempt) {
			h.taskHeap[index].NextAttempt = task.NextAttempt
			heap.Fix(&h.taskHeap, index)
		}
		return
	}
	heap.Push(&h.taskHeap, task)
}

func (h *retryHeap) peek() (retryTask, bool) {
	h.guard.Lock()
	defer h.guard.Unlock()

	if len(h.taskHeap) == 0 {
		return retryTask{}, false
	}
	return h.taskHeap[0], true
}

func (h *retryHeap) popDue(now time.Time) (retryTask, bool) {
	h.guard.Lock()
	defer h.guard.Unlock()

	if len(h.taskHeap) == 0 || h.taskHeap[0].NextAttempt.After(now) {
		return retryTask{}, false
	}
	return heap.Pop(&h.taskHeap).(retryTask), true
}

func (h *retryHeap) remove(eip models.EIPID) bool {
	h.guard.Lock()
	defer h.guard.Unlock()

	index := slices.IndexFunc(h.taskHeap, func(t retryTask) bool {
		return t.EIP == eip
	})
	if index < 0 {
		return false
	}
	heap.Remove(&h.taskHeap, index)
	return true
}

type timeBasedHeap []retryTask

func (t timeBasedHeap) Len() int {
	return len(t)
}

func (t timeBasedHeap) Less(i int, j int) bool {
	return t[i].NextAttempt.Before(t[j].NextAttempt)
}

func (t timeBasedHeap) Swap(i int, j int) {
	t[i], t[j] = t[j], t[i]
}

func (t *timeBasedHeap) Push(x any) {
	*t = append(*t, x.(retryTask))
}

func (t *timeBasedHeap) Pop() any {
	old := *t
	n := len(old)
	task := old[n-1]
	*t = old[:n-1]
	return task
}
