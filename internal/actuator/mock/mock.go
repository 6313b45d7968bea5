package mock

import (
	"context"
	"sync"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

// Actuator is an in-memory provider for tests and local runs. FailWith
// makes every mutating call return that error until cleared.
type Actuator struct {
	mu       sync.Mutex
	bindings map[models.EIPID]models.NodeID
	failWith error

	Associated    []models.Action
	Disassociated []models.Action
}

func New() *Actuator {
	return &Actuator{
		bindings: map[models.EIPID]models.NodeID{},
	}
}

func (a *Actuator) FailWith(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failWith = err
}

func (a *Actuator) Seed(eip models.EIPID, instance models.NodeID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bindings[eip] = instance
}

func (a *Actuator) Associate(_ context.Context, eip models.EIPID, instance models.NodeID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failWith != nil {
		return a.failWith
	}
	a.bindings[eip] = instance
	a.Associated = append(a.Associated, models.Action{Type: models.ActionAcquire, EIP: eip, Instance: instance})
	return nil
}

func (a *Actuator) Disassociate(_ context.Context, eip models.EIPID, instance models.NodeID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failWith != nil {
		return a.failWith
	}
	if a.bindings[eip] == instance {
		delete(a.bindings, eip)
	}
	a.Disassociated = append(a.Disassociated, models.Action{Type: models.ActionRelease, EIP: eip, Instance: instance})
	return nil
}

func (a *Actuator) CurrentHolder(_ context.Context, eip models.EIPID) (models.NodeID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failWith != nil {
		return "", a.failWith
	}
	return a.bindings[eip], nil
}

func (a *Actuator) Holder(eip models.EIPID) models.NodeID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bindings[eip]
}
