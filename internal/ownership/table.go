package ownership

import (
	"sort"
	"sync"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

// Table is the process-wide EIP -> holder mapping. It has exactly one
// writer (the decision engine's loop); the mutex exists so that status
// readers can take consistent copies while the loop runs.
type Table struct {
	mu      sync.RWMutex
	records map[models.EIPID]*models.FloatingIP
}

func NewTable() *Table {
	return &Table{
		records: map[models.EIPID]*models.FloatingIP{},
	}
}

// Ensure creates the record for an EIP if it does not exist yet.
func (t *Table) Ensure(eip models.EIPID, zone string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, exists := t.records[eip]
	if !exists {
		t.records[eip] = &models.FloatingIP{
			ID:    eip,
			Zone:  zone,
			State: models.Unassigned,
		}
		return
	}
	if record.Zone == "" {
		record.Zone = zone
	}
}

// SetDefaultOwner binds the default owner of an EIP. The first
// observed declaration wins; a different later one is rejected and
// reported by the caller.
func (t *Table) SetDefaultOwner(eip models.EIPID, owner models.NodeID) (conflict models.NodeID, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, exists := t.records[eip]
	if !exists {
		t.records[eip] = &models.FloatingIP{
			ID:           eip,
			DefaultOwner: owner,
			State:        models.Unassigned,
		}
		return "", true
	}
	if record.DefaultOwner != "" && record.DefaultOwner != owner {
		return record.DefaultOwner, false
	}
	record.DefaultOwner = owner
	return "", true
}

func (t *Table) Get(eip models.EIPID) (models.FloatingIP, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	record, exists := t.records[eip]
	if !exists {
		return models.FloatingIP{}, false
	}
	return *record, true
}

// HeldBy returns every EIP the instance currently holds or is being
// moved to.
func (t *Table) HeldBy(id models.NodeID) []models.EIPID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var held []models.EIPID
	for eip, record := range t.records {
		if record.Holder == id || record.Pending == id {
			held = append(held, eip)
		}
	}
	sort.Slice(held, func(i, j int) bool { return held[i] < held[j] })
	return held
}

// OwnedBy returns every EIP the instance is the default owner of.
func (t *Table) OwnedBy(id models.NodeID) []models.EIPID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var owned []models.EIPID
	for eip, record := range t.records {
		if record.DefaultOwner == id {
			owned = append(owned, eip)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i] < owned[j] })
	return owned
}

// Holds reports whether the instance holds, or is acquiring, any EIP
// other than the given one. Used by the claim algorithm to spread
// failover load.
func (t *Table) Holds(id models.NodeID, except models.EIPID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for eip, record := range t.records {
		if eip == except {
			continue
		}
		if record.Holder == id || record.Pending == id {
			return true
		}
	}
	return false
}

// MarkInFlight records that an actuation moving the EIP to pending has
// been issued.
func (t *Table) MarkInFlight(eip models.EIPID, pending models.NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, exists := t.records[eip]
	if !exists {
		return
	}
	record.Pending = pending
	record.State = models.AssignmentInFlight
}

// Commit settles the record on a holder.
func (t *Table) Commit(eip models.EIPID, holder models.NodeID, state models.AssignmentState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, exists := t.records[eip]
	if !exists {
		return
	}
	record.Holder = holder
	record.Pending = ""
	record.State = state
}

// Fail marks an exhausted actuation. The pending target is kept so a
// later retry can re-evaluate it.
func (t *Table) Fail(eip models.EIPID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, exists := t.records[eip]
	if !exists {
		return
	}
	record.State = models.AssignFailed
}

// Release clears the holder.
func (t *Table) Release(eip models.EIPID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, exists := t.records[eip]
	if !exists {
		return
	}
	record.Holder = ""
	record.Pending = ""
	record.State = models.Unassigned
}

// Remove drops the record entirely (pool shrink).
func (t *Table) Remove(eip models.EIPID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.records, eip)
}

// View returns a consistent copy of the table sorted by EIP id.
func (t *Table) View() []models.FloatingIP {
	t.mu.RLock()
	defer t.mu.RUnlock()

	view := make([]models.FloatingIP, 0, len(t.records))
	for _, record := range t.records {
		view = append(view, *record)
	}
	sort.Slice(view, func(i, j int) bool { return view[i].ID < view[j].ID })
	return view
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.records)
}
