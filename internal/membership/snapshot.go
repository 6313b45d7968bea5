package membership

import (
	"sort"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
)

// Snapshot is an immutable view of the cluster at one point in time.
// Observe returns a new snapshot instead of mutating, so concurrent
// readers never see a half-updated view.
type Snapshot struct {
	version   uint64
	self      models.NodeID
	seedTotal int
	members   map[models.NodeID]models.InstanceStatus
}

func NewSnapshot(self models.NodeID, seedTotal int) *Snapshot {
	return &Snapshot{
		self:      self,
		seedTotal: seedTotal,
		members:   map[models.NodeID]models.InstanceStatus{},
	}
}

// Rebuild derives a fresh snapshot from a full membership listing.
// Everything in the view is alive; members we knew about but the view
// no longer lists are forgotten (the membership layer aged them out).
func Rebuild(self models.NodeID, seedTotal int, view models.MembershipView, version uint64) *Snapshot {
	members := make(map[models.NodeID]models.InstanceStatus, len(view.Members))
	for _, member := range view.Members {
		if member.ID == "" {
			continue
		}
		members[member.ID] = models.StatusAlive
	}
	return &Snapshot{
		version:   version,
		self:      self,
		seedTotal: seedTotal,
		members:   members,
	}
}

// Observe applies one classified event and returns the successor
// snapshot. Pure: the receiver is left untouched.
func (s *Snapshot) Observe(in models.Intent) *Snapshot {
	if in.Instance == "" {
		return s
	}

	status := models.StatusUnknown
	switch in.Type {
	case models.IntentInstanceJoined, models.IntentSelfJoined, models.IntentInstanceUpdated:
		status = models.StatusAlive
	case models.IntentInstanceLeft:
		status = models.StatusLeft
	case models.IntentInstanceFailed:
		status = models.StatusFailed
	default:
		return s
	}

	next := &Snapshot{
		version:   s.version + 1,
		self:      s.self,
		seedTotal: s.seedTotal,
		members:   make(map[models.NodeID]models.InstanceStatus, len(s.members)+1),
	}
	for id, st := range s.members {
		next.members[id] = st
	}
	next.members[in.Instance] = status
	return next
}

func (s *Snapshot) Version() uint64 {
	return s.version
}

func (s *Snapshot) Self() models.NodeID {
	return s.self
}

// Total is the best-known cluster size: every member ever observed,
// floored by the configured zone count.
func (s *Snapshot) Total() int {
	if s.seedTotal > len(s.members) {
		return s.seedTotal
	}
	return len(s.members)
}

func (s *Snapshot) AliveCount() int {
	alive := 0
	for _, status := range s.members {
		if status == models.StatusAlive {
			alive++
		}
	}
	return alive
}

func (s *Snapshot) IsAlive(id models.NodeID) bool {
	return s.members[id] == models.StatusAlive
}

func (s *Snapshot) Status(id models.NodeID) models.InstanceStatus {
	return s.members[id]
}

// Alive returns the alive members in lexicographic order. The order
// matters: the claim algorithm depends on it for convergence.
func (s *Snapshot) Alive() []models.NodeID {
	alive := make([]models.NodeID, 0, len(s.members))
	for id, status := range s.members {
		if status == models.StatusAlive {
			alive = append(alive, id)
		}
	}
	sort.Slice(alive, func(i, j int) bool { return alive[i] < alive[j] })
	return alive
}

// HasQuorum reports whether at least half of the known cluster is
// alive. Exactly half counts: 2*alive >= total.
func HasQuorum(s *Snapshot) bool {
	return 2*s.AliveCount() >= s.Total()
}
