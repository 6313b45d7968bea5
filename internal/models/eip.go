package models

// EIPID is a provider allocation id, e.g. "eipalloc-cc618fa9".
type EIPID string

func (e EIPID) String() string {
	return string(e)
}

type AssignmentState int8

const (
	Unassigned AssignmentState = iota
	AssignedDefault
	AssignedFailover
	AssignmentInFlight
	AssignFailed
)

func (s AssignmentState) String() string {
	switch s {
	case AssignedDefault:
		return "assigned-default"
	case AssignedFailover:
		return "assigned-failover"
	case AssignmentInFlight:
		return "in-flight"
	case AssignFailed:
		return "assign-failed"
	}
	return "unassigned"
}

// PoolUpdate grows or shrinks the EIP pool at runtime.
type PoolUpdate struct {
	Remove bool
	Zone   string
	EIP    EIPID
	Eth1ID string
}

// FloatingIP is one row of the ownership table. Holder is who we
// believe serves the address right now, Pending is who an in-flight
// actuation is moving it to.
type FloatingIP struct {
	ID           EIPID
	Zone         string
	DefaultOwner NodeID
	Holder       NodeID
	Pending      NodeID
	State        AssignmentState
}
