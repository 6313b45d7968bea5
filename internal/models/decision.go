package models

import "time"

type DecisionKind int8

const (
	DecisionUnknown DecisionKind = iota
	DecisionAcquire
	DecisionRelease
	DecisionSuppressed
	DecisionNoEligibleHolder
	DecisionDefaultConflict
	DecisionActuationFailed
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAcquire:
		return "acquire"
	case DecisionRelease:
		return "release"
	case DecisionSuppressed:
		return "suppressed"
	case DecisionNoEligibleHolder:
		return "no-eligible-holder"
	case DecisionDefaultConflict:
		return "default-conflict"
	case DecisionActuationFailed:
		return "actuation-failed"
	}
	return "unknown"
}

// DecisionEvent is the journal record of one engine decision.
type DecisionEvent struct {
	Kind            DecisionKind
	EIP             EIPID
	Instance        NodeID
	Detail          string
	SnapshotVersion uint64
	At              time.Time
}

// EngineStatus is the read-only view exposed on the status surface.
type EngineStatus struct {
	Bootstrapped    bool
	Quorum          bool
	SnapshotVersion uint64
	TotalMembers    int
	AliveMembers    int
	Suppressed      uint64
	EIPs            []FloatingIP
}
