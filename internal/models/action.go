package models

type ActionType int8

const (
	ActionUnknown ActionType = iota
	// ActionAcquire associates the EIP with Instance. The provider
	// must treat it as force-reassociation: a dead previous holder
	// cannot cooperate in a release.
	ActionAcquire
	// ActionRelease disassociates the EIP from Instance. Only issued
	// against the local node's own live hold.
	ActionRelease
)

func (t ActionType) String() string {
	switch t {
	case ActionAcquire:
		return "acquire"
	case ActionRelease:
		return "release"
	}
	return "unknown"
}

// Action is one actuation decision, pinned to the snapshot version it
// was decided under.
type Action struct {
	Type            ActionType
	EIP             EIPID
	Instance        NodeID
	SnapshotVersion uint64
}

type ActionResult struct {
	Action Action
	Err    error
}
