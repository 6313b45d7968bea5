package models

type NodeID string

func (n NodeID) String() string {
	return string(n)
}

type InstanceStatus int8

const (
	StatusUnknown InstanceStatus = iota
	StatusAlive
	StatusLeft
	StatusFailed
)

func (s InstanceStatus) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusLeft:
		return "left"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

type RawMemberEventKind int8

const (
	RawUnknown RawMemberEventKind = iota
	RawJoin
	RawLeave
	RawUpdate
)

// RawMemberEvent is what the gossip transport emits before
// classification. Dead distinguishes a crash from a graceful leave on
// RawLeave events.
type RawMemberEvent struct {
	Kind RawMemberEventKind
	Name string
	Addr string
	Dead bool
	Meta []byte
}

// NodeMeta is gossiped alongside every member via the memberlist
// delegate.
type NodeMeta struct {
	Zone       string `json:"zone"`
	DefaultEIP string `json:"default_eip"`
}

type IntentType int8

const (
	IntentUnknown IntentType = iota
	IntentInstanceJoined
	IntentSelfJoined
	IntentInstanceLeft
	IntentInstanceFailed
	IntentInstanceUpdated
)

func (t IntentType) String() string {
	switch t {
	case IntentInstanceJoined:
		return "joined"
	case IntentSelfJoined:
		return "self-joined"
	case IntentInstanceLeft:
		return "left"
	case IntentInstanceFailed:
		return "failed"
	case IntentInstanceUpdated:
		return "updated"
	}
	return "unknown"
}

// Intent is a classified membership event.
type Intent struct {
	Type       IntentType
	Instance   NodeID
	Zone       string
	DefaultEIP EIPID
	Addr       string
}

// MemberInfo is one row of a full membership listing.
type MemberInfo struct {
	ID   NodeID
	Addr string
	Meta []byte
}

// MembershipView is the answer to a full-membership query. Everything
// in it is alive as far as the gossip layer knows.
type MembershipView struct {
	Members []MemberInfo
}
