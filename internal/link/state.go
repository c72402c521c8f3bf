// Package link implements the dual-role BLE link manager: the initiator
// (central) side that scans and connects outward, and the responder
// (peripheral) side that advertises and tracks subscribers.
// The Manager owns the link-state maps exclusively; callers query aggregate
// counts rather than reaching into them directly.
package link

import "time"

// OutboundState is the lifecycle of a device we are trying to, or have,
// connected to as a central.
type OutboundState int

const (
	Idle OutboundState = iota
	Connecting
	Connected
	Closing
)

func (s OutboundState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// OutboundLink is the state kept for one OS-level device identifier
// discovered as a connect candidate.
type OutboundLink struct {
	DeviceUUID           string
	CharacteristicHandle string
	PeerID               string // empty until the remote announces
	State                OutboundState
	LastAttemptAt        time.Time
	MaxWriteLength       int // advertised max-write-without-response length, 0 if unknown
}

// InboundLink is the state kept for one remote that subscribed to our
// characteristic.
type InboundLink struct {
	CentralUUID string
	PeerID      string // empty until the remote announces
}

// PendingNotification is a deferred characteristic update, queued when the
// OS reports its update queue full.
type PendingNotification struct {
	Data        []byte
	Subscribers []string
}
