package mesh

import "time"

// Delegate is the upper-layer API's callback surface: the engine
// delivers messages and connectivity changes here instead of returning them
// from its command methods.
type Delegate interface {
	PublicMessage(fromPeerID, nickname, content string, timestamp time.Time)
	PeerConnected(peerID string)
	PeerDisconnected(peerID string)
	PeerListChanged(peerIDs []string)
}

// NoopDelegate discards every callback; used when a caller starts the engine
// without wiring a UI.
type NoopDelegate struct{}

func (NoopDelegate) PublicMessage(fromPeerID, nickname, content string, timestamp time.Time) {}
func (NoopDelegate) PeerConnected(peerID string)                                             {}
func (NoopDelegate) PeerDisconnected(peerID string)                                          {}
func (NoopDelegate) PeerListChanged(peerIDs []string)                                        {}
