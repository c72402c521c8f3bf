package mesh

import "github.com/permissionlesstech/bitchat-mesh/internal/protocol"

// SetNickname updates the local nickname and triggers a throttled announce.
func (e *Engine) SetNickname(nickname string) {
	e.post(func() {
		e.nickname = nickname
		e.maybeAnnounce()
	})
}

// SendMessage encodes content as a type-Message packet and broadcasts it.
func (e *Engine) SendMessage(content string) {
	e.post(func() {
		e.broadcast(e.newPacket(protocol.PacketTypeMessage, []byte(content)))
	})
}

// ConnectedPeerIDs returns a snapshot of every peer-id currently known.
func (e *Engine) ConnectedPeerIDs() []string {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()

	ids := make([]string, len(e.snapIDs))
	copy(ids, e.snapIDs)
	return ids
}

// PeerNicknames returns a snapshot map of peer-id to nickname.
func (e *Engine) PeerNicknames() map[string]string {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()

	out := make(map[string]string, len(e.snapNicks))
	for id, nick := range e.snapNicks {
		out[id] = nick
	}
	return out
}

// LocalPeerID returns the engine's own derived peer-id.
func (e *Engine) LocalPeerID() string {
	return e.identity.PeerID
}
