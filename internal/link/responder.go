package link

// Subscribe records a central that subscribed to our characteristic,
// creating its inbound link state.
func (m *Manager) Subscribe(centralUUID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.inbound[centralUUID]; exists {
		return
	}
	m.inbound[centralUUID] = &InboundLink{CentralUUID: centralUUID}
}

// Unsubscribe drops a central's inbound link state, returning the bound
// peer-id if one had announced over this link.
func (m *Manager) Unsubscribe(centralUUID string) (peerID string, hadPeer bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.inbound[centralUUID]
	if !ok {
		return "", false
	}
	delete(m.inbound, centralUUID)
	return l.PeerID, l.PeerID != ""
}

// BindInboundPeer records the peer-id an inbound link's remote announced,
// reporting whether this is the first binding for that central.
func (m *Manager) BindInboundPeer(centralUUID, peerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.inbound[centralUUID]
	if !ok {
		return false
	}
	firstBinding := l.PeerID == ""
	l.PeerID = peerID
	return firstBinding
}

// InboundSubscribers returns the central uuids currently subscribed.
func (m *Manager) InboundSubscribers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	uuids := make([]string, 0, len(m.inbound))
	for uuid := range m.inbound {
		uuids = append(uuids, uuid)
	}
	return uuids
}

// EnqueuePending buffers a characteristic update that the OS reported its
// notification queue too full to accept right now. The buffer is bounded
// (cap set at construction); past capacity the oldest pending update is
// dropped to make room, and dropped is reported back so the caller can log
// the BackpressureDrop.
func (m *Manager) EnqueuePending(data []byte, subscribers []string) (dropped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.pending) >= m.pendingCap {
		m.pending = m.pending[1:]
		dropped = true
	}
	m.pending = append(m.pending, PendingNotification{Data: data, Subscribers: subscribers})
	return dropped
}

// DrainPending removes and returns every buffered notification, for use when
// the OS signals ready-to-update-subscribers.
func (m *Manager) DrainPending() []PendingNotification {
	m.mu.Lock()
	defer m.mu.Unlock()

	drained := m.pending
	m.pending = nil
	return drained
}
