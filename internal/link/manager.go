package link

import (
	"sync"
	"time"
)

// Manager tracks outbound (central) and inbound (peripheral) link state and
// enforces the initiator role's admission rules: connection budget, global
// connect-rate-limit, RSSI cutoff and the mutual-exclusion tie-break. It is
// driven exclusively by the mesh engine's single-writer task; the mutex here
// only guards against the aggregate-count queries the engine may issue from
// elsewhere.
type Manager struct {
	localPeerID      string
	maxOutboundLinks int
	connectRateLimit time.Duration
	rssiCutoffDBM    int
	connectTimeout   time.Duration

	mu                 sync.Mutex
	outbound           map[string]*OutboundLink // keyed by device uuid
	inbound            map[string]*InboundLink  // keyed by central uuid
	lastConnectAttempt time.Time
	pending            []PendingNotification
	pendingCap         int
	now                func() time.Time
}

// Config groups the admission-rule tunables a Manager needs at construction.
type Config struct {
	LocalPeerID      string
	MaxOutboundLinks int
	ConnectRateLimit time.Duration
	RSSICutoffDBM    int
	ConnectTimeout   time.Duration
	PendingCap       int
}

// New creates a Manager for localPeerID using the given admission rules.
func New(cfg Config) *Manager {
	return &Manager{
		localPeerID:      cfg.LocalPeerID,
		maxOutboundLinks: cfg.MaxOutboundLinks,
		connectRateLimit: cfg.ConnectRateLimit,
		rssiCutoffDBM:    cfg.RSSICutoffDBM,
		connectTimeout:   cfg.ConnectTimeout,
		outbound:         make(map[string]*OutboundLink),
		inbound:          make(map[string]*InboundLink),
		pendingCap:       cfg.PendingCap,
		now:              time.Now,
	}
}

// TryConnect evaluates a discovery event against the initiator role's
// admission rules. If accepted, it creates the outbound link in
// Connecting, records the attempt time against the global rate limit, and
// returns true so the caller can issue the OS connect call.
func (m *Manager) TryConnect(deviceUUID string, rssiDBM int, connectable bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.countActiveLocked() >= m.maxOutboundLinks {
		return false
	}
	if now := m.now(); !m.lastConnectAttempt.IsZero() && now.Sub(m.lastConnectAttempt) < m.connectRateLimit {
		return false
	}
	if rssiDBM <= m.rssiCutoffDBM || !connectable {
		return false
	}
	if !shouldInitiate(m.localPeerID, deviceUUID) {
		return false
	}

	now := m.now()
	m.outbound[deviceUUID] = &OutboundLink{
		DeviceUUID:    deviceUUID,
		State:         Connecting,
		LastAttemptAt: now,
	}
	m.lastConnectAttempt = now
	return true
}

// countActiveLocked counts outbound links in Connecting or Connected. Caller
// must hold m.mu.
func (m *Manager) countActiveLocked() int {
	count := 0
	for _, l := range m.outbound {
		if l.State == Connecting || l.State == Connected {
			count++
		}
	}
	return count
}

// OnConnected transitions deviceUUID to Connected and records the discovered
// characteristic handle and write-without-response capacity. It reports
// false if no Connecting link for deviceUUID exists.
func (m *Manager) OnConnected(deviceUUID, characteristicHandle string, maxWriteLength int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.outbound[deviceUUID]
	if !ok {
		return false
	}
	l.State = Connected
	l.CharacteristicHandle = characteristicHandle
	l.MaxWriteLength = maxWriteLength
	return true
}

// BindOutboundPeer records the peer-id an outbound link's remote announced,
// first binding for that device.
func (m *Manager) BindOutboundPeer(deviceUUID, peerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.outbound[deviceUUID]
	if !ok {
		return false
	}
	firstBinding := l.PeerID == ""
	l.PeerID = peerID
	return firstBinding
}

// RemoveOutbound drops the outbound link for deviceUUID (connect
// failure/timeout/disconnect), returning the bound peer-id if one existed so
// the caller can forget its nickname and emit a disconnect event.
func (m *Manager) RemoveOutbound(deviceUUID string) (peerID string, hadPeer bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.outbound[deviceUUID]
	if !ok {
		return "", false
	}
	delete(m.outbound, deviceUUID)
	return l.PeerID, l.PeerID != ""
}

// DisconnectByPeer removes whichever outbound link is bound to peerID, for
// the Leave-packet handler. It reports the device uuid removed.
func (m *Manager) DisconnectByPeer(peerID string) (deviceUUID string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for uuid, l := range m.outbound {
		if l.PeerID == peerID {
			delete(m.outbound, uuid)
			return uuid, true
		}
	}
	return "", false
}

// CheckConnectTimeouts evicts outbound links still Connecting past
// connectTimeout, returning the device uuids dropped. Eviction here counts
// toward the global connect-rate-limit clock only in the sense that the
// clock was already advanced at TryConnect time; no further bookkeeping is
// needed.
func (m *Manager) CheckConnectTimeouts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.connectTimeout)
	var evicted []string
	for uuid, l := range m.outbound {
		if l.State == Connecting && l.LastAttemptAt.Before(cutoff) {
			delete(m.outbound, uuid)
			evicted = append(evicted, uuid)
		}
	}
	return evicted
}

// EvictStale drops outbound links that are neither Connected nor Connecting
// and whose last attempt is older than inactivity.
// It returns the peer-ids that were bound to evicted links.
func (m *Manager) EvictStale(inactivity time.Duration) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-inactivity)
	var evictedPeers []string
	for uuid, l := range m.outbound {
		if l.State == Connected || l.State == Connecting {
			continue
		}
		if l.LastAttemptAt.Before(cutoff) {
			delete(m.outbound, uuid)
			if l.PeerID != "" {
				evictedPeers = append(evictedPeers, l.PeerID)
			}
		}
	}
	return evictedPeers
}

// ConnectedDeviceUUIDs returns the device uuids of all Connected outbound
// links, for broadcast fan-out.
func (m *Manager) ConnectedDeviceUUIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	uuids := make([]string, 0, len(m.outbound))
	for uuid, l := range m.outbound {
		if l.State == Connected {
			uuids = append(uuids, uuid)
		}
	}
	return uuids
}

// EffectiveWriteLength returns the smallest advertised max-write length
// among Connected outbound links, clamped by defaultFragmentSize; it falls
// back to defaultFragmentSize when no outbound link is Connected.
func (m *Manager) EffectiveWriteLength(defaultFragmentSize int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	min := 0
	found := false
	for _, l := range m.outbound {
		if l.State != Connected || l.MaxWriteLength <= 0 {
			continue
		}
		if !found || l.MaxWriteLength < min {
			min = l.MaxWriteLength
			found = true
		}
	}
	if !found {
		return defaultFragmentSize
	}
	if min > defaultFragmentSize {
		return defaultFragmentSize
	}
	return min
}
