package mesh

import "github.com/permissionlesstech/bitchat-mesh/internal/obslog"

// runMaintenance performs the periodic sweep:
// evict stale outbound links, sweep every peer (linked or known only through
// a relayed announce) not seen within peer_inactivity, drop timed-out connect
// attempts, and let the reassembler expire abandoned fragment groups.
func (e *Engine) runMaintenance() {
	evictedPeers := e.link.EvictStale(e.cfg.PeerInactivity)
	for _, peerID := range evictedPeers {
		e.peers.Remove(peerID)
		e.delegate.PeerDisconnected(peerID)
	}

	inactivePeers := e.peers.EvictInactive(e.cfg.PeerInactivity)
	for _, peerID := range inactivePeers {
		e.delegate.PeerDisconnected(peerID)
	}
	evictedPeers = append(evictedPeers, inactivePeers...)

	if len(evictedPeers) > 0 {
		obslog.Get().WithFields(obslog.Fields(struct {
			LinkEvicted     int
			InactiveEvicted int
		}{len(evictedPeers) - len(inactivePeers), len(inactivePeers)})).Debug("mesh: evicted peers")
		e.refreshSnapshot()
	}

	if timedOut := e.link.CheckConnectTimeouts(); len(timedOut) > 0 {
		obslog.Get().WithField("devices", timedOut).Warn("mesh: connect attempts timed out")
	}

	if evicted := e.reassembler.Sweep(); evicted > 0 {
		obslog.Get().WithField("evicted", evicted).Debug("mesh: swept expired fragment slots")
	}

	if e.scanner.Recompute(e.directConnectionCount()) {
		e.applyScanState()
	}
}
