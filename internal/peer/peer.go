// Package peer holds the mesh engine's runtime view of remote nodes: the
// peer map, keyed by peer-id, that the Mesh Engine exclusively owns.
package peer

import "time"

// DirectionHint records how a peer became known to us.
type DirectionHint int

const (
	// DirectionUnknown means the peer was only ever seen via announce
	// relayed through someone else, never over a link we hold ourselves.
	DirectionUnknown DirectionHint = iota
	DirectionOutbound
	DirectionInbound
)

// Peer is the runtime record for one mesh node other than ourselves.
type Peer struct {
	PeerID     string
	Nickname   string
	LastSeenAt time.Time
	Direction  DirectionHint
}

// Table is the peer map, keyed by peer-id. It is not safe for concurrent
// use from multiple goroutines; the mesh engine's single-writer task is the
// only intended caller.
type Table struct {
	peers map[string]*Peer
	now   func() time.Time
}

// NewTable creates an empty peer table.
func NewTable() *Table {
	return &Table{
		peers: make(map[string]*Peer),
		now:   time.Now,
	}
}

// Upsert records an announce or link-binding sighting of peerID, updating
// nickname (if non-empty) and last-seen time, and overwriting direction
// whenever the sighting came over a link (direction != DirectionUnknown). It
// returns true if this is a newly seen peer.
func (t *Table) Upsert(peerID, nickname string, direction DirectionHint) bool {
	p, exists := t.peers[peerID]
	if !exists {
		p = &Peer{PeerID: peerID, Direction: direction}
		t.peers[peerID] = p
	}
	if nickname != "" {
		p.Nickname = nickname
	}
	if direction != DirectionUnknown {
		p.Direction = direction
	}
	p.LastSeenAt = t.now()
	return !exists
}

// Remove drops a peer (on leave, link disconnect, or inactivity eviction).
func (t *Table) Remove(peerID string) bool {
	if _, exists := t.peers[peerID]; !exists {
		return false
	}
	delete(t.peers, peerID)
	return true
}

// Nickname returns the peer's last-announced nickname, or fallback if the
// peer is unknown or has no nickname yet.
func (t *Table) Nickname(peerID, fallback string) string {
	if p, ok := t.peers[peerID]; ok && p.Nickname != "" {
		return p.Nickname
	}
	return fallback
}

// ConnectedPeerIDs returns every known peer-id.
func (t *Table) ConnectedPeerIDs() []string {
	ids := make([]string, 0, len(t.peers))
	for id := range t.peers {
		ids = append(ids, id)
	}
	return ids
}

// Nicknames returns a snapshot map of peer-id to nickname.
func (t *Table) Nicknames() map[string]string {
	out := make(map[string]string, len(t.peers))
	for id, p := range t.peers {
		out[id] = p.Nickname
	}
	return out
}

// EvictInactive removes every peer whose last-seen time is older than
// inactivity, returning the evicted peer-ids.
func (t *Table) EvictInactive(inactivity time.Duration) []string {
	cutoff := t.now().Add(-inactivity)
	var evicted []string
	for id, p := range t.peers {
		if p.LastSeenAt.Before(cutoff) {
			delete(t.peers, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
