package fragment

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/permissionlesstech/bitchat-mesh/internal/protocol"
)

type slot struct {
	originalType protocol.PacketType
	total        uint16
	received     map[uint16][]byte
	startedAt    time.Time
}

// Reassembled is the result of completing a fragment group: the packet
// decoded from the concatenated chunks, explicitly flagged so relay
// decisions can tell it apart from a directly-received packet.
type Reassembled struct {
	Packet        *protocol.Packet
	WasFragmented bool
}

// Reassembler tracks in-flight fragment groups keyed by (sender_id,
// fragment_id) and reconstructs the original packet once all chunks arrive.
type Reassembler struct {
	mu           sync.Mutex
	slots        map[string]*slot
	now          func() time.Time
	slotLifetime time.Duration
}

// NewReassembler creates an empty Reassembler. slotLifetime bounds how long
// an incomplete group may live before Sweep drops it.
func NewReassembler(slotLifetime time.Duration) *Reassembler {
	return &Reassembler{
		slots:        make(map[string]*slot),
		now:          time.Now,
		slotLifetime: slotLifetime,
	}
}

func slotKey(senderID []byte, fragmentID [fragmentIDLen]byte) string {
	return hex.EncodeToString(senderID) + ":" + hex.EncodeToString(fragmentID[:])
}

// Add ingests one fragment packet. It returns a non-nil Reassembled only
// once the group it belongs to is complete; it returns an error only if the
// fragment payload itself is malformed.
func (r *Reassembler) Add(pkt *protocol.Packet) (*Reassembled, error) {
	payload, err := decodePayload(pkt.Payload)
	if err != nil {
		return nil, err
	}

	key := slotKey(pkt.SenderID, payload.FragmentID)

	r.mu.Lock()
	s, exists := r.slots[key]
	if !exists {
		s = &slot{
			originalType: payload.OriginalType,
			total:        payload.Total,
			received:     make(map[uint16][]byte),
			startedAt:    r.now(),
		}
		r.slots[key] = s
	}
	s.received[payload.Index] = payload.Chunk

	complete := len(s.received) == int(s.total)
	var ordered []byte
	if complete {
		for i := uint16(0); i < s.total; i++ {
			ordered = append(ordered, s.received[i]...)
		}
		delete(r.slots, key)
	}
	r.mu.Unlock()

	if !complete {
		return nil, nil
	}

	reassembledPacket, err := protocol.Decode(ordered)
	if err != nil {
		return nil, err
	}
	return &Reassembled{Packet: reassembledPacket, WasFragmented: true}, nil
}

// Sweep drops any slot older than slotLifetime and returns how many were
// evicted. Intended to be called from the mesh engine's maintenance timer.
func (r *Reassembler) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.slotLifetime)
	evicted := 0
	for key, s := range r.slots {
		if s.startedAt.Before(cutoff) {
			delete(r.slots, key)
			evicted++
		}
	}
	return evicted
}

// PendingGroups returns the number of fragment groups currently awaiting
// completion, for diagnostics.
func (r *Reassembler) PendingGroups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
