package fragment

import (
	"crypto/rand"
	"time"

	"github.com/permissionlesstech/bitchat-mesh/internal/dedup"
	"github.com/permissionlesstech/bitchat-mesh/internal/protocol"
)

// sentEchoWindow is how long a fragment_id is remembered as "ours" after
// Split emits it, so a reflected copy relayed back by a neighbor can be
// recognized as an echo rather than reassembled again.
const sentEchoWindow = 60 * time.Second

// Fragmenter splits over-MTU packets into a group of type-4 Fragment
// packets, each independently encodable by internal/protocol, and never
// fragments a packet that is already a Fragment.
type Fragmenter struct {
	sent *dedup.Deduplicator
}

// NewFragmenter creates a Fragmenter.
func NewFragmenter() *Fragmenter {
	return &Fragmenter{sent: dedup.New(sentEchoWindow, 4096)}
}

// Split breaks encoded (the wire bytes of an already-built Packet, as
// produced by protocol.Encode) into a sequence of Fragment packets sized to
// fit effectiveWriteLen, preserving the original packet's sender, recipient,
// timestamp, ttl and recording its own generated fragment_id in the sent set.
func (f *Fragmenter) Split(original *protocol.Packet, encoded []byte, effectiveWriteLen int) ([]*protocol.Packet, error) {
	if original.Type == protocol.PacketTypeFragment {
		return nil, nil
	}

	chunkSize := effectiveWriteLen - payloadOverhead - fullPacketOverhead
	if chunkSize < 32 {
		chunkSize = 32
	}

	total := (len(encoded) + chunkSize - 1) / chunkSize
	if total < 2 {
		// Split is only meant to be called once the caller has already
		// determined the encoded packet exceeds the effective MTU; a
		// single-chunk result means there was nothing to fragment.
		return nil, nil
	}

	var fragmentID [fragmentIDLen]byte
	if _, err := rand.Read(fragmentID[:]); err != nil {
		return nil, err
	}
	f.MarkSent(fragmentID)

	fragments := make([]*protocol.Packet, 0, total)
	for i := 0; i < total; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(encoded) {
			end = len(encoded)
		}
		if start >= len(encoded) {
			break
		}

		payload := &Payload{
			FragmentID:   fragmentID,
			Index:        uint16(i),
			Total:        uint16(total),
			OriginalType: original.Type,
			Chunk:        encoded[start:end],
		}

		fragPacket := &protocol.Packet{
			Version:     original.Version,
			Type:        protocol.PacketTypeFragment,
			TTL:         original.TTL,
			TimestampMs: original.TimestampMs,
			Flags:       original.Flags & protocol.FlagRecipientPresent,
			SenderID:    original.SenderID,
			RecipientID: original.RecipientID,
			Payload:     payload.encode(),
		}
		fragments = append(fragments, fragPacket)
	}

	return fragments, nil
}

// MarkSent records fragmentID as locally originated.
func (f *Fragmenter) MarkSent(fragmentID [fragmentIDLen]byte) {
	f.sent.MarkProcessed(string(fragmentID[:]))
}

// WasSent reports whether fragmentID was generated by this Fragmenter within
// the echo-suppression window.
func (f *Fragmenter) WasSent(fragmentID [fragmentIDLen]byte) bool {
	return f.sent.IsDuplicate(string(fragmentID[:]))
}

// SpacingFor returns the per-index pacing delay used when emitting a
// fragment group of the given size.
func SpacingFor(total int) time.Duration {
	if total <= 10 {
		return 20 * time.Millisecond
	}
	return 30 * time.Millisecond
}
