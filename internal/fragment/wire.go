// Package fragment implements the fragmentation/reassembly engine:
// splitting over-MTU packets into type-4 Fragment packets and reassembling
// them back into the original packet at the receiving end.
package fragment

import (
	"encoding/binary"
	"errors"

	"github.com/permissionlesstech/bitchat-mesh/internal/protocol"
)

// payloadOverhead is the size of a fragment payload's fixed header:
// fragment_id(8) + index(2) + total(2) + original_type(1).
const payloadOverhead = 8 + 2 + 2 + 1

// fullPacketOverhead is the assumed worst-case wire overhead of wrapping a
// fragment payload in its own Packet, used when sizing chunks.
const fullPacketOverhead = 30

// fragmentIDLen is the size of the uniform-random fragment group identifier.
const fragmentIDLen = 8

var (
	// ErrMalformed is returned when a fragment payload fails structural
	// validation (too short, bad index/total).
	ErrMalformed = errors.New("fragment: malformed payload")
)

// Payload is the decoded payload of a type-4 Packet.
type Payload struct {
	FragmentID   [fragmentIDLen]byte
	Index        uint16
	Total        uint16
	OriginalType protocol.PacketType
	Chunk        []byte
}

// encode serializes a Payload to bytes (the Payload field of a type-4 Packet).
func (p *Payload) encode() []byte {
	out := make([]byte, payloadOverhead+len(p.Chunk))
	copy(out[0:8], p.FragmentID[:])
	binary.BigEndian.PutUint16(out[8:10], p.Index)
	binary.BigEndian.PutUint16(out[10:12], p.Total)
	out[12] = byte(p.OriginalType)
	copy(out[13:], p.Chunk)
	return out
}

// DecodePayload parses the payload of a type-4 Packet, exported so callers
// outside this package (the mesh engine's fragment-arrival dedup) can read
// the fragment_id/index/total header without going through Reassembler.Add.
func DecodePayload(data []byte) (*Payload, error) {
	return decodePayload(data)
}

// decodePayload parses the payload of a type-4 Packet, validating that
// 0 <= index < total, total >= 2, and original_type != Fragment.
func decodePayload(data []byte) (*Payload, error) {
	if len(data) < payloadOverhead+1 {
		return nil, ErrMalformed
	}

	p := &Payload{}
	copy(p.FragmentID[:], data[0:8])
	p.Index = binary.BigEndian.Uint16(data[8:10])
	p.Total = binary.BigEndian.Uint16(data[10:12])
	p.OriginalType = protocol.PacketType(data[12])
	p.Chunk = data[13:]

	if p.Total < 2 || p.Index >= p.Total {
		return nil, ErrMalformed
	}
	if p.OriginalType == protocol.PacketTypeFragment {
		return nil, ErrMalformed
	}
	if len(p.Chunk) == 0 {
		return nil, ErrMalformed
	}

	return p, nil
}
