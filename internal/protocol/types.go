// Package protocol implements the binary wire framing used by the mesh:
// the fixed+variable packet header, padding, and the announce TLV payload.
package protocol

import (
	"encoding/hex"
	"errors"
	"strconv"
)

// PacketType identifies the kind of payload a Packet carries.
type PacketType uint8

const (
	PacketTypeAnnounce PacketType = 1
	PacketTypeMessage  PacketType = 2
	PacketTypeLeave    PacketType = 3
	PacketTypeFragment PacketType = 4
)

// CurrentVersion is the only wire version this implementation emits.
const CurrentVersion uint8 = 1

// Flag bits within Packet.Flags.
const (
	FlagRecipientPresent uint8 = 1 << 0
	FlagCompressed       uint8 = 1 << 1
)

var (
	// ErrInvalidField is returned by Encode when a caller-supplied field
	// violates the wire layout (wrong SenderID/RecipientID length).
	ErrInvalidField = errors.New("protocol: invalid field")
	// ErrMalformed is returned by Decode when the input is too short or
	// internally inconsistent to be a well-formed packet.
	ErrMalformed = errors.New("protocol: malformed packet")
	// ErrDecompressionMismatch is returned by Decode when a compressed
	// payload's embedded original length disagrees with the decompressed
	// length actually produced.
	ErrDecompressionMismatch = errors.New("protocol: decompression size mismatch")
)

// senderIDLen and recipientIDLen are fixed by the wire format.
const (
	senderIDLen    = 8
	recipientIDLen = 8
	// headerLen is version+type+ttl+timestamp+flags+payload_length+sender,
	// i.e. the fixed-size prefix before the optional recipient and payload.
	headerLen = 1 + 1 + 1 + 8 + 1 + 2 + senderIDLen
)

// Packet is the decoded wire PDU.
type Packet struct {
	Version     uint8
	Type        PacketType
	TTL         uint8
	TimestampMs uint64
	Flags       uint8
	SenderID    []byte // exactly 8 bytes
	RecipientID []byte // exactly 8 bytes, nil iff FlagRecipientPresent unset
	Payload     []byte
}

// HasRecipient reports whether the packet carries a recipient ID.
func (p *Packet) HasRecipient() bool {
	return p.Flags&FlagRecipientPresent != 0
}

// DedupID returns the canonical de-duplication identifier for the packet:
// "(sender_id hex)-timestamp_ms-type".
func (p *Packet) DedupID() string {
	return hex.EncodeToString(p.SenderID) + "-" + strconv.FormatUint(p.TimestampMs, 10) + "-" + strconv.Itoa(int(p.Type))
}
