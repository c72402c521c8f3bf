package protocol

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
)

// Encode serializes a Packet into its wire representation.
//
// If pad is true, the payload is first extended with block padding. The
// (possibly padded) payload is then compressed with zlib when it is at
// least compressionThresholdBytes long and compression actually shrinks it;
// on success the wire payload becomes a 4-byte big-endian original-length
// prefix followed by the compressed bytes, and FlagCompressed is set.
func Encode(p *Packet, pad bool, compressionThresholdBytes int) ([]byte, error) {
	if len(p.SenderID) != senderIDLen {
		return nil, ErrInvalidField
	}
	hasRecipient := p.Flags&FlagRecipientPresent != 0
	if hasRecipient && len(p.RecipientID) != recipientIDLen {
		return nil, ErrInvalidField
	}

	payload := p.Payload
	if pad {
		payload = Pad(payload)
	}

	flags := p.Flags &^ FlagCompressed
	if len(payload) >= compressionThresholdBytes {
		if compressed, ok := tryCompress(payload); ok {
			payload = compressed
			flags |= FlagCompressed
		}
	}

	size := headerLen + len(payload)
	if hasRecipient {
		size += recipientIDLen
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	buf.WriteByte(p.Version)
	buf.WriteByte(byte(p.Type))
	buf.WriteByte(p.TTL)
	binary.Write(buf, binary.BigEndian, p.TimestampMs)
	buf.WriteByte(flags)
	binary.Write(buf, binary.BigEndian, uint16(len(payload)))
	buf.Write(p.SenderID)
	if hasRecipient {
		buf.Write(p.RecipientID)
	}
	buf.Write(payload)

	return buf.Bytes(), nil
}

// tryCompress attempts zlib compression, returning the 4-byte-length-prefixed
// compressed form and true only if it is strictly smaller than the input.
func tryCompress(data []byte) ([]byte, bool) {
	var compressedBuf bytes.Buffer
	zw := zlib.NewWriter(&compressedBuf)
	if _, err := zw.Write(data); err != nil {
		return nil, false
	}
	if err := zw.Close(); err != nil {
		return nil, false
	}

	if compressedBuf.Len() >= len(data) {
		return nil, false
	}

	out := make([]byte, 4+compressedBuf.Len())
	binary.BigEndian.PutUint32(out[:4], uint32(len(data)))
	copy(out[4:], compressedBuf.Bytes())
	return out, true
}

// Decode parses a wire packet produced by Encode. The returned
// Packet's Payload is the decompressed (but not de-padded) payload; padding
// is never stripped here since it is opt-in per caller, see Unpad.
func Decode(data []byte) (*Packet, error) {
	if len(data) < headerLen {
		return nil, ErrMalformed
	}

	r := bytes.NewReader(data)
	p := &Packet{}

	version, _ := r.ReadByte()
	p.Version = version
	msgType, _ := r.ReadByte()
	p.Type = PacketType(msgType)
	ttl, _ := r.ReadByte()
	p.TTL = ttl

	if err := binary.Read(r, binary.BigEndian, &p.TimestampMs); err != nil {
		return nil, ErrMalformed
	}

	flags, _ := r.ReadByte()
	p.Flags = flags

	var payloadLen uint16
	if err := binary.Read(r, binary.BigEndian, &payloadLen); err != nil {
		return nil, ErrMalformed
	}

	p.SenderID = make([]byte, senderIDLen)
	if _, err := io.ReadFull(r, p.SenderID); err != nil {
		return nil, ErrMalformed
	}

	if p.HasRecipient() {
		p.RecipientID = make([]byte, recipientIDLen)
		if _, err := io.ReadFull(r, p.RecipientID); err != nil {
			return nil, ErrMalformed
		}
	}

	wirePayload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, wirePayload); err != nil {
		return nil, ErrMalformed
	}

	if p.Flags&FlagCompressed != 0 {
		payload, err := decompress(wirePayload)
		if err != nil {
			return nil, err
		}
		p.Payload = payload
	} else {
		p.Payload = wirePayload
	}

	return p, nil
}

func decompress(wire []byte) ([]byte, error) {
	if len(wire) < 4 {
		return nil, ErrMalformed
	}
	originalLen := binary.BigEndian.Uint32(wire[:4])

	zr, err := zlib.NewReader(bytes.NewReader(wire[4:]))
	if err != nil {
		return nil, ErrMalformed
	}
	defer zr.Close()

	var out bytes.Buffer
	if _, err := io.Copy(&out, zr); err != nil {
		return nil, ErrMalformed
	}

	if uint32(out.Len()) != originalLen {
		return nil, ErrDecompressionMismatch
	}

	return out.Bytes(), nil
}
