package protocol

import (
	"bytes"
	"testing"
)

func mustSenderID() []byte {
	return []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
}

// testCompressionThreshold mirrors config.DefaultConfig's
// CompressionThresholdBytes; the compression tests below depend on this
// exact value to straddle the threshold.
const testCompressionThreshold = 256

func TestCodec(t *testing.T) {
	t.Run("Round-trip de mensagem simples", func(t *testing.T) {
		original := &Packet{
			Version:     CurrentVersion,
			Type:        PacketTypeMessage,
			TTL:         8,
			TimestampMs: 1_700_000_000_000,
			SenderID:    mustSenderID(),
			Payload:     []byte("hello"),
		}

		encoded, err := Encode(original, false, testCompressionThreshold)
		if err != nil {
			t.Fatalf("Encode falhou: %v", err)
		}
		if len(encoded) != 22+5 {
			t.Fatalf("tamanho esperado 27, obtido %d", len(encoded))
		}
		if encoded[0] == 0 {
			t.Fatalf("byte de versão não deveria ser zero")
		}

		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode falhou: %v", err)
		}

		if decoded.Type != original.Type || decoded.TTL != original.TTL ||
			decoded.TimestampMs != original.TimestampMs || decoded.Flags != 0 {
			t.Fatalf("campos não correspondem: %+v vs %+v", decoded, original)
		}
		if !bytes.Equal(decoded.SenderID, original.SenderID) {
			t.Fatalf("SenderID não corresponde")
		}
		if !bytes.Equal(decoded.Payload, original.Payload) {
			t.Fatalf("Payload não corresponde: %q vs %q", decoded.Payload, original.Payload)
		}
	})

	t.Run("Round-trip com destinatário", func(t *testing.T) {
		original := &Packet{
			Version:     CurrentVersion,
			Type:        PacketTypeMessage,
			TTL:         3,
			TimestampMs: 42,
			Flags:       FlagRecipientPresent,
			SenderID:    mustSenderID(),
			RecipientID: []byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80},
			Payload:     []byte("oi"),
		}

		encoded, err := Encode(original, false, testCompressionThreshold)
		if err != nil {
			t.Fatalf("Encode falhou: %v", err)
		}
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode falhou: %v", err)
		}
		if !decoded.HasRecipient() {
			t.Fatalf("destinatário deveria estar presente")
		}
		if !bytes.Equal(decoded.RecipientID, original.RecipientID) {
			t.Fatalf("RecipientID não corresponde")
		}
	})

	t.Run("Compressão kicks in acima do limiar", func(t *testing.T) {
		payload := bytes.Repeat([]byte{'A'}, 300)
		original := &Packet{
			Version:     CurrentVersion,
			Type:        PacketTypeMessage,
			TTL:         1,
			TimestampMs: 1,
			SenderID:    mustSenderID(),
			Payload:     payload,
		}

		encoded, err := Encode(original, false, testCompressionThreshold)
		if err != nil {
			t.Fatalf("Encode falhou: %v", err)
		}
		if encoded[headerFlagsOffset]&FlagCompressed == 0 {
			t.Fatalf("bit de compressão deveria estar setado")
		}

		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode falhou: %v", err)
		}
		if !bytes.Equal(decoded.Payload, payload) {
			t.Fatalf("payload descomprimido não corresponde")
		}
	})

	t.Run("Payload pequeno não é comprimido", func(t *testing.T) {
		original := &Packet{
			Version:     CurrentVersion,
			Type:        PacketTypeMessage,
			TTL:         1,
			TimestampMs: 1,
			SenderID:    mustSenderID(),
			Payload:     []byte("curto"),
		}

		encoded, err := Encode(original, false, testCompressionThreshold)
		if err != nil {
			t.Fatalf("Encode falhou: %v", err)
		}
		if encoded[headerFlagsOffset]&FlagCompressed != 0 {
			t.Fatalf("não deveria comprimir payload pequeno")
		}
	})

	t.Run("Encode rejeita SenderID de tamanho errado", func(t *testing.T) {
		p := &Packet{SenderID: []byte{1, 2, 3}}
		if _, err := Encode(p, false, testCompressionThreshold); err != ErrInvalidField {
			t.Fatalf("esperado ErrInvalidField, obtido %v", err)
		}
	})

	t.Run("Decode rejeita buffer muito curto", func(t *testing.T) {
		if _, err := Decode([]byte{1, 2, 3}); err != ErrMalformed {
			t.Fatalf("esperado ErrMalformed, obtido %v", err)
		}
	})
}

// headerFlagsOffset is the byte offset of the flags field in the wire
// layout (version, type, ttl, timestamp[8]).
const headerFlagsOffset = 1 + 1 + 1 + 8
