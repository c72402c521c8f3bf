package protocol

import "testing"

func TestAnnounceTLV(t *testing.T) {
	t.Run("Round-trip", func(t *testing.T) {
		encoded, err := EncodeAnnounce("alice", "0123456789abcdef")
		if err != nil {
			t.Fatalf("EncodeAnnounce falhou: %v", err)
		}

		nickname, peerID, err := DecodeAnnounce(encoded)
		if err != nil {
			t.Fatalf("DecodeAnnounce falhou: %v", err)
		}
		if nickname != "alice" || peerID != "0123456789abcdef" {
			t.Fatalf("valores não correspondem: %q %q", nickname, peerID)
		}
	})

	t.Run("TLV desconhecido é ignorado", func(t *testing.T) {
		encoded, _ := EncodeAnnounce("bob", "fedcba9876543210")
		withExtra := append([]byte{0x09, 0x02, 'h', 'i'}, encoded...)

		nickname, peerID, err := DecodeAnnounce(withExtra)
		if err != nil {
			t.Fatalf("DecodeAnnounce falhou: %v", err)
		}
		if nickname != "bob" || peerID != "fedcba9876543210" {
			t.Fatalf("valores não correspondem: %q %q", nickname, peerID)
		}
	})

	t.Run("TLV obrigatório ausente falha", func(t *testing.T) {
		onlyNickname := []byte{tlvNickname, 3, 'b', 'o', 'b'}
		if _, _, err := DecodeAnnounce(onlyNickname); err != ErrMalformed {
			t.Fatalf("esperado ErrMalformed, obtido %v", err)
		}
	})

	t.Run("Comprimento além do buffer falha", func(t *testing.T) {
		truncated := []byte{tlvNickname, 10, 'b', 'o', 'b'}
		if _, _, err := DecodeAnnounce(truncated); err != ErrMalformed {
			t.Fatalf("esperado ErrMalformed, obtido %v", err)
		}
	})
}
