package identity

import "testing"

func TestIdentity(t *testing.T) {
	t.Run("Gera peer-id de 16 caracteres hex válidos", func(t *testing.T) {
		id, err := New()
		if err != nil {
			t.Fatalf("New falhou: %v", err)
		}
		if err := ValidatePeerID(id.PeerID); err != nil {
			t.Fatalf("peer-id gerado é inválido: %v", err)
		}
	})

	t.Run("Duas identidades geradas não colidem", func(t *testing.T) {
		a, _ := New()
		b, _ := New()
		if a.PeerID == b.PeerID {
			t.Fatal("duas identidades geradas aleatoriamente não deveriam colidir")
		}
	})

	t.Run("ValidatePeerID rejeita tamanho errado", func(t *testing.T) {
		if err := ValidatePeerID("abc"); err == nil {
			t.Fatal("esperava erro para peer-id curto demais")
		}
	})

	t.Run("ValidatePeerID rejeita caracteres não-hex", func(t *testing.T) {
		if err := ValidatePeerID("zzzzzzzzzzzzzzzz"); err == nil {
			t.Fatal("esperava erro para caracteres não-hex")
		}
	})

	t.Run("ValidatePeerID aceita hex válido de 16 caracteres", func(t *testing.T) {
		if err := ValidatePeerID("abcdefabcdefabcd"); err != nil {
			t.Fatalf("hex válido não deveria falhar: %v", err)
		}
	})
}
