package protocol

import (
	"bytes"
	"testing"
)

func TestPadding(t *testing.T) {
	t.Run("Pad/Unpad são idempotentes", func(t *testing.T) {
		for _, size := range []int{0, 1, 100, 255, 256, 500, 2048, 3000} {
			data := bytes.Repeat([]byte{0x42}, size)
			if size == 0 {
				continue // padding a nil/empty slice is not exercised by the protocol
			}
			padded := Pad(data)
			if len(padded) < len(data) {
				t.Fatalf("tamanho %d: padding reduziu o tamanho", size)
			}
			unpadded := Unpad(padded)
			if !bytes.Equal(unpadded, data) {
				t.Fatalf("tamanho %d: unpad(pad(d)) != d", size)
			}
		}
	})

	t.Run("Pad escolhe o menor bloco suficiente", func(t *testing.T) {
		data := bytes.Repeat([]byte{1}, 100)
		padded := Pad(data)
		if len(padded) != 256 {
			t.Fatalf("esperado bloco de 256, obtido %d", len(padded))
		}
	})

	t.Run("Unpad ignora dados sem padding válido", func(t *testing.T) {
		data := []byte{1, 2, 3, 0}
		if !bytes.Equal(Unpad(data), data) {
			t.Fatalf("unpad não deveria alterar dados sem padding válido")
		}
	})
}
