package peer

import (
	"testing"
	"time"
)

func TestTable(t *testing.T) {
	t.Run("Upsert reporta quando o peer é novo", func(t *testing.T) {
		tb := NewTable()
		if isNew := tb.Upsert("abcd", "alice", DirectionOutbound); !isNew {
			t.Fatal("primeira inserção deveria ser reportada como nova")
		}
		if isNew := tb.Upsert("abcd", "alice", DirectionOutbound); isNew {
			t.Fatal("segunda inserção não deveria ser reportada como nova")
		}
	})

	t.Run("Nickname cai para o padrão quando desconhecido", func(t *testing.T) {
		tb := NewTable()
		if got := tb.Nickname("xyz", "anon"); got != "anon" {
			t.Fatalf("esperado anon, obtido %q", got)
		}
		tb.Upsert("xyz", "bob", DirectionInbound)
		if got := tb.Nickname("xyz", "anon"); got != "bob" {
			t.Fatalf("esperado bob, obtido %q", got)
		}
	})

	t.Run("Remove retorna se havia o peer", func(t *testing.T) {
		tb := NewTable()
		tb.Upsert("abcd", "alice", DirectionOutbound)
		if !tb.Remove("abcd") {
			t.Fatal("deveria remover peer existente")
		}
		if tb.Remove("abcd") {
			t.Fatal("não deveria remover peer inexistente")
		}
	})

	t.Run("EvictInactive remove peers além do timeout", func(t *testing.T) {
		tb := NewTable()
		fakeNow := time.Now()
		tb.now = func() time.Time { return fakeNow }

		tb.Upsert("abcd", "alice", DirectionOutbound)
		fakeNow = fakeNow.Add(31 * time.Second)

		evicted := tb.EvictInactive(30 * time.Second)
		if len(evicted) != 1 || evicted[0] != "abcd" {
			t.Fatalf("esperado evict de abcd, obtido %v", evicted)
		}
	})
}
