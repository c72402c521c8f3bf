package link

import (
	"testing"
	"time"
)

func newTestManager(localPeerID string) *Manager {
	return New(Config{
		LocalPeerID:      localPeerID,
		MaxOutboundLinks: 2,
		ConnectRateLimit: 2 * time.Second,
		RSSICutoffDBM:    -80,
		ConnectTimeout:   10 * time.Second,
		PendingCap:       3,
	})
}

// findInitiator returns the peer-id that would be the one to connect, among
// two candidates that discover each other's BLE address simultaneously.
func findInitiator(t *testing.T, peerA, addrA, peerB, addrB string) (aInitiates, bInitiates bool) {
	t.Helper()
	return shouldInitiate(peerA, addrB), shouldInitiate(peerB, addrA)
}

func TestTieBreak(t *testing.T) {
	t.Run("Exatamente um lado inicia a conexão", func(t *testing.T) {
		peerA := "1111111111111111"
		peerB := "ffffffffffffffff"
		aInitiates, bInitiates := findInitiator(t, peerA, "device-b-addr", peerB, "device-a-addr")
		if aInitiates == bInitiates {
			t.Fatalf("esperado exatamente um lado iniciando, obtido a=%v b=%v", aInitiates, bInitiates)
		}
	})

	t.Run("candidateID é determinístico", func(t *testing.T) {
		if candidateID("some-device") != candidateID("some-device") {
			t.Fatal("candidateID deveria ser determinístico para a mesma entrada")
		}
	})
}

func TestTryConnect(t *testing.T) {
	t.Run("Rejeita RSSI abaixo do corte", func(t *testing.T) {
		m := newTestManager("ffffffffffffffff")
		if m.TryConnect("dev-1", -90, true) {
			t.Fatal("não deveria conectar com RSSI abaixo do corte")
		}
	})

	t.Run("Rejeita dispositivo não conectável", func(t *testing.T) {
		m := newTestManager("ffffffffffffffff")
		if m.TryConnect("dev-1", -50, false) {
			t.Fatal("não deveria conectar a um dispositivo não conectável")
		}
	})

	t.Run("Respeita o orçamento de conexões", func(t *testing.T) {
		m := newTestManager("ffffffffffffffff")
		fakeNow := time.Now()
		m.now = func() time.Time { return fakeNow }

		if !m.TryConnect("dev-1", -50, true) {
			t.Fatal("primeira conexão deveria ser aceita")
		}
		fakeNow = fakeNow.Add(3 * time.Second) // além do rate limit
		if !m.TryConnect("dev-2", -50, true) {
			t.Fatal("segunda conexão deveria ser aceita (orçamento = 2)")
		}
		fakeNow = fakeNow.Add(3 * time.Second)
		if m.TryConnect("dev-3", -50, true) {
			t.Fatal("terceira conexão deveria ser rejeitada (orçamento excedido)")
		}
	})

	t.Run("Respeita o limite de taxa global de conexão", func(t *testing.T) {
		m := newTestManager("ffffffffffffffff")
		fakeNow := time.Now()
		m.now = func() time.Time { return fakeNow }

		if !m.TryConnect("dev-1", -50, true) {
			t.Fatal("primeira conexão deveria ser aceita")
		}
		if m.TryConnect("dev-2", -50, true) {
			t.Fatal("segunda conexão imediata deveria ser rejeitada pelo rate limit")
		}
	})

	t.Run("Recusa de lado perdedor do tie-break", func(t *testing.T) {
		// candidateID("dev-1") precisa ser maior que o peer local para rejeitar.
		loserPeerID := "0000000000000000"
		m := newTestManager(loserPeerID)
		if m.TryConnect("dev-1", -50, true) {
			t.Fatal("um peer-id mínimo nunca deveria vencer o tie-break")
		}
	})
}

func TestOutboundLifecycle(t *testing.T) {
	t.Run("Ciclo completo: conectar, vincular peer, desconectar", func(t *testing.T) {
		m := newTestManager("ffffffffffffffff")
		if !m.TryConnect("dev-1", -50, true) {
			t.Fatal("conexão deveria ser aceita")
		}

		if !m.OnConnected("dev-1", "char-handle", 180) {
			t.Fatal("OnConnected deveria ter sucesso para link Connecting")
		}

		if first := m.BindOutboundPeer("dev-1", "abcdefabcdefabcd"); !first {
			t.Fatal("primeira vinculação deveria retornar true")
		}
		if again := m.BindOutboundPeer("dev-1", "abcdefabcdefabcd"); again {
			t.Fatal("segunda vinculação não deveria ser reportada como primeira")
		}

		uuids := m.ConnectedDeviceUUIDs()
		if len(uuids) != 1 || uuids[0] != "dev-1" {
			t.Fatalf("esperado [dev-1], obtido %v", uuids)
		}

		peerID, hadPeer := m.RemoveOutbound("dev-1")
		if !hadPeer || peerID != "abcdefabcdefabcd" {
			t.Fatalf("esperado remover peer vinculado, obtido %q hadPeer=%v", peerID, hadPeer)
		}
		if len(m.ConnectedDeviceUUIDs()) != 0 {
			t.Fatal("link deveria ter sido removido")
		}
	})

	t.Run("DisconnectByPeer remove o link vinculado a um peer-id", func(t *testing.T) {
		m := newTestManager("ffffffffffffffff")
		m.TryConnect("dev-1", -50, true)
		m.OnConnected("dev-1", "char", 180)
		m.BindOutboundPeer("dev-1", "peer-x")

		uuid, ok := m.DisconnectByPeer("peer-x")
		if !ok || uuid != "dev-1" {
			t.Fatalf("esperado remover dev-1, obtido %q ok=%v", uuid, ok)
		}
	})

	t.Run("Timeout de conexão evict links presos em Connecting", func(t *testing.T) {
		m := newTestManager("ffffffffffffffff")
		fakeNow := time.Now()
		m.now = func() time.Time { return fakeNow }

		m.TryConnect("dev-1", -50, true)
		fakeNow = fakeNow.Add(11 * time.Second)

		evicted := m.CheckConnectTimeouts()
		if len(evicted) != 1 || evicted[0] != "dev-1" {
			t.Fatalf("esperado evict de dev-1, obtido %v", evicted)
		}
	})

	t.Run("EvictStale não remove links Connected ou Connecting", func(t *testing.T) {
		m := newTestManager("ffffffffffffffff")
		fakeNow := time.Now()
		m.now = func() time.Time { return fakeNow }

		m.TryConnect("dev-1", -50, true)
		m.OnConnected("dev-1", "char", 180)
		m.BindOutboundPeer("dev-1", "peer-connected")
		fakeNow = fakeNow.Add(3 * time.Second) // além do rate limit
		m.TryConnect("dev-2", -50, true)
		m.BindOutboundPeer("dev-2", "peer-connecting")

		fakeNow = fakeNow.Add(time.Hour)
		evicted := m.EvictStale(30 * time.Second)
		if len(evicted) != 0 {
			t.Fatalf("links Connected/Connecting não deveriam ser evicted, obtido %v", evicted)
		}
	})
}

func TestEffectiveWriteLength(t *testing.T) {
	t.Run("Cai para o tamanho padrão sem links conectados", func(t *testing.T) {
		m := newTestManager("ffffffffffffffff")
		if got := m.EffectiveWriteLength(150); got != 150 {
			t.Fatalf("esperado 150, obtido %d", got)
		}
	})

	t.Run("Usa o mínimo entre links conectados, limitado ao padrão", func(t *testing.T) {
		m := newTestManager("ffffffffffffffff")
		m.TryConnect("dev-1", -50, true)
		m.OnConnected("dev-1", "char", 300) // acima do padrão, deve ser limitado

		fakeNow := time.Now()
		m.now = func() time.Time { return fakeNow.Add(3 * time.Second) }
		m.TryConnect("dev-2", -50, true)
		m.OnConnected("dev-2", "char2", 100) // abaixo do padrão, deve prevalecer

		if got := m.EffectiveWriteLength(150); got != 100 {
			t.Fatalf("esperado 100, obtido %d", got)
		}
	})
}

func TestResponderRole(t *testing.T) {
	t.Run("Subscribe e Unsubscribe", func(t *testing.T) {
		m := newTestManager("ffffffffffffffff")
		m.Subscribe("central-1")

		subs := m.InboundSubscribers()
		if len(subs) != 1 || subs[0] != "central-1" {
			t.Fatalf("esperado [central-1], obtido %v", subs)
		}

		m.BindInboundPeer("central-1", "peer-y")
		peerID, hadPeer := m.Unsubscribe("central-1")
		if !hadPeer || peerID != "peer-y" {
			t.Fatalf("esperado peer-y vinculado, obtido %q hadPeer=%v", peerID, hadPeer)
		}
		if len(m.InboundSubscribers()) != 0 {
			t.Fatal("inbound link deveria ter sido removido")
		}
	})

	t.Run("Buffer de notificações pendentes descarta o mais antigo além da capacidade", func(t *testing.T) {
		m := newTestManager("ffffffffffffffff")
		m.EnqueuePending([]byte("1"), []string{"c1"})
		m.EnqueuePending([]byte("2"), []string{"c1"})
		m.EnqueuePending([]byte("3"), []string{"c1"})
		if dropped := m.EnqueuePending([]byte("4"), []string{"c1"}); !dropped {
			t.Fatal("quarta inserção deveria descartar a mais antiga (cap=3)")
		}

		drained := m.DrainPending()
		if len(drained) != 3 {
			t.Fatalf("esperado 3 pendentes, obtido %d", len(drained))
		}
		if string(drained[0].Data) != "2" {
			t.Fatalf("esperado que a notificação 1 tivesse sido descartada, primeira restante é %q", drained[0].Data)
		}
		if len(m.DrainPending()) != 0 {
			t.Fatal("buffer deveria estar vazio após o dreno")
		}
	})
}
