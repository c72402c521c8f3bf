package scanner

import (
	"testing"
	"time"

	"github.com/permissionlesstech/bitchat-mesh/internal/config"
)

func testCycles() config.ScanDutyCycles {
	return config.DefaultConfig().ScanDutyCycles
}

func TestScannerStateMachine(t *testing.T) {
	t.Run("Começa Aggressive sem conexões", func(t *testing.T) {
		s := New(testCycles())
		if s.State() != Aggressive {
			t.Fatalf("esperado Aggressive, obtido %v", s.State())
		}
	})

	t.Run("Cenário S6 do espectro", func(t *testing.T) {
		s := New(testCycles())
		fakeNow := time.Now()
		s.now = func() time.Time { return fakeNow }

		// uma conexão, sem tráfego: T=0, P=1 -> Sparse
		if changed := s.Recompute(1); !changed {
			t.Fatal("mudar para Cycled deveria ser reportado como mudança")
		}
		if s.State() != Cycled || s.Mode() != Sparse {
			t.Fatalf("esperado Cycled(Sparse), obtido %v(%v)", s.State(), s.Mode())
		}

		// rajada de 15 pacotes em 10s com P=1 -> Dense
		for i := 0; i < 15; i++ {
			s.OnPacketReceived(1)
		}
		if s.Mode() != Dense {
			t.Fatalf("esperado Dense após rajada, obtido %v", s.Mode())
		}

		// 30s ocioso -> tráfego expira -> Sparse novamente
		fakeNow = fakeNow.Add(30 * time.Second)
		if changed := s.Recompute(1); !changed {
			t.Fatal("retorno a Sparse deveria ser reportado como mudança")
		}
		if s.Mode() != Sparse {
			t.Fatalf("esperado Sparse após ociosidade, obtido %v", s.Mode())
		}
	})

	t.Run("Mais de 5 conexões força Dense mesmo sem tráfego", func(t *testing.T) {
		s := New(testCycles())
		s.Recompute(6)
		if s.Mode() != Dense {
			t.Fatalf("esperado Dense com P=6, obtido %v", s.Mode())
		}
	})

	t.Run("Volta a Aggressive quando conexões caem a zero", func(t *testing.T) {
		s := New(testCycles())
		s.Recompute(1)
		if s.State() != Cycled {
			t.Fatal("deveria estar Cycled com uma conexão")
		}
		s.Recompute(0)
		if s.State() != Aggressive {
			t.Fatal("deveria voltar a Aggressive sem conexões")
		}
	})

	t.Run("Override de pressão de bateria força Sparse", func(t *testing.T) {
		s := New(testCycles())
		s.SetPressureOverride(func() bool { return true })
		for i := 0; i < 15; i++ {
			s.OnPacketReceived(1)
		}
		if s.Mode() != Sparse {
			t.Fatalf("esperado Sparse sob pressão, obtido %v", s.Mode())
		}
	})

	t.Run("Generation incrementa apenas em mudança real", func(t *testing.T) {
		s := New(testCycles())
		g0 := s.Generation()
		s.Recompute(0) // já está Aggressive, sem mudança
		if s.Generation() != g0 {
			t.Fatal("generation não deveria mudar sem transição de estado")
		}
		s.Recompute(1)
		if s.Generation() == g0 {
			t.Fatal("generation deveria incrementar na transição para Cycled")
		}
	})
}
