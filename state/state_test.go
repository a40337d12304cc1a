package state

import (
	"reflect"
	"sync"
	"testing"

	"txsentinel-tui/protocol"
)

func warning(hash, tx string) ServerMessage {
	return ServerMessage{Message: protocol.Warning{WarningHash: hash, TxHash: tx}}
}

func fold(s AppState, actions ...Action) AppState {
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func TestInitial(t *testing.T) {
	s := Initial()
	if len(s.Warnings) != 0 {
		t.Errorf("expected no warnings, got %d", len(s.Warnings))
	}
	if s.BalanceEth.IsSome() {
		t.Error("balance must be absent before the first report")
	}
}

func TestReduceWarnings(t *testing.T) {
	t.Run("two warnings on one tx", func(t *testing.T) {
		s := fold(Initial(), warning("w1", "t1"), warning("w2", "t1"))
		if len(s.Warnings) != 2 {
			t.Fatalf("expected 2 warnings, got %d", len(s.Warnings))
		}
		for _, w := range s.Warnings {
			if w.TxHash != "t1" {
				t.Errorf("unexpected tx %q", w.TxHash)
			}
		}
		groups := GroupByTx(s.Warnings)
		if len(groups) != 1 || len(groups[0].Warnings) != 2 {
			t.Errorf("expected one group of 2, got %+v", groups)
		}
	})

	t.Run("duplicate hash last write wins", func(t *testing.T) {
		first := ServerMessage{Message: protocol.Warning{WarningHash: "w1", TxHash: "t1", Severity: "low"}}
		second := ServerMessage{Message: protocol.Warning{WarningHash: "w1", TxHash: "t1", Severity: "high"}}
		s := fold(Initial(), first, warning("w2", "t2"), second)

		if len(s.Warnings) != 2 {
			t.Fatalf("expected one entry per hash, got %d", len(s.Warnings))
		}
		if s.Warnings[0].WarningHash != "w1" || s.Warnings[0].Severity != "high" {
			t.Errorf("expected w1 replaced in place, got %+v", s.Warnings[0])
		}
	})

	t.Run("ignore removes", func(t *testing.T) {
		s := fold(Initial(), warning("w1", "t1"), IgnoreWarning{WarningHash: "w1"})
		if len(s.Warnings) != 0 {
			t.Errorf("expected empty warnings, got %+v", s.Warnings)
		}
	})

	t.Run("ignore is idempotent", func(t *testing.T) {
		base := fold(Initial(), warning("w1", "t1"), warning("w2", "t1"))
		once := Reduce(base, IgnoreWarning{WarningHash: "w1"})
		twice := Reduce(once, IgnoreWarning{WarningHash: "w1"})
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("second ignore changed state: %+v vs %+v", once, twice)
		}
	})

	t.Run("ignore unknown hash is a no-op", func(t *testing.T) {
		base := fold(Initial(), warning("w1", "t1"))
		got := Reduce(base, IgnoreWarning{WarningHash: "nope"})
		if !reflect.DeepEqual(base, got) {
			t.Errorf("state changed: %+v", got)
		}
	})
}

func TestReduceBalance(t *testing.T) {
	s := fold(Initial(),
		ServerMessage{Message: protocol.BalanceUpdate{BalanceEth: 1.5}},
		ServerMessage{Message: protocol.BalanceUpdate{BalanceEth: 0.25}},
	)
	v, ok := s.BalanceEth.Get()
	if !ok || v != 0.25 {
		t.Errorf("expected latest balance 0.25, got %v (present=%v)", v, ok)
	}
}

func TestReduceUnknownMessage(t *testing.T) {
	base := fold(Initial(), warning("w1", "t1"))
	got := Reduce(base, ServerMessage{Message: protocol.Unknown{Tag: "Pong"}})
	if !reflect.DeepEqual(base, got) {
		t.Errorf("unknown message mutated state: %+v", got)
	}
}

func TestReducePure(t *testing.T) {
	base := fold(Initial(), warning("w1", "t1"), warning("w2", "t2"))
	snapshot := append([]protocol.Warning(nil), base.Warnings...)

	actions := []Action{
		warning("w1", "t9"),
		warning("w3", "t3"),
		IgnoreWarning{WarningHash: "w2"},
		ServerMessage{Message: protocol.BalanceUpdate{BalanceEth: 3}},
	}
	for _, a := range actions {
		first := Reduce(base, a)
		second := Reduce(base, a)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Reduce not deterministic for %T", a)
		}
		if !reflect.DeepEqual(base.Warnings, snapshot) {
			t.Fatalf("Reduce mutated its input on %T", a)
		}
	}
}

func TestGroupByTxOrder(t *testing.T) {
	ws := fold(Initial(), warning("w1", "tB"), warning("w2", "tA"), warning("w3", "tB")).Warnings
	groups := GroupByTx(ws)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].TxHash != "tB" || groups[1].TxHash != "tA" {
		t.Errorf("groups not in first-appearance order: %+v", groups)
	}
	if len(groups[0].Warnings) != 2 {
		t.Errorf("expected 2 warnings for tB, got %d", len(groups[0].Warnings))
	}
}

func TestStore(t *testing.T) {
	store := NewStore(Initial())

	var mu sync.Mutex
	var seen []int
	unsubscribe := store.Subscribe(func(s AppState) {
		mu.Lock()
		seen = append(seen, len(s.Warnings))
		mu.Unlock()
	})

	store.Update(func(s AppState) AppState { return Reduce(s, warning("w1", "t1")) })
	store.Update(func(s AppState) AppState { return Reduce(s, warning("w2", "t1")) })
	unsubscribe()
	store.Set(Initial())

	if got := len(store.Get().Warnings); got != 0 {
		t.Errorf("expected reset store, got %d warnings", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(seen, []int{1, 2}) {
		t.Errorf("unexpected notifications %v", seen)
	}
}
