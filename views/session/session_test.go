package session

import (
	"strings"
	"testing"

	"txsentinel-tui/features"
	"txsentinel-tui/protocol"
	"txsentinel-tui/state"

	"github.com/charmbracelet/x/ansi"
)

func TestHeader(t *testing.T) {
	t.Run("with balance", func(t *testing.T) {
		out := ansi.Strip(Header(120, state.Some(0.5), "0x1234...5678", features.Connected, "Local"))
		if !strings.Contains(out, "0.5000000000") {
			t.Errorf("balance missing from header: %q", out)
		}
		if !strings.Contains(out, "● Local") {
			t.Errorf("server missing from header: %q", out)
		}
	})

	t.Run("without balance", func(t *testing.T) {
		out := ansi.Strip(Header(120, state.None[float64](), "", features.Disconnected, "Local"))
		if strings.Contains(out, "balance") {
			t.Errorf("unexpected balance in header: %q", out)
		}
		if !strings.Contains(out, "Disconnected") {
			t.Errorf("expected disconnected status: %q", out)
		}
	})

	t.Run("narrow terminal stacks", func(t *testing.T) {
		out := Header(20, state.Some(1.0), "0x1234...5678", features.Connecting, "Local")
		if n := strings.Count(out, "\n"); n != 2 {
			t.Errorf("expected 3 stacked lines, got %d", n+1)
		}
	})
}

func TestInitial(t *testing.T) {
	out := ansi.Strip(Initial(false, "", "Server rejected the wallet"))
	if !strings.Contains(out, "Server rejected the wallet") {
		t.Errorf("error not shown: %q", out)
	}

	out = ansi.Strip(Initial(true, "|", "Server rejected the wallet"))
	if strings.Contains(out, "rejected") {
		t.Errorf("error shown while connecting: %q", out)
	}
	if !strings.Contains(out, "Connecting") {
		t.Errorf("expected connecting indicator: %q", out)
	}
}

func TestWarnings(t *testing.T) {
	groups := state.GroupByTx([]protocol.Warning{
		{WarningHash: "0xw1", TxHash: "0xt1", Severity: "critical", Description: "Drainer"},
		{WarningHash: "0xw2", TxHash: "0xt1", Description: "Unknown contract"},
		{WarningHash: "0xw3", TxHash: "0xt2"},
	})

	out := ansi.Strip(Warnings(100, groups, "0xw2", ""))
	for _, want := range []string{"2 pending", "CRITICAL", "Drainer", "Unknown contract", "Suspicious transaction"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	if strings.Count(out, "▶") != 1 {
		t.Errorf("expected exactly one selected warning")
	}
}

func TestNav(t *testing.T) {
	tests := []struct {
		name        string
		lifecycle   features.Lifecycle
		hasWarnings bool
		want        []string
		notWant     []string
	}{
		{"disconnected", features.Disconnected, false, []string{"connect"}, []string{"disconnect", "send tx"}},
		{"connecting", features.Connecting, false, []string{"abort"}, []string{"reconnect"}},
		{"connected", features.Connected, false, []string{"reconnect", "disconnect"}, []string{"send tx"}},
		{"connected with warnings", features.Connected, true, []string{"send tx", "cancel tx", "ignore"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ansi.Strip(Nav(200, tt.lifecycle, tt.hasWarnings))
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("missing %q in %q", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("unexpected %q in %q", w, out)
				}
			}
		})
	}
}
