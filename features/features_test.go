package features

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"txsentinel-tui/identity"
	"txsentinel-tui/mockserver"
	"txsentinel-tui/notify"
	"txsentinel-tui/protocol"
	"txsentinel-tui/session"
	"txsentinel-tui/state"
	"txsentinel-tui/task"

	"github.com/gorilla/websocket"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

// notices records toasts and desktop notifications
type notices struct {
	mu     sync.Mutex
	toasts []string
	popups []string
}

func (n *notices) Show(level notify.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, string(level)+": "+message)
}

type popupSink struct{ n *notices }

func (s popupSink) Show(p notify.Notification) {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	s.n.popups = append(s.n.popups, p.Message)
}

func (n *notices) snapshot() ([]string, []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.toasts...), append([]string(nil), n.popups...)
}

type harness struct {
	mock    *mockserver.Server
	f       *Features
	notices *notices
	focus   *notify.FocusTracker
}

func newHarness(t *testing.T, perm notify.Permission) *harness {
	t.Helper()
	mock := mockserver.New(nil)
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)

	h := &harness{mock: mock, notices: &notices{}, focus: &notify.FocusTracker{}}
	h.f = New(Options{
		Starter: session.Bootstrap{
			Identity:    identity.KeyProvider{HexKey: testKey},
			Permissions: notify.Static(perm),
			URL:         "ws" + strings.TrimPrefix(srv.URL, "http") + "/wallet/",
		},
		Notifications: popupSink{h.notices},
		Toasts:        h.notices,
		Focus:         h.focus,
	})
	t.Cleanup(h.f.Close)
	return h
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	h.f.Connect()
	eventually(t, "connected", func() bool { return h.f.Lifecycle() == Connected })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.mock.WaitClients(ctx, 1); err != nil {
		t.Fatal(err)
	}
}

func TestConnectAndReceive(t *testing.T) {
	h := newHarness(t, notify.Granted)

	if got := h.f.Lifecycle(); got != Disconnected {
		t.Fatalf("expected disconnected, got %s", got)
	}
	h.connect(t)

	h.mock.SendBalance(1.5)
	eventually(t, "balance", func() bool { return h.f.State().BalanceEth.IsSome() })
	if b, _ := h.f.State().BalanceEth.Get(); b != 1.5 {
		t.Errorf("expected balance 1.5, got %v", b)
	}

	h.mock.SendWarning(mockserver.Warning{WarningHash: "w1", TxHash: "t1"})
	eventually(t, "warning", func() bool { return len(h.f.State().Warnings) == 1 })
	eventually(t, "notification", func() bool {
		_, popups := h.notices.snapshot()
		return len(popups) > 0
	})

	_, popups := h.notices.snapshot()
	if len(popups) != 1 || popups[0] != WarningNotice {
		t.Errorf("unexpected notifications %v", popups)
	}
}

func TestActionsReachServer(t *testing.T) {
	h := newHarness(t, notify.Granted)

	if err := h.f.AllowTx("t1"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	h.connect(t)

	if err := h.f.AllowTx("t1"); err != nil {
		t.Fatalf("AllowTx failed: %v", err)
	}
	if err := h.f.AcceptWarning("w1"); err != nil {
		t.Fatalf("AcceptWarning failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := h.mock.Wait(ctx, func(m mockserver.ClientMessage) bool {
		return m.Type == "TxWarningAccept" && m.WarningHash == "w1"
	}); err != nil {
		t.Fatalf("TxWarningAccept not received: %v", err)
	}
	if _, err := h.mock.Wait(ctx, func(m mockserver.ClientMessage) bool {
		return m.Type == "TxAllow" && m.TxHash == "t1"
	}); err != nil {
		t.Fatalf("TxAllow not received: %v", err)
	}
}

func TestIgnoreWarning(t *testing.T) {
	h := newHarness(t, notify.Granted)
	h.connect(t)

	h.mock.SendWarning(mockserver.Warning{WarningHash: "w1", TxHash: "t1"})
	h.mock.SendWarning(mockserver.Warning{WarningHash: "w2", TxHash: "t1"})
	eventually(t, "warnings", func() bool { return len(h.f.State().Warnings) == 2 })

	h.f.Ignore("w1")
	ws := h.f.State().Warnings
	if len(ws) != 1 || ws[0].WarningHash != "w2" {
		t.Errorf("unexpected warnings after ignore: %+v", ws)
	}
}

func TestDisconnectResetsState(t *testing.T) {
	h := newHarness(t, notify.Granted)
	h.connect(t)

	h.mock.SendWarning(mockserver.Warning{WarningHash: "w1", TxHash: "t1"})
	eventually(t, "warning", func() bool { return len(h.f.State().Warnings) == 1 })

	h.f.Disconnect()
	if got := h.f.Lifecycle(); got != Disconnected {
		t.Fatalf("expected disconnected, got %s", got)
	}
	if s := h.f.State(); len(s.Warnings) != 0 || s.BalanceEth.IsSome() {
		t.Errorf("state not reset: %+v", s)
	}
	eventually(t, "server side close", func() bool { return h.mock.Clients() == 0 })

	time.Sleep(20 * time.Millisecond)
	toasts, _ := h.notices.snapshot()
	if len(toasts) != 0 {
		t.Errorf("user disconnect raised notices: %v", toasts)
	}
}

func TestConnectionLost(t *testing.T) {
	closeFrame := func(s *mockserver.Server) { s.CloseAll(websocket.CloseGoingAway, "maintenance") }
	tests := []struct {
		name    string
		focused bool
		close   func(*mockserver.Server)
		toast   string
		popups  []string
	}{
		{"focused", true, closeFrame, "error: Connection with TxSentinel lost: maintenance", nil},
		{"in background", false, closeFrame, "error: Connection with TxSentinel lost: maintenance", []string{DisconnectedNotice}},
		{"dropped socket", true, (*mockserver.Server).DropAll, "error: Connection with TxSentinel lost: " + session.DefaultCloseReason, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, notify.Granted)
			h.focus.Set(tt.focused)
			h.connect(t)

			h.mock.SendWarning(mockserver.Warning{WarningHash: "w1", TxHash: "t1"})
			eventually(t, "warning", func() bool { return len(h.f.State().Warnings) == 1 })

			tt.close(h.mock)
			eventually(t, "disconnected", func() bool { return h.f.Lifecycle() == Disconnected })

			if n := len(h.f.State().Warnings); n != 0 {
				t.Errorf("expected warnings cleared, got %d", n)
			}

			// the warning popup is not part of the check
			lostNotices := func() ([]string, []string) {
				toasts, popups := h.notices.snapshot()
				var got []string
				for _, p := range popups {
					if p != WarningNotice {
						got = append(got, p)
					}
				}
				return toasts, got
			}
			eventually(t, "notices", func() bool {
				toasts, got := lostNotices()
				return len(toasts) >= 1 && len(got) >= len(tt.popups)
			})
			time.Sleep(20 * time.Millisecond)

			toasts, got := lostNotices()
			if len(toasts) != 1 || toasts[0] != tt.toast {
				t.Errorf("unexpected toasts %v", toasts)
			}
			if len(got) != len(tt.popups) {
				t.Fatalf("expected notifications %v, got %v", tt.popups, got)
			}
			for i := range got {
				if got[i] != tt.popups[i] {
					t.Errorf("notification %d: expected %q, got %q", i, tt.popups[i], got[i])
				}
			}
		})
	}
}

func TestPermissionDenied(t *testing.T) {
	h := newHarness(t, notify.Denied)

	h.f.Connect()
	eventually(t, "error", func() bool { return h.f.Status().Phase == task.Error })

	st := h.f.Status()
	if st.Err == nil || st.Err.Error() != "Notifications permission denied" {
		t.Errorf("unexpected error %v", st.Err)
	}
	if got := h.f.Lifecycle(); got != Disconnected {
		t.Errorf("expected disconnected, got %s", got)
	}
	eventually(t, "error toast", func() bool {
		toasts, _ := h.notices.snapshot()
		return len(toasts) == 1
	})
	toasts, _ := h.notices.snapshot()
	if toasts[0] != "error: Error: Notifications permission denied" {
		t.Errorf("unexpected toast %q", toasts[0])
	}
	if n := h.mock.Clients(); n != 0 {
		t.Errorf("denied session opened %d connections", n)
	}
}

func TestReconnectClosesPrevious(t *testing.T) {
	h := newHarness(t, notify.Granted)
	h.connect(t)
	first, _ := h.f.Session()

	h.f.Connect()
	eventually(t, "reconnected", func() bool {
		s, ok := h.f.Session()
		return ok && s.ID != first.ID
	})
	select {
	case <-first.Conn.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("previous connection still open")
	}
	eventually(t, "single client", func() bool { return h.mock.Clients() == 1 })

	time.Sleep(20 * time.Millisecond)
	if got := h.f.Lifecycle(); got != Connected {
		t.Errorf("stale close affected the new session: %s", got)
	}
	toasts, _ := h.notices.snapshot()
	if len(toasts) != 0 {
		t.Errorf("stale close raised notices: %v", toasts)
	}
}

func TestCloseTearsDown(t *testing.T) {
	h := newHarness(t, notify.Granted)
	h.focus.Set(false)
	h.connect(t)
	sess, _ := h.f.Session()

	h.f.Close()
	h.f.Close()

	select {
	case <-sess.Conn.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("connection not closed on teardown")
	}
	eventually(t, "server side close", func() bool { return h.mock.Clients() == 0 })

	h.f.Connect()
	time.Sleep(20 * time.Millisecond)
	if got := h.f.Lifecycle(); got != Disconnected {
		t.Errorf("connect after teardown: %s", got)
	}
	toasts, popups := h.notices.snapshot()
	if len(toasts) != 0 || len(popups) != 0 {
		t.Errorf("teardown raised notices: %v %v", toasts, popups)
	}
}

// scriptedStarter hands out sessions without a network and keeps the
// handlers of every attempt
type scriptedStarter struct {
	mu       sync.Mutex
	handlers []session.Handlers
}

func (s *scriptedStarter) Start(ctx context.Context, h session.Handlers) (session.Session, error) {
	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	s.mu.Unlock()
	return session.Session{}, nil
}

func (s *scriptedStarter) attempt(i int) session.Handlers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[i]
}

func TestStaleHandlersIgnored(t *testing.T) {
	starter := &scriptedStarter{}
	n := &notices{}
	f := New(Options{Starter: starter, Toasts: n, Notifications: popupSink{n}})
	defer f.Close()

	f.Connect()
	eventually(t, "first session", func() bool { return f.Lifecycle() == Connected })
	f.Connect()
	eventually(t, "second session", func() bool {
		starter.mu.Lock()
		defer starter.mu.Unlock()
		return len(starter.handlers) == 2 && f.Lifecycle() == Connected
	})

	old, cur := starter.attempt(0), starter.attempt(1)
	old.OnMessage(protocol.Warning{WarningHash: "stale", TxHash: "t0"})
	old.OnClose("Connection closed by client")

	if got := f.Lifecycle(); got != Connected {
		t.Fatalf("stale close ended the session: %s", got)
	}
	if n := len(f.State().Warnings); n != 0 {
		t.Fatalf("stale message merged: %d warnings", n)
	}

	cur.OnMessage(protocol.Warning{WarningHash: "w1", TxHash: "t1"})
	if ws := f.State().Warnings; len(ws) != 1 || ws[0].WarningHash != "w1" {
		t.Errorf("unexpected warnings %+v", ws)
	}

	cur.OnClose("Connection error")
	if got := f.Lifecycle(); got != Disconnected {
		t.Errorf("expected disconnected, got %s", got)
	}
	if s := f.State(); len(s.Warnings) != 0 {
		t.Errorf("state not reset on close: %+v", s)
	}
	toasts, _ := n.snapshot()
	if len(toasts) != 1 || toasts[0] != "error: Connection with TxSentinel lost: Connection error" {
		t.Errorf("unexpected toasts %v", toasts)
	}

	// a close arriving after the reset belongs to nobody
	cur.OnClose("Connection error")
	if toasts, _ := n.snapshot(); len(toasts) != 1 {
		t.Errorf("duplicate close raised notices: %v", toasts)
	}
}

func TestSubscribe(t *testing.T) {
	starter := &scriptedStarter{}
	f := New(Options{Starter: starter})
	defer f.Close()

	var mu sync.Mutex
	calls := 0
	off := f.Subscribe(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	f.Connect()
	eventually(t, "connected", func() bool { return f.Lifecycle() == Connected })
	f.Dispatch(state.ServerMessage{Message: protocol.BalanceUpdate{BalanceEth: 3}})
	eventually(t, "notifications", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 4
	})

	off()
	mu.Lock()
	before := calls
	mu.Unlock()
	f.Disconnect()
	mu.Lock()
	defer mu.Unlock()
	if calls != before {
		t.Errorf("unsubscribed callback still called")
	}
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t, notify.Granted)

	snap := h.f.Snapshot()
	if snap.Lifecycle != Disconnected || snap.Wallet != "" {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}

	h.connect(t)
	h.mock.SendBalance(0.25)
	eventually(t, "balance", func() bool { return h.f.Snapshot().State.BalanceEth.IsSome() })

	snap = h.f.Snapshot()
	if snap.Lifecycle != Connected || snap.Status.Phase != task.Success {
		t.Errorf("unexpected lifecycle %s / %s", snap.Lifecycle, snap.Status.Phase)
	}
	sess, _ := h.f.Session()
	if snap.Wallet != sess.Wallet.Hex() || snap.Wallet == "" {
		t.Errorf("snapshot wallet %q, session wallet %q", snap.Wallet, sess.Wallet.Hex())
	}
}
