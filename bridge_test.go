package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"txsentinel-tui/config"
	"txsentinel-tui/identity"
	"txsentinel-tui/notify"
	"txsentinel-tui/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

func TestBridgeCoalescesChanges(t *testing.T) {
	b := newBridge(log.New(io.Discard))
	for i := 0; i < 10; i++ {
		b.touch()
	}
	if n := len(b.changed); n != 1 {
		t.Fatalf("expected 1 pending change, got %d", n)
	}

	msg := waitForChange(b)()
	if _, ok := msg.(sessionChangedMsg); !ok {
		t.Fatalf("expected sessionChangedMsg, got %T", msg)
	}
	if n := len(b.changed); n != 0 {
		t.Errorf("expected no pending change, got %d", n)
	}
}

func TestBridgeDropsWhenFull(t *testing.T) {
	b := newBridge(log.New(io.Discard))
	for i := 0; i < cap(b.events)+5; i++ {
		b.Show(notify.LevelInfo, "hello")
	}
	if n := len(b.events); n != cap(b.events) {
		t.Errorf("expected full buffer of %d, got %d", cap(b.events), n)
	}

	desktopBridge{b}.Show(notify.Notification{Message: "dropped"})
	msg := waitForEvent(b)()
	toast, ok := msg.(toastMsg)
	if !ok || toast.message != "hello" {
		t.Errorf("unexpected first event %#v", msg)
	}
}

func TestBridgeKeepsErrorsWhenFull(t *testing.T) {
	b := newBridge(log.New(io.Discard))
	for i := 0; i < cap(b.events); i++ {
		desktopBridge{b}.Show(notify.Notification{Message: "TxSentinel Warning!"})
	}

	done := make(chan struct{})
	go func() {
		b.Show(notify.LevelError, "Connection with TxSentinel lost: Connection error")
		close(done)
	}()

	// the UI drains the queue
	var got []tea.Msg
	for i := 0; i < cap(b.events)+1; i++ {
		got = append(got, waitForEvent(b)())
	}
	<-done

	toast, ok := got[len(got)-1].(toastMsg)
	if !ok || toast.level != notify.LevelError {
		t.Fatalf("error toast lost, last event %#v", got[len(got)-1])
	}
}

func TestSwitchableStarterUsesLatestBootstrap(t *testing.T) {
	s := &switchableStarter{}

	// no identity fails before any dial
	_, err := s.Start(context.Background(), session.Handlers{})
	var idErr *session.IdentityError
	if !errors.As(err, &idErr) {
		t.Fatalf("expected IdentityError, got %v", err)
	}

	wallets := func() []config.WalletEntry {
		return []config.WalletEntry{{Address: "0x00000000000000000000000000000000000000aa", Active: true}}
	}
	s.Set(session.Bootstrap{
		Identity:    identity.ConfigProvider{Wallets: wallets},
		Permissions: notify.Static(notify.Denied),
	})
	_, err = s.Start(context.Background(), session.Handlers{})
	var permErr *session.PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
}
