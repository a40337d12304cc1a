package main

import (
	"context"
	"sync"
	"time"

	"txsentinel-tui/notify"
	"txsentinel-tui/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

// -------------------- SESSION BRIDGE --------------------
// Session callbacks fire on connection goroutines and must not stall, so they
// are turned into tea messages through buffered channels read by wait
// commands.

// errorWait bounds how long an error toast waits for a full queue
const errorWait = 2 * time.Second

type bridge struct {
	changed chan struct{}
	events  chan tea.Msg
	logger  *log.Logger
}

func newBridge(logger *log.Logger) *bridge {
	return &bridge{
		changed: make(chan struct{}, 1),
		events:  make(chan tea.Msg, 32),
		logger:  logger,
	}
}

// touch coalesces change signals into at most one pending message
func (b *bridge) touch() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

func (b *bridge) post(msg tea.Msg) {
	select {
	case b.events <- msg:
	default:
		b.logger.Warn("ui event dropped", "msg", msg)
	}
}

// postWait waits up to errorWait for room in the queue
func (b *bridge) postWait(msg tea.Msg) {
	t := time.NewTimer(errorWait)
	defer t.Stop()
	select {
	case b.events <- msg:
	case <-t.C:
		b.logger.Error("ui event dropped", "msg", msg)
	}
}

// Show implements notify.Toaster. Errors are never dropped while the UI is
// draining the queue.
func (b *bridge) Show(level notify.Level, message string) {
	msg := toastMsg{level: level, message: message}
	if level == notify.LevelError {
		b.postWait(msg)
		return
	}
	b.post(msg)
}

// desktopBridge implements notify.Sink
type desktopBridge struct{ b *bridge }

func (d desktopBridge) Show(n notify.Notification) {
	d.b.post(desktopNoticeMsg{n: n})
}

func waitForChange(b *bridge) tea.Cmd {
	return func() tea.Msg {
		<-b.changed
		return sessionChangedMsg{}
	}
}

func waitForEvent(b *bridge) tea.Cmd {
	return func() tea.Msg {
		return <-b.events
	}
}

func waitForPermission(p *notify.Prompter) tea.Cmd {
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		return permissionRequestMsg{req: <-p.Requests()}
	}
}

// -------------------- STARTER --------------------

// switchableStarter starts sessions with whatever bootstrap the user picked
// last; server and wallet changes apply to the next connect
type switchableStarter struct {
	mu sync.Mutex
	b  session.Bootstrap
}

func (s *switchableStarter) Set(b session.Bootstrap) {
	s.mu.Lock()
	s.b = b
	s.mu.Unlock()
}

func (s *switchableStarter) Start(ctx context.Context, h session.Handlers) (session.Session, error) {
	s.mu.Lock()
	b := s.b
	s.mu.Unlock()
	return b.Start(ctx, h)
}
