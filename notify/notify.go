package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// Permission is the outcome of a desktop notification permission request
type Permission string

const (
	Granted Permission = "granted"
	Denied  Permission = "denied"
	Default Permission = "default"
)

// ParsePermission maps a config value to a Permission; anything unknown
// means "ask the user"
func ParsePermission(s string) Permission {
	switch Permission(strings.ToLower(strings.TrimSpace(s))) {
	case Granted:
		return Granted
	case Denied:
		return Denied
	}
	return Default
}

// Permissions answers desktop notification permission requests
type Permissions interface {
	RequestPermission(ctx context.Context) (Permission, error)
}

// Notification is a desktop notification
type Notification struct {
	Message string
}

// Sink displays desktop notifications
type Sink interface {
	Show(n Notification)
}

// Level is the severity of a user facing notice
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Toaster shows transient in-app notices
type Toaster interface {
	Show(level Level, message string)
}

// Focus reports whether the user is looking at the application
type Focus interface {
	HasFocus() bool
}

// -------------------- PERMISSIONS --------------------

// Static always answers with the same permission
type Static Permission

func (s Static) RequestPermission(ctx context.Context) (Permission, error) {
	return Permission(s), nil
}

// Request is a pending permission question for the user
type Request struct {
	reply chan Permission
}

// Answer resolves the request. Only the first answer counts.
func (r Request) Answer(p Permission) {
	select {
	case r.reply <- p:
	default:
	}
}

// Prompter asks the user through whatever UI reads Requests. Like a browser
// it remembers a granted or denied answer for the rest of the process.
type Prompter struct {
	requests chan Request

	mu      sync.Mutex
	decided Permission
}

func NewPrompter() *Prompter {
	return &Prompter{requests: make(chan Request)}
}

// Requests delivers questions to the UI
func (p *Prompter) Requests() <-chan Request { return p.requests }

func (p *Prompter) RequestPermission(ctx context.Context) (Permission, error) {
	p.mu.Lock()
	decided := p.decided
	p.mu.Unlock()
	if decided == Granted || decided == Denied {
		return decided, nil
	}

	req := Request{reply: make(chan Permission, 1)}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return Default, ctx.Err()
	}

	select {
	case answer := <-req.reply:
		if answer == Granted || answer == Denied {
			p.mu.Lock()
			p.decided = answer
			p.mu.Unlock()
		}
		return answer, nil
	case <-ctx.Done():
		return Default, ctx.Err()
	}
}

// -------------------- SINKS --------------------

// TerminalSink raises desktop notifications with the OSC 777 escape
// sequence understood by most modern terminal emulators
type TerminalSink struct {
	W     io.Writer
	Title string

	mu sync.Mutex
}

func (s *TerminalSink) Show(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	title := s.Title
	if title == "" {
		title = "TxSentinel"
	}
	fmt.Fprintf(s.W, "\x1b]777;notify;%s;%s\x1b\\", sanitize(title), sanitize(n.Message))
}

// sanitize strips characters that would terminate the escape sequence
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ';' || r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}

// FocusTracker is a Focus updated by the UI from focus/blur events
type FocusTracker struct {
	blurred atomic.Bool
}

func (f *FocusTracker) HasFocus() bool { return !f.blurred.Load() }

// Set records the current focus state
func (f *FocusTracker) Set(focused bool) { f.blurred.Store(!focused) }
