// Package features wires the task tracker, session bootstrap and state store
// into the TxSentinel session lifecycle:
//
//	Disconnected -> Connecting -> Connected -> Disconnected
//
// A session leaves Connected when its connection closes, when the user
// disconnects or reconnects, or when the composition is torn down.
package features

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"txsentinel-tui/notify"
	"txsentinel-tui/protocol"
	"txsentinel-tui/session"
	"txsentinel-tui/state"
	"txsentinel-tui/task"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	WarningNotice      = "TxSentinel Warning! Click to see details"
	DisconnectedNotice = "TxSentinel Disconnected! Click to reconnect"
)

var ErrNotConnected = errors.New("features: not connected")

// Lifecycle is the coarse session state shown to the user
type Lifecycle int

const (
	Disconnected Lifecycle = iota
	Connecting
	Connected
)

func (l Lifecycle) String() string {
	switch l {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// Starter opens a session; session.Bootstrap is the production Starter
type Starter interface {
	Start(ctx context.Context, h session.Handlers) (session.Session, error)
}

// Status is the tracker status of the connect operation
type Status = task.Status[struct{}, session.Session]

// Options are the collaborators of a Features. Every sink is optional.
type Options struct {
	Starter       Starter
	Notifications notify.Sink
	Toasts        notify.Toaster
	Focus         notify.Focus
	Logger        *log.Logger
}

// Features owns the connect tracker and the application state of the
// current session.
//
// Subscribers are called with internal locks held and must not block or call
// back into Features.
type Features struct {
	opts    Options
	logger  *log.Logger
	tracker *task.Tracker[struct{}, session.Session]
	store   *state.Store[state.AppState]

	// mu orders session transitions against state updates coming from
	// connection handlers
	mu       sync.Mutex
	torndown atomic.Bool
}

// New creates a disconnected composition
func New(opts Options) *Features {
	f := &Features{
		opts:   opts,
		logger: opts.Logger,
		store:  state.NewStore(state.Initial()),
	}
	if f.logger == nil {
		f.logger = log.New(io.Discard)
	}
	f.tracker = task.New(f.start,
		task.WithOnError(f.onError),
		task.WithRelease(f.release),
	)
	return f
}

// TrackerID identifies the tracker that owns the live connection
func (f *Features) TrackerID() uuid.UUID { return f.tracker.ID() }

// Status returns the connect tracker status
func (f *Features) Status() Status { return f.tracker.Status() }

// Lifecycle maps the tracker status onto the session state machine
func (f *Features) Lifecycle() Lifecycle {
	return lifecycleOf(f.tracker.Status())
}

func lifecycleOf(st Status) Lifecycle {
	switch st.Phase {
	case task.Running:
		return Connecting
	case task.Success:
		return Connected
	}
	return Disconnected
}

// State returns the current application state
func (f *Features) State() state.AppState { return f.store.Get() }

// Snapshot is everything a view needs to render the session
type Snapshot struct {
	Lifecycle Lifecycle
	Status    Status
	State     state.AppState
	// Wallet is the registered address while connected
	Wallet string
}

// Snapshot reads the session and its state together
func (f *Features) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.tracker.Status()
	snap := Snapshot{Lifecycle: lifecycleOf(st), Status: st, State: f.store.Get()}
	if st.Phase == task.Success {
		snap.Wallet = st.Output.Wallet.Hex()
	}
	return snap
}

// Subscribe calls fn after every session or state change
func (f *Features) Subscribe(fn func()) func() {
	offTracker := f.tracker.Subscribe(func(Status) { fn() })
	offStore := f.store.Subscribe(func(state.AppState) { fn() })
	return func() {
		offTracker()
		offStore()
	}
}

// Connect starts a new session. A session that is connecting or connected is
// superseded and its connection closed.
func (f *Features) Connect() {
	if f.torndown.Load() {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store.Set(state.Initial())
	f.tracker.Run(struct{}{})
}

// Disconnect ends the current session at the user's request
func (f *Features) Disconnect() {
	f.mu.Lock()
	f.tracker.Reset()
	f.store.Set(state.Initial())
	f.mu.Unlock()
	f.logger.Info("disconnected by user")
}

// Close tears the composition down. The live connection, if any, is closed
// exactly once and no notices are raised for it.
func (f *Features) Close() {
	if f.torndown.Swap(true) {
		return
	}
	f.mu.Lock()
	f.tracker.Reset()
	f.store.Set(state.Initial())
	f.mu.Unlock()
}

// Dispatch applies a local action to the state
func (f *Features) Dispatch(a state.Action) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store.Update(func(s state.AppState) state.AppState { return state.Reduce(s, a) })
}

// Ignore hides a warning locally
func (f *Features) Ignore(warningHash string) {
	f.Dispatch(state.IgnoreWarning{WarningHash: warningHash})
}

// AllowTx tells TxSentinel to let a flagged transaction through
func (f *Features) AllowTx(txHash string) error {
	return f.send(protocol.TxAllow{TxHash: txHash})
}

// AcceptWarning acknowledges a warning, cancelling its transaction
func (f *Features) AcceptWarning(warningHash string) error {
	return f.send(protocol.TxWarningAccept{WarningHash: warningHash})
}

// Session returns the live session
func (f *Features) Session() (session.Session, bool) {
	st := f.tracker.Status()
	if st.Phase != task.Success {
		return session.Session{}, false
	}
	return st.Output, true
}

func (f *Features) send(msg protocol.Outbound) error {
	sess, ok := f.Session()
	if !ok {
		return ErrNotConnected
	}
	if err := sess.Conn.Send(msg); err != nil {
		f.logger.Warn("send failed", "type", msg.Type(), "err", err)
		return err
	}
	f.logger.Info("sent", "type", msg.Type())
	return nil
}

// start is the tracked operation
func (f *Features) start(ctx context.Context, _ struct{}) (session.Session, error) {
	if f.opts.Starter == nil {
		return session.Session{}, errors.New("no session starter configured")
	}
	attempt, _ := task.AttemptFrom(ctx)
	f.logger.Info("connecting", "attempt", attempt)

	sess, err := f.opts.Starter.Start(ctx, session.Handlers{
		OnMessage: func(m protocol.ServerMessage) { f.handleMessage(attempt, m) },
		OnClose:   func(reason string) { f.handleClose(attempt, reason) },
	})
	if err != nil {
		return session.Session{}, err
	}
	f.logger.Info("connected", "wallet", sess.Wallet.Hex(), "session", sess.ID)
	return sess, nil
}

// liveLocked reports whether attempt is the tracker's current attempt and
// still connecting or connected
func (f *Features) liveLocked(attempt uint64) bool {
	st := f.tracker.Status()
	return st.Attempt == attempt && (st.Phase == task.Running || st.Phase == task.Success)
}

func (f *Features) handleMessage(attempt uint64, m protocol.ServerMessage) {
	f.mu.Lock()
	if !f.liveLocked(attempt) {
		f.mu.Unlock()
		f.logger.Debug("dropping message from stale session", "attempt", attempt, "type", m.MessageType())
		return
	}
	f.store.Update(func(s state.AppState) state.AppState {
		return state.Reduce(s, state.ServerMessage{Message: m})
	})
	f.mu.Unlock()

	switch msg := m.(type) {
	case protocol.Warning:
		f.logger.Warn("transaction warning", "tx", msg.TxHash, "warning", msg.WarningHash)
		f.showNotification(WarningNotice)
	case protocol.BalanceUpdate:
		f.logger.Debug("balance", "eth", msg.BalanceEth)
	case protocol.Unknown:
		f.logger.Debug("ignoring message", "type", msg.Tag)
	}
}

func (f *Features) handleClose(attempt uint64, reason string) {
	f.mu.Lock()
	if !f.liveLocked(attempt) {
		f.mu.Unlock()
		f.logger.Debug("stale session closed", "attempt", attempt, "reason", reason)
		return
	}
	f.tracker.Reset()
	f.store.Set(state.Initial())
	f.mu.Unlock()

	if f.torndown.Load() {
		return
	}
	f.logger.Error("connection lost", "reason", reason)
	f.toast(notify.LevelError, fmt.Sprintf("Connection with TxSentinel lost: %s", reason))
	if f.opts.Focus == nil || !f.opts.Focus.HasFocus() {
		f.showNotification(DisconnectedNotice)
	}
}

func (f *Features) onError(st Status) {
	f.logger.Error("connect failed", "attempt", st.Attempt, "err", st.Err)
	f.toast(notify.LevelError, fmt.Sprintf("Error: %v", st.Err))
}

// release closes connections that are no longer the tracker's current output
func (f *Features) release(st Status) {
	if st.Output.Conn != nil {
		f.logger.Debug("closing session", "session", st.Output.ID, "attempt", st.Attempt)
		st.Output.Conn.Close()
	}
}

func (f *Features) toast(level notify.Level, msg string) {
	if f.opts.Toasts != nil {
		f.opts.Toasts.Show(level, msg)
	}
}

func (f *Features) showNotification(msg string) {
	if f.opts.Notifications != nil {
		f.opts.Notifications.Show(notify.Notification{Message: msg})
	}
}
