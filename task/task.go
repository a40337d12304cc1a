package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Phase is the discriminant of a Status
type Phase int

const (
	Idle Phase = iota
	Running
	Success
	Error
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Success:
		return "success"
	case Error:
		return "error"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Status is a snapshot of a tracker.
// Input is set for Running, Success and Error, Output only for Success and
// Err only for Error. Attempt identifies the invocation (or reset) that
// produced the snapshot.
type Status[In, Out any] struct {
	Phase   Phase
	Attempt uint64
	Input   In
	Output  Out
	Err     error
}

// Operation is the asynchronous work wrapped by a Tracker.
// ctx is cancelled when the attempt is superseded or reset.
type Operation[In, Out any] func(ctx context.Context, in In) (Out, error)

type attemptKey struct{}

// AttemptFrom returns the attempt number an Operation is running as
func AttemptFrom(ctx context.Context) (uint64, bool) {
	n, ok := ctx.Value(attemptKey{}).(uint64)
	return n, ok
}

// Option configures a Tracker
type Option[In, Out any] func(*Tracker[In, Out])

// WithOnError registers an observer called on every transition into Error
func WithOnError[In, Out any](fn func(Status[In, Out])) Option[In, Out] {
	return func(t *Tracker[In, Out]) { t.onError = fn }
}

// WithRelease registers a hook called once for every successful output that
// stops being current: a Success left through Run or Reset, or a successful
// result produced by an attempt that was superseded before it finished.
func WithRelease[In, Out any](fn func(Status[In, Out])) Option[In, Out] {
	return func(t *Tracker[In, Out]) { t.release = fn }
}

// Tracker exposes the lifecycle of exactly one in-flight operation.
//
// Calling Run while Running supersedes the current attempt: its context is
// cancelled and whatever it eventually returns is dropped. Reset does the same
// and moves back to Idle. Callbacks run outside the tracker lock, so they may
// call back into the tracker.
type Tracker[In, Out any] struct {
	id uuid.UUID
	op Operation[In, Out]

	onError func(Status[In, Out])
	release func(Status[In, Out])

	mu     sync.Mutex
	gen    uint64
	status Status[In, Out]
	cancel context.CancelFunc
	subs   map[int]func(Status[In, Out])
	nextID int
}

// New creates an idle tracker for op
func New[In, Out any](op Operation[In, Out], opts ...Option[In, Out]) *Tracker[In, Out] {
	t := &Tracker[In, Out]{
		id:   uuid.New(),
		op:   op,
		subs: make(map[int]func(Status[In, Out])),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ID identifies the tracker instance
func (t *Tracker[In, Out]) ID() uuid.UUID { return t.id }

// Status returns the current snapshot
func (t *Tracker[In, Out]) Status() Status[In, Out] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Subscribe registers fn for every status change and returns a function that
// removes it. Notifications from different goroutines may interleave; read
// Status for the authoritative value.
func (t *Tracker[In, Out]) Subscribe(fn func(Status[In, Out])) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Run starts a new attempt with in and moves to Running immediately.
func (t *Tracker[In, Out]) Run(in In) {
	ctx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	released := t.leaveLocked()
	t.gen++
	attempt := t.gen
	t.cancel = cancel
	t.status = Status[In, Out]{Phase: Running, Attempt: attempt, Input: in}
	st, subs := t.status, t.subscribersLocked()
	t.mu.Unlock()

	t.releaseAll(released)
	notify(subs, st)

	go t.execute(context.WithValue(ctx, attemptKey{}, attempt), attempt, in)
}

// Reset forces Idle and invalidates any attempt still in flight
func (t *Tracker[In, Out]) Reset() {
	t.mu.Lock()
	released := t.leaveLocked()
	t.gen++
	t.status = Status[In, Out]{Phase: Idle, Attempt: t.gen}
	st, subs := t.status, t.subscribersLocked()
	t.mu.Unlock()

	t.releaseAll(released)
	notify(subs, st)
}

// leaveLocked cancels the running attempt and returns the Success being left,
// if any.
func (t *Tracker[In, Out]) leaveLocked() []Status[In, Out] {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.status.Phase == Success {
		return []Status[In, Out]{t.status}
	}
	return nil
}

func (t *Tracker[In, Out]) execute(ctx context.Context, attempt uint64, in In) {
	out, err := t.invoke(ctx, in)

	t.mu.Lock()
	if attempt != t.gen {
		t.mu.Unlock()
		// superseded: the result is dropped, resources are handed back
		if err == nil {
			t.releaseAll([]Status[In, Out]{{Phase: Success, Attempt: attempt, Input: in, Output: out}})
		}
		return
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if err != nil {
		t.status = Status[In, Out]{Phase: Error, Attempt: attempt, Input: in, Err: err}
	} else {
		t.status = Status[In, Out]{Phase: Success, Attempt: attempt, Input: in, Output: out}
	}
	st, subs := t.status, t.subscribersLocked()
	t.mu.Unlock()

	notify(subs, st)
	// a subscriber may have reset or rerun the tracker meanwhile
	if st.Phase == Error && t.onError != nil && t.current(attempt) {
		t.onError(st)
	}
}

func (t *Tracker[In, Out]) current(attempt uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return attempt == t.gen
}

func (t *Tracker[In, Out]) invoke(ctx context.Context, in In) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task: operation panicked: %v", r)
		}
	}()
	return t.op(ctx, in)
}

func (t *Tracker[In, Out]) subscribersLocked() []func(Status[In, Out]) {
	subs := make([]func(Status[In, Out]), 0, len(t.subs))
	for i := 0; i < t.nextID; i++ {
		if fn, ok := t.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func (t *Tracker[In, Out]) releaseAll(sts []Status[In, Out]) {
	if t.release == nil {
		return
	}
	for _, st := range sts {
		t.release(st)
	}
}

func notify[In, Out any](subs []func(Status[In, Out]), st Status[In, Out]) {
	for _, fn := range subs {
		fn(st)
	}
}
