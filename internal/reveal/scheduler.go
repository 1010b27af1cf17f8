package reveal

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// Tick intervals used by the story views.
const (
	IntervalFast   = 30 * time.Millisecond
	IntervalNormal = 50 * time.Millisecond
	IntervalSlow   = 100 * time.Millisecond
)

// State of a reveal session.
type State int

const (
	// Idle means every unit is revealed and no timer is pending.
	Idle State = iota
	// Revealing means exactly one timer is pending.
	Revealing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Revealing:
		return "revealing"
	default:
		return "unknown"
	}
}

// Frame is a snapshot of a session after a transition.
type Frame struct {
	Session uint64
	Units   Units
	Cursor  int
	State   State
}

// Visible returns the revealed prefix.
func (f Frame) Visible() string {
	return f.Units.Prefix(f.Cursor)
}

// Done reports whether every unit is revealed.
func (f Frame) Done() bool {
	return f.Cursor >= f.Units.Len()
}

// Option configures a Revealer.
type Option func(*Revealer)

// WithInterval sets the delay between two ticks.
func WithInterval(d time.Duration) Option {
	return func(r *Revealer) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithSegmenter sets how source text is split into units.
func WithSegmenter(s Segmenter) Option {
	return func(r *Revealer) {
		if s != nil {
			r.segmenter = s
		}
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clock.Clock) Option {
	return func(r *Revealer) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithFrameHandler registers fn to receive every frame in order. fn runs
// with no lock held and may read the Revealer, but calling SetText from fn
// blocks forever since that frame queues behind the one being handled.
func WithFrameHandler(fn func(Frame)) Option {
	return func(r *Revealer) {
		r.onFrame = fn
	}
}

// WithLogger sets the logger used for session lifecycle entries.
func WithLogger(l *logrus.Entry) Option {
	return func(r *Revealer) {
		if l != nil {
			r.log = l
		}
	}
}

// Revealer advances a cursor over the units of one source text at a time,
// one unit per tick. Assigning new text cancels the running session before
// the next one is armed.
type Revealer struct {
	mu sync.Mutex

	// frames are numbered under mu and handed out in number order
	emitMu   sync.Mutex
	emitCond *sync.Cond
	queued   uint64
	emitted  uint64

	clock     clock.Clock
	interval  time.Duration
	segmenter Segmenter
	onFrame   func(Frame)
	log       *logrus.Entry

	session uint64
	text    string
	units   Units
	cursor  int
	timer   *clock.Timer
	done    chan struct{}
	stopped bool
}

// New returns an idle Revealer with no text.
func New(opts ...Option) *Revealer {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	r := &Revealer{
		clock:     clock.New(),
		interval:  IntervalFast,
		segmenter: charSegmenter{},
		log:       logrus.NewEntry(discard),
		units:     Units{},
		done:      closedChan(),
		stopped:   true,
	}
	r.emitCond = sync.NewCond(&r.emitMu)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetText starts a new session for text and returns its done channel.
// Assigning the text of the running or completed session is a no-op.
func (r *Revealer) SetText(text string) <-chan struct{} {
	r.mu.Lock()
	if !r.stopped && text == r.text {
		done := r.done
		r.mu.Unlock()
		return done
	}

	r.cancelLocked("replaced")

	r.session++
	r.text = text
	r.units = r.segmenter.Segment(text)
	r.cursor = 0
	r.stopped = false
	r.done = make(chan struct{})

	entry := r.log.WithFields(logrus.Fields{
		"session": r.session,
		"units":   r.units.Len(),
		"grain":   r.segmenter.Grain(),
	})
	done := r.done
	empty := r.units.Len() == 0
	if empty {
		entry.Debug("reveal session empty")
	} else {
		r.armLocked()
		entry.Debug("reveal session started")
	}

	r.emitLocked()
	if empty {
		close(done)
	}
	return done
}

// Stop tears the session down. The cursor keeps its value, no timer stays
// armed and the done channel is closed.
func (r *Revealer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked("stopped")
	r.stopped = true
}

// Wait blocks until the current session is done or ctx is cancelled.
func (r *Revealer) Wait(ctx context.Context) error {
	select {
	case <-r.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when the current session ends. A session
// that runs to completion closes it after its last frame was handled.
func (r *Revealer) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Frame returns the current snapshot.
func (r *Revealer) Frame() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameLocked()
}

func (r *Revealer) Cursor() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

func (r *Revealer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

// Pending reports whether a tick timer is armed.
func (r *Revealer) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

func (r *Revealer) Interval() time.Duration {
	return r.interval
}

func (r *Revealer) tick(session uint64) {
	r.mu.Lock()
	// a callback that lost the race against a cancel belongs to a dead session
	if session != r.session || r.timer == nil {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.cursor++
	var finished chan struct{}
	if r.cursor < r.units.Len() {
		r.armLocked()
	} else {
		finished = r.done
		r.log.WithFields(logrus.Fields{
			"session": r.session,
			"units":   r.units.Len(),
		}).Debug("reveal session complete")
	}
	r.emitLocked()
	// done closes only after the final frame was handled
	if finished != nil {
		close(finished)
	}
}

func (r *Revealer) armLocked() {
	session := r.session
	r.timer = r.clock.AfterFunc(r.interval, func() {
		r.tick(session)
	})
}

func (r *Revealer) cancelLocked(reason string) {
	if r.timer == nil {
		return
	}
	r.timer.Stop()
	r.timer = nil
	close(r.done)
	r.log.WithFields(logrus.Fields{
		"session": r.session,
		"cursor":  r.cursor,
		"units":   r.units.Len(),
		"reason":  reason,
	}).Debug("reveal session cancelled")
}

func (r *Revealer) stateLocked() State {
	if r.timer != nil {
		return Revealing
	}
	return Idle
}

func (r *Revealer) frameLocked() Frame {
	return Frame{
		Session: r.session,
		Units:   r.units,
		Cursor:  r.cursor,
		State:   r.stateLocked(),
	}
}

// emitLocked hands the current frame to the handler and releases r.mu.
// The frame takes a number before r.mu is released and waits for every
// earlier frame to be handled, so frames leave in order.
func (r *Revealer) emitLocked() {
	frame := r.frameLocked()
	r.queued++
	turn := r.queued
	r.mu.Unlock()

	r.emitMu.Lock()
	for r.emitted+1 != turn {
		r.emitCond.Wait()
	}
	r.emitMu.Unlock()

	if r.onFrame != nil {
		r.onFrame(frame)
	}

	r.emitMu.Lock()
	r.emitted = turn
	r.emitCond.Broadcast()
	r.emitMu.Unlock()
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
