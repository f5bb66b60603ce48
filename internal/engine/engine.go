package engine

import "log/slog"

// Engine is the simulator's global clock and event loop. It is passed
// explicitly into every component that needs to schedule work (Cable, NIC,
// Bridge, the IPv4 engine) rather than living behind a package-level
// global, so unit tests can run independent engines concurrently.
type Engine struct {
	now Time
	q   *eventQueue
	reg *Registry
	log *slog.Logger
}

// New constructs an empty Engine at simulated time zero. A nil logger is
// replaced with slog.Default() so callers never need a nil check.
func New(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{q: newEventQueue(), reg: newRegistry(), log: log}
}

// Now returns the current simulated time.
func (e *Engine) Now() Time { return e.now }

// Registry returns the engine's object registry.
func (e *Engine) Registry() *Registry { return e.reg }

// Logger returns the engine's structured logger.
func (e *Engine) Logger() *slog.Logger { return e.log }

// Schedule inserts ev into the event heap, keyed by ev.When. O(log n).
func (e *Engine) Schedule(ev *Event) *Event {
	e.q.push(ev)
	return ev
}

// ScheduleCallback is a convenience wrapper that schedules fn to run at
// now+delay as a KindCallback event.
func (e *Engine) ScheduleCallback(delay Time, fn func(*Engine)) *Event {
	return e.Schedule(&Event{When: e.now + delay, Kind: KindCallback, Fn: fn})
}

// CancelMatching removes every not-yet-fired event for which pred holds and
// returns how many were removed. This is the engine's only cancellation
// primitive; PHY uses it to invalidate an outstanding SignalCease when it
// emits a jam, since the jam supersedes it.
func (e *Engine) CancelMatching(pred func(*Event) bool) int {
	return e.q.removeMatching(pred)
}

// PeekNext returns the next event to fire without removing it, or nil if
// the queue is empty.
func (e *Engine) PeekNext() *Event {
	return e.q.peek()
}

// DequeueNext removes and returns the next event to fire, or nil if the
// queue is empty. It does not advance the clock; callers that want clock
// advancement should use RunUntil.
func (e *Engine) DequeueNext() *Event {
	return e.q.pop()
}

// Len returns the number of events still pending.
func (e *Engine) Len() int { return e.q.len() }

// RunUntil repeatedly dequeues events with When <= t, advancing the clock
// to each event's When before running it. When no more such events remain,
// the clock is advanced to t.
func (e *Engine) RunUntil(t Time) {
	for {
		ev := e.q.peek()
		if ev == nil || ev.When > t {
			break
		}
		e.q.pop()
		e.now = ev.When
		ev.Run(e)
	}
	if t > e.now {
		e.now = t
	}
}

// RunAll drains the queue completely, running every event in time/seq
// order. Useful for scenarios with a fixed, finite amount of work and no
// explicit deadline.
func (e *Engine) RunAll() {
	for {
		ev := e.q.pop()
		if ev == nil {
			return
		}
		e.now = ev.When
		ev.Run(e)
	}
}
