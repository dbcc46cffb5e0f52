package stateserver

import "time"

// timerManager tracks the three timer classes and their cancellation
// triggers.
//
// All fields are owned by the instance's loop goroutine: arming,
// disarming, and delivery checks all happen inside dispatch. The
// time.AfterFunc callbacks only ever send an event into the mailbox.
//
// Cancellation is enforced at delivery, not at Stop: each arm bumps a
// generation counter and the fired event carries the generation it was
// armed under. A fire that raced a cancellation arrives with a stale
// generation and is dropped. Stop on the underlying timer is best
// effort housekeeping.
type timerManager struct {
	send func(event)

	eventTimer *time.Timer
	eventGen   uint64
	eventArmed bool

	stateTimer *time.Timer
	stateGen   uint64
	stateArmed bool

	named    map[string]*namedTimer
	namedSeq uint64
}

type namedTimer struct {
	timer *time.Timer
	gen   uint64
}

func newTimerManager(send func(event)) *timerManager {
	return &timerManager{send: send, named: make(map[string]*namedTimer)}
}

// armEvent arms (or with d <= 0 disarms) the event-scoped timer.
func (t *timerManager) armEvent(d time.Duration, payload any) {
	t.disarmEvent()
	if d <= 0 {
		return
	}
	t.eventGen++
	t.eventArmed = true
	gen := t.eventGen
	t.eventTimer = time.AfterFunc(d, func() {
		t.send(event{kind: evEventTimeout, payload: payload, gen: gen})
	})
}

// disarmEvent cancels the event-scoped timer. Called by dispatch for
// every event other than the timer's own valid firing.
func (t *timerManager) disarmEvent() {
	if t.eventArmed {
		t.eventTimer.Stop()
		t.eventArmed = false
	}
}

// takeEvent validates a fired event-scoped timer against the current
// generation, consuming it when valid.
func (t *timerManager) takeEvent(gen uint64) bool {
	if !t.eventArmed || gen != t.eventGen {
		return false
	}
	t.eventArmed = false
	return true
}

// armState arms (or with d <= 0 disarms) the state-scoped timer. At
// most one is outstanding; arming replaces any previous one.
func (t *timerManager) armState(d time.Duration, payload any) {
	t.disarmState()
	if d <= 0 {
		return
	}
	t.stateGen++
	t.stateArmed = true
	gen := t.stateGen
	t.stateTimer = time.AfterFunc(d, func() {
		t.send(event{kind: evStateTimeout, payload: payload, gen: gen})
	})
}

// disarmState cancels the state-scoped timer. Called on every state
// entry, including repeat-in-place.
func (t *timerManager) disarmState() {
	if t.stateArmed {
		t.stateTimer.Stop()
		t.stateArmed = false
	}
}

func (t *timerManager) takeState(gen uint64) bool {
	if !t.stateArmed || gen != t.stateGen {
		return false
	}
	t.stateArmed = false
	return true
}

// armNamed arms an independent named timer. Re-arming replaces the
// previous instance under the same name; d <= 0 disarms.
func (t *timerManager) armNamed(name string, d time.Duration, payload any) {
	if existing, ok := t.named[name]; ok {
		existing.timer.Stop()
		delete(t.named, name)
	}
	if d <= 0 {
		return
	}
	t.namedSeq++
	gen := t.namedSeq
	var delivered any
	if payload == nil {
		delivered = TimerName(name)
	} else {
		delivered = NamedTimeoutPayload{Name: name, Payload: payload}
	}
	t.named[name] = &namedTimer{
		gen: gen,
		timer: time.AfterFunc(d, func() {
			t.send(event{kind: evNamedTimeout, name: name, payload: delivered, gen: gen})
		}),
	}
}

func (t *timerManager) takeNamed(name string, gen uint64) bool {
	nt, ok := t.named[name]
	if !ok || nt.gen != gen {
		return false
	}
	delete(t.named, name)
	return true
}

// stopAll releases every outstanding timer. Called on termination.
func (t *timerManager) stopAll() {
	t.disarmEvent()
	t.disarmState()
	for name, nt := range t.named {
		nt.timer.Stop()
		delete(t.named, name)
	}
}
