package core

import "time"

// Throttle gates periodic work, such as progress logging, to a steady rate.
type Throttle struct {
	step        time.Duration
	accumulator time.Duration
	last        time.Time
	now         func() time.Time
}

// NewThrottle constructs a Throttle that fires at most perSecond times a
// second. The first call to Ready always fires.
func NewThrottle(perSecond float64) *Throttle {
	t := &Throttle{now: time.Now}
	t.SetRate(perSecond)
	t.accumulator = t.step
	return t
}

// SetRate changes the firing rate. Non-positive rates fall back to once a second.
func (t *Throttle) SetRate(perSecond float64) {
	if perSecond <= 0 {
		perSecond = 1
	}
	t.step = time.Duration(float64(time.Second) / perSecond)
}

// Ready reports whether enough time has elapsed since the last firing.
// Unlike a fixed-step loop, missed intervals are not replayed.
func (t *Throttle) Ready() bool {
	now := t.now()
	if t.last.IsZero() {
		t.last = now
	}
	t.accumulator += now.Sub(t.last)
	t.last = now
	if t.accumulator >= t.step {
		t.accumulator = 0
		return true
	}
	return false
}
