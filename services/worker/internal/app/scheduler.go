package app

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TimeOfDay is a wall clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay accepts "H:MM" or "HH:MM" in 24 hour form.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	hh, mm, ok := strings.Cut(raw, ":")
	if !ok || len(mm) != 2 || hh == "" || len(hh) > 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// NextOccurrence returns today's occurrence of t in now's location, or
// tomorrow's when now is already past it.
func NextOccurrence(now time.Time, t TimeOfDay) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, now.Location())
	if now.After(next) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, t.Hour, t.Minute, 0, 0, now.Location())
	}
	return next
}

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time so schedules can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct {
	loc *time.Location
}

// NewSystemClock returns the wall clock in loc (time.Local when nil).
func NewSystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Scheduler holds at most one daily reminder. Arming replaces any pending
// reminder; every firing computes the following one from the clock again.
type Scheduler struct {
	clock Clock
	fire  func()

	mu    sync.Mutex
	timer Timer
	gen   uint64
	armed bool
	at    TimeOfDay
	next  time.Time
}

func NewScheduler(clock Clock, fire func()) *Scheduler {
	if clock == nil {
		clock = NewSystemClock(nil)
	}
	return &Scheduler{clock: clock, fire: fire}
}

// Arm cancels any pending reminder and schedules t. It returns the next
// firing time.
func (s *Scheduler) Arm(t TimeOfDay) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.gen++
	s.armed = true
	s.at = t
	s.scheduleLocked(s.gen, false)
	reminderArmed.Set(1)
	return s.next
}

// Cancel drops the pending reminder, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.gen++
	s.armed = false
	s.next = time.Time{}
	reminderArmed.Set(0)
}

// Next reports the armed time of day and when it fires next.
func (s *Scheduler) Next() (TimeOfDay, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.at, s.next, s.armed
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// scheduleLocked arms the timer for the next occurrence. After a firing the
// occurrence that just fired is never picked again.
func (s *Scheduler) scheduleLocked(gen uint64, fired bool) {
	now := s.clock.Now()
	s.next = NextOccurrence(now, s.at)
	if fired && !s.next.After(now) {
		s.next = s.next.AddDate(0, 0, 1)
	}
	s.timer = s.clock.AfterFunc(s.next.Sub(now), func() { s.onFire(gen) })
}

func (s *Scheduler) onFire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if s.fire != nil {
		s.fire()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.scheduleLocked(gen, true)
	}
}
