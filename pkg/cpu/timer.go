package cpu

import "time"

// TimerPeriod is the nominal 60 Hz timer interval.
const TimerPeriod = time.Second / 60

// maxTicksPerAdvance caps catch-up after the host stalls (window drag,
// debugger pause) so the timers do not jump.
const maxTicksPerAdvance = 4

// TimerScheduler converts elapsed wall-clock time into timer ticks. It owns
// no machine state: the host asks how many ticks are due and calls
// CPU.TickTimers that many times.
type TimerScheduler struct {
	Period time.Duration

	last    time.Time
	started bool
	owed    time.Duration
}

// NewTimerScheduler returns a scheduler with the given period; zero means
// TimerPeriod.
func NewTimerScheduler(period time.Duration) *TimerScheduler {
	if period <= 0 {
		period = TimerPeriod
	}
	return &TimerScheduler{Period: period}
}

// Due reports how many ticks have elapsed since the previous call. The first
// call only records the start time.
func (s *TimerScheduler) Due(now time.Time) int {
	if !s.started {
		s.started = true
		s.last = now
		return 0
	}
	if now.Before(s.last) {
		s.last = now
		return 0
	}
	s.owed += now.Sub(s.last)
	s.last = now

	n := int(s.owed / s.Period)
	s.owed -= time.Duration(n) * s.Period
	if n > maxTicksPerAdvance {
		n = maxTicksPerAdvance
		s.owed = 0
	}
	return n
}

// Advance ticks vm's timers for the time elapsed up to now and returns the
// number of ticks applied.
func (s *TimerScheduler) Advance(vm *CPU, now time.Time) int {
	n := s.Due(now)
	for i := 0; i < n; i++ {
		vm.TickTimers()
	}
	return n
}

// Restart forgets the previous timestamp, e.g. after unpausing.
func (s *TimerScheduler) Restart() {
	s.started = false
	s.owed = 0
}
