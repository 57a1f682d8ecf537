package frame

import "time"

// RateMeter reports frames per second over windows of at least Interval.
type RateMeter struct {
	Interval time.Duration

	count int
	last  time.Time
	rate  float64
}

// NewRateMeter starts measuring at now.
func NewRateMeter(now time.Time, interval time.Duration) *RateMeter {
	return &RateMeter{Interval: interval, last: now}
}

// Tick records one frame at now. It returns the rate and true when a window
// has just closed.
func (m *RateMeter) Tick(now time.Time) (float64, bool) {
	m.count++
	elapsed := now.Sub(m.last)
	if elapsed < m.Interval || elapsed <= 0 {
		return m.rate, false
	}
	m.rate = float64(m.count) / elapsed.Seconds()
	m.count = 0
	m.last = now
	return m.rate, true
}

// Rate returns the rate of the last closed window.
func (m *RateMeter) Rate() float64 { return m.rate }
