// Package common provides shared timing helpers for the CLI and server.
package common

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Timer measures one named phase.
type Timer struct {
	name     string
	start    time.Time
	duration time.Duration
	stopped  bool
}

// NewTimer starts a timer with the given name.
func NewTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop records the elapsed time. Later calls keep the first measurement.
func (t *Timer) Stop() time.Duration {
	if !t.stopped {
		t.duration = time.Since(t.start)
		t.stopped = true
	}
	return t.duration
}

// Duration returns the recorded duration, or the running time if the timer
// has not been stopped yet.
func (t *Timer) Duration() time.Duration {
	if !t.stopped {
		return time.Since(t.start)
	}
	return t.duration
}

// Name returns the timer name.
func (t *Timer) Name() string { return t.name }

func (t *Timer) String() string {
	if t.name == "" {
		return t.Duration().String()
	}
	return fmt.Sprintf("%s: %v", t.name, t.Duration())
}

// LogValue implements slog.LogValuer.
func (t *Timer) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", t.name),
		slog.Float64("ms", Millis(t.Duration())),
	)
}

// Phases collects sequential timers, e.g. load, estimate, warp and save.
type Phases struct {
	timers []*Timer
}

// Start stops the running phase, if any, and starts a new one.
func (p *Phases) Start(name string) *Timer {
	if n := len(p.timers); n > 0 {
		p.timers[n-1].Stop()
	}
	t := NewTimer(name)
	p.timers = append(p.timers, t)
	return t
}

// Stop stops the running phase.
func (p *Phases) Stop() {
	if n := len(p.timers); n > 0 {
		p.timers[n-1].Stop()
	}
}

// Get returns the timer for the named phase.
func (p *Phases) Get(name string) (*Timer, bool) {
	for _, t := range p.timers {
		if t.name == name {
			return t, true
		}
	}
	return nil, false
}

// Total sums all phase durations.
func (p *Phases) Total() time.Duration {
	var d time.Duration
	for _, t := range p.timers {
		d += t.Duration()
	}
	return d
}

// Report writes one line per phase followed by the total.
func (p *Phases) Report(w io.Writer) error {
	for _, t := range p.timers {
		if _, err := fmt.Fprintf(w, "%-10s %10.3f ms\n", t.name, Millis(t.Duration())); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%-10s %10.3f ms\n", "total", Millis(p.Total()))
	return err
}

// LogValue implements slog.LogValuer.
func (p *Phases) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(p.timers)+1)
	for _, t := range p.timers {
		attrs = append(attrs, slog.Float64(t.name+"_ms", Millis(t.Duration())))
	}
	attrs = append(attrs, slog.Float64("total_ms", Millis(p.Total())))
	return slog.GroupValue(attrs...)
}

// Millis converts d to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
