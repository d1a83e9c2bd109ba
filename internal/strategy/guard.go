package strategy

import (
	"fmt"
	"time"

	"Cryptobot/internal/model"
)

// Default cadence of the analysis cycle and the slack allowed around it.
const (
	DefaultCadence = time.Hour
	DefaultBuffer  = 5 * time.Minute
)

// SkipReason explains why the guard refused a cycle.
type SkipReason string

const (
	SkipNone    SkipReason = ""
	SkipTooSoon SkipReason = "too soon"
	SkipStale   SkipReason = "stale"
)

// Verdict is the guard's decision for one invocation.
// When Skip is SkipNone the cycle may proceed; Previous is nil on the first run.
type Verdict struct {
	Skip     SkipReason
	Previous *float64
	Elapsed  time.Duration
}

// Proceed reports whether the cycle may run.
func (v Verdict) Proceed() bool { return v.Skip == SkipNone }

// FirstRun reports whether there is no previous score to compare against.
func (v Verdict) FirstRun() bool { return v.Proceed() && v.Previous == nil }

func (v Verdict) String() string {
	switch {
	case v.FirstRun():
		return "proceed (first run)"
	case v.Proceed():
		return fmt.Sprintf("proceed (previous %.6f, %s ago)", *v.Previous, v.Elapsed.Round(time.Second))
	default:
		return fmt.Sprintf("skip (%s, %s since last record)", v.Skip, v.Elapsed.Round(time.Second))
	}
}

// Guard decides whether a fresh analysis cycle may run given the last recorded score.
type Guard struct {
	Cadence time.Duration
	Buffer  time.Duration
}

// NewGuard creates a Guard, using the defaults for non-positive values.
func NewGuard(cadence, buffer time.Duration) Guard {
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	if buffer < 0 {
		buffer = DefaultBuffer
	}
	return Guard{Cadence: cadence, Buffer: buffer}
}

// Check evaluates the staleness window:
//   - elapsed < cadence-buffer: too soon, nothing is computed or stored
//   - elapsed > 2*cadence+buffer: the previous score is stale and must not be used
//   - otherwise the previous score is usable
func (g Guard) Check(now time.Time, last *model.ScoreRecord) Verdict {
	if last == nil {
		return Verdict{}
	}
	elapsed := now.Sub(last.Timestamp)
	switch {
	case elapsed < g.Cadence-g.Buffer:
		return Verdict{Skip: SkipTooSoon, Elapsed: elapsed}
	case elapsed > 2*g.Cadence+g.Buffer:
		return Verdict{Skip: SkipStale, Elapsed: elapsed}
	}
	prev := last.Score
	return Verdict{Previous: &prev, Elapsed: elapsed}
}
