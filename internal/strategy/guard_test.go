package strategy

import (
	"testing"
	"time"

	"Cryptobot/internal/model"
)

func TestGuard_FirstRun(t *testing.T) {
	v := NewGuard(time.Hour, 5*time.Minute).Check(time.Now(), nil)
	if !v.Proceed() || !v.FirstRun() {
		t.Fatalf("expected first-run proceed, got %s", v)
	}
}

func TestGuard_Boundaries(t *testing.T) {
	g := NewGuard(3600*time.Second, 300*time.Second)
	last := &model.ScoreRecord{Product: "ETH-USD", Timestamp: time.Unix(1_700_000_000, 0), Score: 1.25}

	tests := []struct {
		elapsed int64
		skip    SkipReason
	}{
		{0, SkipTooSoon},
		{3299, SkipTooSoon},
		{3300, SkipNone},
		{3600, SkipNone},
		{7500, SkipNone},
		{7501, SkipStale},
		{86400, SkipStale},
	}
	for _, tt := range tests {
		now := last.Timestamp.Add(time.Duration(tt.elapsed) * time.Second)
		v := g.Check(now, last)
		if v.Skip != tt.skip {
			t.Errorf("elapsed %ds: expected skip %q, got %q", tt.elapsed, tt.skip, v.Skip)
			continue
		}
		if tt.skip == SkipNone {
			if v.Previous == nil || *v.Previous != 1.25 {
				t.Errorf("elapsed %ds: expected previous score 1.25, got %v", tt.elapsed, v.Previous)
			}
		} else if v.Previous != nil {
			t.Errorf("elapsed %ds: skipped verdict must not carry a previous score", tt.elapsed)
		}
	}
}

func TestNewGuard_Defaults(t *testing.T) {
	g := NewGuard(0, -1)
	if g.Cadence != DefaultCadence || g.Buffer != DefaultBuffer {
		t.Fatalf("unexpected defaults: %+v", g)
	}
}
