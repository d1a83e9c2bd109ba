package flash

import (
	"context"
	"fmt"
	"iter"
	"time"

	"Cryptobot/internal/model"
)

// PercentChanger supplies the percent change between now and a past instant.
type PercentChanger interface {
	PercentChange(ctx context.Context, at time.Time, useCache bool) (float64, error)
}

// Detector raises events when a short-horizon price change breaches a rule.
// It keeps no state between calls; repeated alerts are left to the notifier.
type Detector struct {
	History  PercentChanger
	UseCache bool
}

// NewDetector creates a Detector reading from history.
func NewDetector(history PercentChanger) *Detector {
	return &Detector{History: history}
}

// Check lazily evaluates rules at now. The sequence is finite and single-pass; a provider
// error is yielded once and ends it.
func (d *Detector) Check(ctx context.Context, rules []model.FlashRule, now time.Time) iter.Seq2[model.FlashEvent, error] {
	return func(yield func(model.FlashEvent, error) bool) {
		for _, rule := range rules {
			if err := ctx.Err(); err != nil {
				yield(model.FlashEvent{}, err)
				return
			}
			change, err := d.History.PercentChange(ctx, now.Add(-rule.Window), d.UseCache)
			if err != nil {
				yield(model.FlashEvent{}, fmt.Errorf("flash rule %q: %w", rule.Raw, err))
				return
			}
			evt, hit := Evaluate(rule, change)
			if !hit {
				continue
			}
			if !yield(evt, nil) {
				return
			}
		}
	}
}

// Evaluate reports whether change breaches rule and builds the event.
func Evaluate(rule model.FlashRule, change float64) (model.FlashEvent, bool) {
	abs := change
	if abs < 0 {
		abs = -abs
	}
	if abs < rule.Threshold {
		return model.FlashEvent{}, false
	}
	dir := model.FlashRally
	if change < 0 {
		dir = model.FlashCrash
	}
	return model.FlashEvent{Direction: dir, PercentChange: change, Rule: rule}, true
}

// Message renders an event for notification.
func Message(evt model.FlashEvent) string {
	return fmt.Sprintf("Flash %s detected; percent change %.4f is above the %.4f threshold for %s.",
		evt.Direction, evt.PercentChange, evt.Rule.Threshold, FormatWindow(evt.Rule.Window))
}
