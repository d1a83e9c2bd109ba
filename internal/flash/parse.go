package flash

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"Cryptobot/internal/model"
)

// ErrInvalidFlashRule is returned for rule strings that do not match "<percent> in <duration>".
var ErrInvalidFlashRule = errors.New("invalid flash rule")

const (
	day  = 24 * 60 * 60
	week = 7 * day
)

// unitSeconds maps duration units to seconds. Months and years are approximate.
var unitSeconds = map[string]float64{
	"":     1,
	"s":    1,
	"sec":  1,
	"m":    60,
	"min":  60,
	"h":    60 * 60,
	"hr":   60 * 60,
	"d":    day,
	"day":  day,
	"w":    week,
	"wk":   week,
	"week": week,
	"mo":   4 * week,
	"y":    365 * day,
	"yr":   365 * day,
}

var (
	durationToken = regexp.MustCompile(`([0-9.]+)([a-z]*)`)
	durationFull  = regexp.MustCompile(`^(?:[0-9.]+[a-z]*)+$`)
)

// ParseRule parses a rule such as "5% in 60s" or "0.05 in 2h5m20s".
func ParseRule(raw string) (model.FlashRule, error) {
	rule := strings.ToLower(strings.TrimSpace(raw))
	if !strings.Contains(rule, " in ") {
		return model.FlashRule{}, fmt.Errorf("%w %q: missing \" in \"", ErrInvalidFlashRule, raw)
	}
	fields := strings.Fields(rule)
	if len(fields) != 3 || fields[1] != "in" {
		return model.FlashRule{}, fmt.Errorf("%w %q: expected \"<percent> in <duration>\"", ErrInvalidFlashRule, raw)
	}

	threshold, err := parsePercent(fields[0])
	if err != nil {
		return model.FlashRule{}, fmt.Errorf("%w %q: %v", ErrInvalidFlashRule, raw, err)
	}
	seconds, err := parseDuration(fields[2])
	if err != nil {
		return model.FlashRule{}, fmt.Errorf("%w %q: %v", ErrInvalidFlashRule, raw, err)
	}

	return model.FlashRule{
		Threshold: math.Abs(threshold),
		Window:    time.Duration(seconds * float64(time.Second)),
		Raw:       raw,
	}, nil
}

// ParseRules parses every rule, failing on the first malformed one.
func ParseRules(raw []string) ([]model.FlashRule, error) {
	rules := make([]model.FlashRule, 0, len(raw))
	for _, r := range raw {
		rule, err := ParseRule(r)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func parsePercent(s string) (float64, error) {
	if p, ok := strings.CutSuffix(s, "%"); ok {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("bad percent %q", s)
		}
		return v / 100, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad fraction %q", s)
	}
	return v, nil
}

func parseDuration(s string) (float64, error) {
	if !durationFull.MatchString(s) {
		return 0, fmt.Errorf("bad duration %q", s)
	}
	total := 0.0
	for _, m := range durationToken.FindAllStringSubmatch(s, -1) {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("bad number %q in duration %q", m[1], s)
		}
		mult, ok := unitSeconds[m[2]]
		if !ok {
			return 0, fmt.Errorf("unknown unit %q", m[2])
		}
		total += n * mult
	}
	if total <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return total, nil
}

// FormatWindow renders a duration the way rules are written, e.g. "2h5m20s".
func FormatWindow(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	if secs == 0 {
		return "0s"
	}
	var b strings.Builder
	for _, u := range []struct {
		name string
		size int64
	}{{"w", week}, {"d", day}, {"h", 3600}, {"m", 60}, {"s", 1}} {
		if n := secs / u.size; n > 0 {
			fmt.Fprintf(&b, "%d%s", n, u.name)
			secs -= n * u.size
		}
	}
	return b.String()
}
