package alert

import "github.com/couchcryptid/tempest-monitor/internal/domain"

// batteryRule moves a station from one of modes to the target mode when the
// measured voltage satisfies match. An empty modes list matches any mode.
type batteryRule struct {
	modes  []domain.BatteryMode
	match  func(volts float64) bool
	target domain.BatteryMode
}

func atLeast(t float64) func(float64) bool { return func(v float64) bool { return v >= t } }
func atMost(t float64) func(float64) bool  { return func(v float64) bool { return v <= t } }
func above(t float64) func(float64) bool   { return func(v float64) bool { return v > t } }
func below(t float64) func(float64) bool   { return func(v float64) bool { return v < t } }

const (
	full   = domain.BatteryModeFull
	saver1 = domain.BatteryModeSaver1
	saver2 = domain.BatteryModeSaver2
	saver3 = domain.BatteryModeSaver3
)

// batteryRules is evaluated top to bottom; the first match wins. Recovery
// rules come first, highest threshold down, then falling transitions, then
// the rules that hold a mode inside its band.
var batteryRules = []batteryRule{
	// Recovery.
	{modes: nil, match: atLeast(2.455), target: full},
	{modes: []domain.BatteryMode{saver1, saver2, saver3}, match: atLeast(2.41), target: saver1},
	{modes: []domain.BatteryMode{saver2, saver3}, match: atLeast(2.365), target: saver2},

	// Falling. A deep drop goes straight to maximum saving.
	{modes: []domain.BatteryMode{full, saver1, saver2}, match: atMost(2.355), target: saver3},
	{modes: []domain.BatteryMode{full}, match: atMost(2.415), target: saver1},
	{modes: []domain.BatteryMode{saver1}, match: atMost(2.39), target: saver2},

	// Hold.
	{modes: []domain.BatteryMode{full}, match: above(2.415), target: full},
	{modes: []domain.BatteryMode{saver1}, match: above(2.39), target: saver1},
	{modes: []domain.BatteryMode{saver2}, match: above(2.355), target: saver2},
	{modes: []domain.BatteryMode{saver3}, match: below(2.365), target: saver3},
}

// NextBatteryMode returns the mode a station in current moves to at volts.
// Combinations no rule covers, including any current mode outside 0-3,
// yield BatteryModeInvalid. Invalid is left only by a full recovery.
func NextBatteryMode(current domain.BatteryMode, volts float64) domain.BatteryMode {
	for _, r := range batteryRules {
		if r.applies(current) && r.match(volts) {
			return r.target
		}
	}
	return domain.BatteryModeInvalid
}

func (r batteryRule) applies(mode domain.BatteryMode) bool {
	if len(r.modes) == 0 {
		return true
	}
	for _, m := range r.modes {
		if m == mode {
			return true
		}
	}
	return false
}

// SeedBatteryMode picks the initial mode for a station with no history.
func SeedBatteryMode(volts float64) domain.BatteryMode {
	switch {
	case volts >= 2.455:
		return full
	case volts >= 2.41:
		return saver1
	case volts >= 2.375:
		return saver2
	default:
		return saver3
	}
}

// batteryEvent maps a newly entered mode to its alert kind.
func batteryEvent(mode domain.BatteryMode) domain.EventKind {
	switch mode {
	case full:
		return domain.EventBatteryOK
	case saver1, saver2:
		return domain.EventBatteryLow
	default:
		return domain.EventBatteryCrit
	}
}
