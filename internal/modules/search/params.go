package search

import "dinecall/internal/modules/slots"

// PriceRange maps a budget to Places price levels. -1 leaves a bound open.
func PriceRange(b slots.BudgetValue) (minLevel, maxLevel int) {
	switch b.Level {
	case slots.BudgetLow:
		return 0, 1
	case slots.BudgetMedium:
		return 2, 2
	case slots.BudgetHigh:
		return 3, 4
	}
	return -1, -1
}

type radiusRule struct {
	metersPerMinute uint
	capMeters       uint
}

var radiusRules = map[slots.Mode]radiusRule{
	slots.ModeWalking: {80, 5_000},
	slots.ModeCycling: {250, 10_000},
	slots.ModeTransit: {400, 10_000},
	slots.ModeDriving: {700, 30_000},
}

// BiasRadius estimates how far the caller can get in the allowed minutes,
// used only to bias the text search toward reachable places.
func BiasRadius(mode slots.Mode, minutes int) uint {
	rule, ok := radiusRules[mode]
	if !ok || minutes <= 0 {
		return 0
	}
	r := rule.metersPerMinute * uint(minutes)
	if r > rule.capMeters {
		r = rule.capMeters
	}
	return r
}
