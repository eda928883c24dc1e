// Package points holds the incentive and impact policy as pure functions.
// Callers apply the returned deltas; nothing here touches storage.
package points

import "time"

// Fixed policy values, per container use.
const (
	disposablesPerUse = 2
	co2KgPerUse       = 0.05
	waterLitersPerUse = 4.0
	wasteKgPerUse     = 0.024
)

// Points policy.
const (
	basePoints       = 10
	earlyBonusPoints = 5
	smallLatePenalty = -5
	largeLatePenalty = -10

	// Returns more than this far ahead of the deadline earn the early bonus.
	earlyBonusThreshold = 2 * time.Hour
	// Lateness up to and including this gets the smaller penalty.
	latePenaltyThreshold = 6 * time.Hour
)

// Impact is the environmental impact attributed to a container's usage.
type Impact struct {
	DisposablesSaved int     `json:"disposablesSaved"`
	CO2SavedKg       float64 `json:"co2SavedKg"`
	WaterSavedLiters float64 `json:"waterSavedLiters"`
	WasteSavedKg     float64 `json:"wasteSavedKg"`
}

// ForUsage converts a usage count into impact metrics.
func ForUsage(totalUses int) Impact {
	return Impact{
		DisposablesSaved: totalUses * disposablesPerUse,
		CO2SavedKg:       float64(totalUses) * co2KgPerUse,
		WaterSavedLiters: float64(totalUses) * waterLitersPerUse,
		WasteSavedKg:     float64(totalUses) * wasteKgPerUse,
	}
}

// ReturnOutcome is the computed result of one return event.
type ReturnOutcome struct {
	Points int
	Late   bool
	// LateBy is zero for on-time returns.
	LateBy time.Duration
}

// ForReturn computes the points delta and lateness for a return at
// actualReturn against the expectedReturn deadline.
//
//	early by more than 2h   → +15 (base + bonus)
//	on time                 → +10
//	late by at most 6h      → −5
//	late by more than 6h    → −10
func ForReturn(expectedReturn, actualReturn time.Time) ReturnOutcome {
	if actualReturn.After(expectedReturn) {
		lateBy := actualReturn.Sub(expectedReturn)
		p := smallLatePenalty
		if lateBy > latePenaltyThreshold {
			p = largeLatePenalty
		}
		return ReturnOutcome{Points: p, Late: true, LateBy: lateBy}
	}

	p := basePoints
	if expectedReturn.Sub(actualReturn) > earlyBonusThreshold {
		p += earlyBonusPoints
	}
	return ReturnOutcome{Points: p}
}

// NextStreak applies one return to a streak pair. A late return resets the
// current streak; an on-time return extends it. longestStreak never
// decreases.
func NextStreak(current, longest int, late bool) (int, int) {
	if late {
		return 0, longest
	}
	current++
	if current > longest {
		longest = current
	}
	return current, longest
}
