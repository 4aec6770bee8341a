// Package gamification maps accumulated experience points to levels via
// a closed-form, invertible curve.
package gamification

import "math"

// DefaultPointsFirstLevel is the XP total that lifts a participant to
// level 1 with the default tuning.
const DefaultPointsFirstLevel = 9000

// DefaultTuningFactor controls the steepness of the level curve.
const DefaultTuningFactor = 1.0

// Calculator converts between XP and level. The zero value is unusable;
// construct with New.
type Calculator struct {
	pointFactor  float64
	tuningFactor float64
}

// New derives the curve constants from the points required for the first
// level-up and a tuning factor. Non-positive inputs fall back to the
// defaults.
func New(pointsFirstLevel int, tuningFactor float64) Calculator {
	if pointsFirstLevel <= 0 {
		pointsFirstLevel = DefaultPointsFirstLevel
	}
	if tuningFactor <= 0 {
		tuningFactor = DefaultTuningFactor
	}
	return Calculator{
		pointFactor:  math.Round(float64(pointsFirstLevel) / 3),
		tuningFactor: tuningFactor,
	}
}

// XpForLevel returns the XP total at which level n begins. It is
// monotonically increasing for n >= 0. Note that the curve is negative
// below level 1; real XP totals never go below zero.
func (c Calculator) XpForLevel(n int) int {
	k := c.tuningFactor
	pf := c.pointFactor
	level := float64(n)
	xp := pf/(2*k)*level*level + pf*(1+1/(2*k))*level - pf*(1+1/k)
	return int(math.Round(xp))
}

// LevelFromXp inverts XpForLevel: for every integer n >= 0,
// LevelFromXp(XpForLevel(n)) == n. Must not be called with XP below
// XpForLevel(0).
func (c Calculator) LevelFromXp(xp int) int {
	k := c.tuningFactor
	pf := c.pointFactor
	level := int(math.Floor(
		math.Sqrt(pf*math.Pow(2*k+3, 2)+8*k*float64(xp))/(2*math.Sqrt(pf)) - k - 0.5,
	))
	// The closed form can land one off at exact level boundaries due to
	// float rounding; nudge onto the right step.
	for c.XpForLevel(level+1) <= xp {
		level++
	}
	for level > 0 && c.XpForLevel(level) > xp {
		level--
	}
	return level
}
