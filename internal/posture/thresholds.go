// Package posture holds the distance classification core: threshold
// resolution defaults, settings validation, and per-reading classification.
package posture

import (
	"errors"
	"math"
)

// Default thresholds in centimeters, used when a user has no stored settings.
const (
	DefaultTooClose   = 10
	DefaultNotSitting = 80
)

// Thresholds is an effective (tooClose, notSitting) distance pair.
type Thresholds struct {
	TooClose   float64 `json:"isTooClose"`
	NotSitting float64 `json:"isNotSitting"`
}

// DefaultThresholds returns the global fallback pair.
func DefaultThresholds() Thresholds {
	return Thresholds{TooClose: DefaultTooClose, NotSitting: DefaultNotSitting}
}

// Usable reports whether a stored pair can drive classification. Resolution
// never fails: pairs that would misclassify degrade to the defaults instead.
func (t Thresholds) Usable() bool {
	return isFinite(t.TooClose) && isFinite(t.NotSitting) &&
		t.TooClose > 0 && t.NotSitting > 0 &&
		t.TooClose < t.NotSitting
}

// Validate checks a proposed pair on the settings-write path. Rules are
// evaluated in order and the first failure wins; the returned error names
// the failed rule.
func (t Thresholds) Validate() error {
	if !isFinite(t.TooClose) || t.TooClose <= 0 {
		return errors.New("isTooClose must be a number greater than zero")
	}
	if !isFinite(t.NotSitting) || t.NotSitting <= 0 {
		return errors.New("isNotSitting must be a number greater than zero")
	}
	if t.TooClose >= t.NotSitting {
		return errors.New("isNotSitting must be greater than isTooClose")
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
