package policy

import (
	"fmt"
	"math"
)

// Default severity thresholds. A raw score at or above a threshold maps to
// that level; anything below the medium threshold is LOW.
const (
	DefaultCriticalThreshold = 0.9
	DefaultHighThreshold     = 0.7
	DefaultMediumThreshold   = 0.4
)

// Thresholds holds the severity band boundaries applied to anomaly scores.
// Bands are inclusive at the lower edge: score >= Critical is CRITICAL,
// score >= High is HIGH, score >= Medium is MEDIUM, below that LOW.
type Thresholds struct {
	Critical float64 `json:"critical" yaml:"critical"`
	High     float64 `json:"high" yaml:"high"`
	Medium   float64 `json:"medium" yaml:"medium"`
}

// DefaultThresholds returns the standard severity bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Critical: DefaultCriticalThreshold,
		High:     DefaultHighThreshold,
		Medium:   DefaultMediumThreshold,
	}
}

// ApplyDefaults fills zero-valued thresholds with the standard bands. All
// three are filled together when all are zero; partial configs keep what
// they set and only receive the missing edges.
func (t *Thresholds) ApplyDefaults() {
	if t.Critical == 0 {
		t.Critical = DefaultCriticalThreshold
	}
	if t.High == 0 {
		t.High = DefaultHighThreshold
	}
	if t.Medium == 0 {
		t.Medium = DefaultMediumThreshold
	}
}

// Validate checks that the bands are strictly ordered and usable.
func (t Thresholds) Validate() error {
	var errs []FieldError
	if t.Critical <= 0 || t.Critical > 1 {
		errs = append(errs, FieldError{
			Field:   "severity_thresholds.critical",
			Message: fmt.Sprintf("must be in (0, 1], got %v", t.Critical),
		})
	}
	if t.High <= 0 {
		errs = append(errs, FieldError{
			Field:   "severity_thresholds.high",
			Message: fmt.Sprintf("must be positive, got %v", t.High),
		})
	}
	if t.Medium <= 0 {
		errs = append(errs, FieldError{
			Field:   "severity_thresholds.medium",
			Message: fmt.Sprintf("must be positive, got %v", t.Medium),
		})
	}
	if t.Critical <= t.High {
		errs = append(errs, FieldError{
			Field:   "severity_thresholds",
			Message: fmt.Sprintf("critical (%v) must exceed high (%v)", t.Critical, t.High),
		})
	}
	if t.High <= t.Medium {
		errs = append(errs, FieldError{
			Field:   "severity_thresholds",
			Message: fmt.Sprintf("high (%v) must exceed medium (%v)", t.High, t.Medium),
		})
	}
	if len(errs) > 0 {
		return &ConfigError{Errors: errs}
	}
	return nil
}

// Classifier maps anomaly severity scores onto ordered severity levels.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier creates a classifier with the given bands. The bands must
// already be validated; use Thresholds.Validate before constructing.
func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{thresholds: t}
}

// Thresholds returns the bands the classifier applies.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify maps a raw severity score to its level. Scores outside [0, 1],
// including NaN, are rejected rather than clamped.
func (c *Classifier) Classify(score float64) (SeverityLevel, error) {
	if err := validateScore(score); err != nil {
		return SeverityLow, err
	}
	return c.classify(score), nil
}

// ClassifyAdjusted scales the score by the phase threshold multiplier before
// banding. A multiplier above 1 makes the phase harder to alarm (LAUNCH at
// 2.0 halves the effective score); below 1 makes it more sensitive
// (SAFE_MODE at 0.8 raises it). The raw score must still be in [0, 1].
func (c *Classifier) ClassifyAdjusted(score, multiplier float64) (SeverityLevel, error) {
	if err := validateScore(score); err != nil {
		return SeverityLow, err
	}
	if multiplier <= 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return SeverityLow, NewInputError("threshold_multiplier", multiplier, "must be a positive finite number")
	}
	return c.classify(score / multiplier), nil
}

func (c *Classifier) classify(effective float64) SeverityLevel {
	switch {
	case effective >= c.thresholds.Critical:
		return SeverityCritical
	case effective >= c.thresholds.High:
		return SeverityHigh
	case effective >= c.thresholds.Medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func validateScore(score float64) error {
	if math.IsNaN(score) {
		return NewInputError("severity_score", "NaN", "must be in [0, 1]")
	}
	if score < 0 || score > 1 {
		return NewInputError("severity_score", score, "must be in [0, 1]")
	}
	return nil
}
