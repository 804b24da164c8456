package engine

import (
	"astraguard/aegis/pkg/policy"
)

// Confidence weights. Confidence starts at the base, grows with the raw
// severity score and with corroborating recurrence, and receives the
// concurrency boost from the resolver post-step.
const (
	confidenceBase           = 0.5
	confidenceScoreWeight    = 0.35
	confidenceRecurrenceStep = 0.04
	confidenceRecurrenceCap  = 5
)

// computeConfidence derives decision confidence from the severity score and
// corroborating attributes. Monotonically non-decreasing in every input and
// clamped to [0, 1].
func computeConfidence(score float64, attrs policy.EventAttributes, boost float64) float64 {
	recurrence := attrs.RecurrenceCount
	if recurrence > confidenceRecurrenceCap {
		recurrence = confidenceRecurrenceCap
	}
	if recurrence < 0 {
		recurrence = 0
	}

	c := confidenceBase + confidenceScoreWeight*score + confidenceRecurrenceStep*float64(recurrence) + boost
	if c > 1 {
		return 1
	}
	if c < 0 {
		return 0
	}
	return c
}
