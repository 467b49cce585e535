package service

import (
	"math"

	"github.com/noah-isme/shift-rota-api/pkg/config"
)

// Weighting scores how strongly a subject should be preferred for a slot.
//
//	weight = weeksSince - flexibility/FlexibilityDivisor - total/LoadDivisor - (RunLoadOffset + current)^RunLoadExponent
//
// where weeksSince is the hop distance to the subject's last assignment (or
// NeverScheduledWeeks) minus one.
type Weighting struct {
	NeverScheduledWeeks int
	FlexibilityDivisor  float64
	LoadDivisor         float64
	RunLoadOffset       float64
	RunLoadExponent     float64
}

// WeightInputs are the per-subject aggregates fed into Weighting.Score.
type WeightInputs struct {
	LastScheduled *int
	Flexibility   int
	Total         int
	Current       int
}

// DefaultWeighting returns the stock coefficients.
func DefaultWeighting() Weighting {
	return Weighting{
		NeverScheduledWeeks: 100,
		FlexibilityDivisor:  20,
		LoadDivisor:         5,
		RunLoadOffset:       2,
		RunLoadExponent:     3,
	}
}

// WeightingFromConfig reads coefficients from cfg. Out-of-range values keep their
// defaults and are reported in the returned list of rejected keys.
func WeightingFromConfig(cfg config.SchedulerConfig) (Weighting, []string) {
	w := DefaultWeighting()
	var rejected []string
	if cfg.NeverScheduledWeeks > 0 {
		w.NeverScheduledWeeks = cfg.NeverScheduledWeeks
	} else {
		rejected = append(rejected, "SCHEDULER_NEVER_SCHEDULED_WEEKS")
	}
	if cfg.FlexibilityDivisor > 0 {
		w.FlexibilityDivisor = cfg.FlexibilityDivisor
	} else {
		rejected = append(rejected, "SCHEDULER_FLEXIBILITY_DIVISOR")
	}
	if cfg.LoadDivisor > 0 {
		w.LoadDivisor = cfg.LoadDivisor
	} else {
		rejected = append(rejected, "SCHEDULER_LOAD_DIVISOR")
	}
	if cfg.RunLoadOffset >= 0 {
		w.RunLoadOffset = cfg.RunLoadOffset
	} else {
		rejected = append(rejected, "SCHEDULER_RUN_LOAD_OFFSET")
	}
	// exponent must exceed 1
	if cfg.RunLoadExponent > 1 {
		w.RunLoadExponent = cfg.RunLoadExponent
	} else {
		rejected = append(rejected, "SCHEDULER_RUN_LOAD_EXPONENT")
	}
	return w, rejected
}

// Score computes the weight for one candidate.
func (w Weighting) Score(in WeightInputs) float64 {
	last := w.NeverScheduledWeeks
	if in.LastScheduled != nil {
		last = *in.LastScheduled
	}
	weeksSince := float64(last) - 1
	return weeksSince -
		float64(in.Flexibility)/w.FlexibilityDivisor -
		float64(in.Total)/w.LoadDivisor -
		math.Pow(w.RunLoadOffset+float64(in.Current), w.RunLoadExponent)
}
