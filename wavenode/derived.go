// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wavenode

import "math"

// Forward-power variants the derived metrics are computed against.
const (
	variantPeak = "peak"
	variantAvg  = "avg"
)

// derived is a freshly computed metric candidate headed for the
// throttle. Derived values are never cached; they are recomputed from
// the channel state on every relevant trigger.
type derived struct {
	suffix string
	value  float64
	text   string
	fast   bool
}

// deriveReflected computes reflected power and return loss for channel
// ch from forward power p and SWR s. It returns nothing when either
// input is non-positive or NaN.
//
// Reflection coefficient Γ = (s-1)/(s+1); reflected power is p·Γ²; return
// loss is -20·log10(Γ) in dB. Γ == 0 is a perfect match, reported as
// infinite return loss. Γ < 0 (SWR below 1, a degenerate reading) still
// yields a reflected power but no return loss.
func deriveReflected(ch int, variant string, p, s float64) []derived {
	if p <= 0 || s <= 0 || math.IsNaN(p) || math.IsNaN(s) {
		return nil
	}

	gamma := (s - 1) / (s + 1)
	ref := p * gamma * gamma

	out := []derived{{
		suffix: refWattsSuffix(variant, ch),
		value:  ref,
		text:   FormatValue(ref),
		fast:   true,
	}}

	switch {
	case gamma > 0:
		rl := -20 * math.Log10(gamma)
		out = append(out, derived{
			suffix: returnLossSuffix(ch),
			value:  rl,
			text:   FormatReturnLoss(rl),
		})
	case gamma == 0:
		out = append(out, derived{
			suffix: returnLossSuffix(ch),
			value:  math.Inf(1),
			text:   FormatReturnLoss(math.Inf(1)),
		})
	}

	return out
}
