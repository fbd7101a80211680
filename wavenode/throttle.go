// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wavenode

import (
	"math"
	"time"
)

// throttleRecord tracks the last accepted publish for one topic. The
// numeric value is recorded for numeric topics only.
type throttleRecord struct {
	last    time.Time
	value   float64
	numeric bool
}

// Throttle is a best-effort sampling filter deciding whether a candidate
// value is eligible for publishing right now. A value that changes and
// reverts within the interval window may never reach the broker; that is
// accepted behavior, not a delivery guarantee.
//
// Records are touched only from the dispatch path, so there is no
// locking. Growth is bounded by the fixed topic catalogue.
type Throttle struct {
	interval time.Duration
	delta    float64
	now      func() time.Time
	records  map[string]throttleRecord
}

// NewThrottle returns a throttle enforcing the given minimum interval
// between publishes of one topic and, for numeric topics, the minimum
// absolute delta between accepted values. A nil clock defaults to
// time.Now.
func NewThrottle(interval time.Duration, delta float64, now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}
	return &Throttle{
		interval: interval,
		delta:    delta,
		now:      now,
		records:  make(map[string]throttleRecord),
	}
}

// Allow reports whether the candidate value for topic may be published
// now, recording it as the last accepted publish when it may. The first
// publish of any topic is always accepted. The interval gate applies
// first and independently; the delta gate applies only to numeric
// candidates whose previous accepted value is also finite.
func (t *Throttle) Allow(topic string, v float64, numeric bool) bool {
	now := t.now()

	if rec, ok := t.records[topic]; ok {
		if now.Sub(rec.last) < t.interval {
			return false
		}
		if numeric && rec.numeric && isFinite(v) && isFinite(rec.value) && math.Abs(v-rec.value) < t.delta {
			return false
		}
	}

	t.records[topic] = throttleRecord{last: now, value: v, numeric: numeric}
	return true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
