// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wavenode_test

import (
	"math"
	"testing"
	"time"

	"github.com/n3bkv/WaveNode-to-MQTT/wavenode"
	"github.com/stretchr/testify/assert"
)

const topic = "wavenode/peak_watts/1"

func newClock(start time.Time) (*time.Time, func() time.Time) {
	now := start
	return &now, func() time.Time { return now }
}

func TestThrottleIntervalAndDelta(t *testing.T) {
	start := time.Unix(1700000000, 0)
	now, clock := newClock(start)
	th := wavenode.NewThrottle(200*time.Millisecond, 0.1, clock)

	// t=0: first publish is always accepted.
	assert.True(t, th.Allow(topic, 100.0, true), "first publish must be accepted")

	// t=50ms: rejected by the interval gate.
	*now = start.Add(50 * time.Millisecond)
	assert.False(t, th.Allow(topic, 100.05, true), "publish within interval must be rejected")

	// t=250ms: past the interval but within delta of the last accepted
	// value; the delta gate still applies.
	*now = start.Add(250 * time.Millisecond)
	assert.False(t, th.Allow(topic, 100.05, true), "publish within delta must be rejected")

	// t=260ms: past both gates.
	*now = start.Add(260 * time.Millisecond)
	assert.True(t, th.Allow(topic, 100.2, true), "publish past interval and delta must be accepted")
}

func TestThrottleRecordsOnlyAcceptedValues(t *testing.T) {
	start := time.Unix(1700000000, 0)
	now, clock := newClock(start)
	th := wavenode.NewThrottle(100*time.Millisecond, 1.0, clock)

	assert.True(t, th.Allow(topic, 10.0, true))

	// Rejected values must not move the delta baseline.
	*now = start.Add(150 * time.Millisecond)
	assert.False(t, th.Allow(topic, 10.5, true))
	*now = start.Add(300 * time.Millisecond)
	assert.False(t, th.Allow(topic, 10.9, true))
	*now = start.Add(450 * time.Millisecond)
	assert.True(t, th.Allow(topic, 11.0, true), "value a full delta from the accepted baseline must pass")
}

func TestThrottleNonNumeric(t *testing.T) {
	start := time.Unix(1700000000, 0)
	now, clock := newClock(start)
	th := wavenode.NewThrottle(200*time.Millisecond, 0.1, clock)

	assert.True(t, th.Allow("wavenode/aux/1", 0, false))

	*now = start.Add(100 * time.Millisecond)
	assert.False(t, th.Allow("wavenode/aux/1", 0, false), "non-numeric publish within interval must be rejected")

	// Repeated identical values are accepted once the interval elapses;
	// no delta concept applies.
	*now = start.Add(250 * time.Millisecond)
	assert.True(t, th.Allow("wavenode/aux/1", 0, false), "identical non-numeric value past interval must be accepted")
}

func TestThrottleNonFiniteSkipsDelta(t *testing.T) {
	start := time.Unix(1700000000, 0)
	now, clock := newClock(start)
	th := wavenode.NewThrottle(100*time.Millisecond, 10.0, clock)

	assert.True(t, th.Allow(topic, 5.0, true))

	// NaN is not comparable; only the interval gate applies.
	*now = start.Add(150 * time.Millisecond)
	assert.True(t, th.Allow(topic, math.NaN(), true), "NaN candidate past interval must not be delta-rejected")
}

func TestThrottleIndependentTopics(t *testing.T) {
	_, clock := newClock(time.Unix(1700000000, 0))
	th := wavenode.NewThrottle(time.Hour, 100, clock)

	assert.True(t, th.Allow("wavenode/swr1", 1.5, true))
	assert.True(t, th.Allow("wavenode/swr2", 1.5, true), "throttle records must be per topic")
	assert.False(t, th.Allow("wavenode/swr1", 1.5, true))
}
