// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package wavenode contains the core of the WaveNode telemetry bridge:
// frame decoding, per-channel derived-metric state, publish throttling
// and dispatch towards the MQTT broker.
package wavenode

import (
	"context"

	"github.com/n3bkv/WaveNode-to-MQTT/pkg/errors"
	"github.com/n3bkv/WaveNode-to-MQTT/pkg/messaging"
)

// ErrPublish indicates that forwarding a decoded sample to the broker
// failed. Dispatch continues; the payload is dropped.
var ErrPublish = errors.New("failed to publish decoded sample")

// Service specifies an API that must be fullfiled by the domain service
// implementation, and all of its decorators (e.g. logging & metrics).
type Service interface {
	// Dispatch decodes a raw telemetry frame and forwards the direct and
	// derived values to the broker, each subject to the publish throttle.
	// Frames must be dispatched one at a time, in arrival order.
	Dispatch(ctx context.Context, frame Frame) error
}

var _ Service = (*adapterService)(nil)

type adapterService struct {
	publisher messaging.Publisher
	throttle  *Throttle
	state     *stateStore
	prefix    string
	retain    bool
}

// New instantiates the WaveNode bridge implementation. The prefix is the
// base topic prefix; retain is the global retain flag, overridden to
// false for fast-changing topics.
func New(publisher messaging.Publisher, throttle *Throttle, prefix string, retain bool) Service {
	return &adapterService{
		publisher: publisher,
		throttle:  throttle,
		state:     newStateStore(),
		prefix:    prefix,
		retain:    retain,
	}
}

func (as *adapterService) Dispatch(ctx context.Context, frame Frame) error {
	sample := Decode(frame.Kind, frame.Payload)

	if !sample.Known {
		// Unrecognized kinds are not an error; they go to a catch-all
		// topic with the numeric decode for observability.
		return as.publish(ctx, unknownSuffix(frame.Kind), sample.Float, sample.Text, true, false)
	}

	info := kindTable[frame.Kind]

	err := as.publish(ctx, info.suffix, sample.Float, sample.Text, info.class == classFloat, info.fast)

	switch info.role {
	case rolePeak:
		as.state.setPeak(info.channel, sample.Float)
		err = firstErr(err, as.deriveAndPublish(ctx, info.channel, variantPeak))
	case roleAvg:
		as.state.setAvg(info.channel, sample.Float)
		err = firstErr(err, as.deriveAndPublish(ctx, info.channel, variantAvg))
	case roleSWR:
		as.state.setSWR(info.channel, sample.Float)
		// A single SWR update recomputes both forward-power variants.
		err = firstErr(err, as.deriveAndPublish(ctx, info.channel, variantPeak))
		err = firstErr(err, as.deriveAndPublish(ctx, info.channel, variantAvg))
	}

	return err
}

// deriveAndPublish recomputes the reflected metrics for one channel and
// forward-power variant. Nothing is published until both a forward-power
// and an SWR sample have been observed for the channel.
func (as *adapterService) deriveAndPublish(ctx context.Context, ch int, variant string) error {
	s, ok := as.state.swr(ch)
	if !ok {
		return nil
	}

	var p float64
	switch variant {
	case variantPeak:
		p, ok = as.state.peak(ch)
	case variantAvg:
		p, ok = as.state.avg(ch)
	}
	if !ok {
		return nil
	}

	var err error
	for _, d := range deriveReflected(ch, variant, p, s) {
		err = firstErr(err, as.publish(ctx, d.suffix, d.value, d.text, true, d.fast))
	}
	return err
}

func (as *adapterService) publish(ctx context.Context, suffix string, v float64, text string, numeric, fast bool) error {
	topic := as.prefix + "/" + suffix
	if !as.throttle.Allow(topic, v, numeric) {
		return nil
	}

	retain := as.retain && !fast
	if err := as.publisher.Publish(ctx, topic, text, retain); err != nil {
		return errors.Wrap(ErrPublish, err)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
