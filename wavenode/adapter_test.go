// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wavenode_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/n3bkv/WaveNode-to-MQTT/pkg/errors"
	"github.com/n3bkv/WaveNode-to-MQTT/wavenode"
	"github.com/n3bkv/WaveNode-to-MQTT/wavenode/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(retain bool) (wavenode.Service, *mocks.Publisher) {
	pub := mocks.NewPublisher()
	throttle := wavenode.NewThrottle(0, 0, nil)
	return wavenode.New(pub, throttle, "wavenode", retain), pub
}

func floatFrame(kind wavenode.Kind, v float32) wavenode.Frame {
	return wavenode.Frame{Kind: kind, Payload: math.Float32bits(v)}
}

func topics(msgs []mocks.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Topic)
	}
	return out
}

func TestDispatchDirectTopics(t *testing.T) {
	cases := []struct {
		desc    string
		frame   wavenode.Frame
		topic   string
		payload string
	}{
		{
			desc:    "peak power channel 2",
			frame:   floatFrame(wavenode.KindPeakWattsCh2, 250.5),
			topic:   "wavenode/peak_watts/2",
			payload: "250.5",
		},
		{
			desc:    "average power channel 4",
			frame:   floatFrame(wavenode.KindAvgWattsCh4, 99.25),
			topic:   "wavenode/avg_watts/4",
			payload: "99.25",
		},
		{
			desc:    "DC bus voltage",
			frame:   floatFrame(wavenode.KindDCVolts, 13.8),
			topic:   "wavenode/dc/volts",
			payload: "13.8",
		},
		{
			desc:    "DC bus current",
			frame:   floatFrame(wavenode.KindDCAmps, 4.2),
			topic:   "wavenode/dc/amps",
			payload: "4.2",
		},
		{
			desc:    "aux switch on",
			frame:   wavenode.Frame{Kind: wavenode.KindAux2, Payload: 1},
			topic:   "wavenode/aux/2",
			payload: "1",
		},
		{
			desc:    "rotator heading",
			frame:   floatFrame(wavenode.KindRotatorHeading1, 182.5),
			topic:   "wavenode/rotator/heading/1",
			payload: "182.5",
		},
		{
			desc:    "rotator destination heading",
			frame:   floatFrame(wavenode.KindRotatorDestHeading, 270),
			topic:   "wavenode/rotator/destination_heading",
			payload: "270",
		},
		{
			desc:    "rotator in motion",
			frame:   wavenode.Frame{Kind: wavenode.KindRotatorInMotion1, Payload: 1},
			topic:   "wavenode/rotator/in_motion/1",
			payload: "1",
		},
		{
			desc:    "device handle report",
			frame:   wavenode.Frame{Kind: wavenode.KindDeviceHandle, Payload: 0x000A1B2C},
			topic:   "wavenode/debug/wavenode_hwnd",
			payload: "662316",
		},
	}

	for _, tc := range cases {
		svc, pub := newService(false)
		err := svc.Dispatch(context.Background(), tc.frame)
		require.Nil(t, err, fmt.Sprintf("%s: unexpected error %s", tc.desc, err))

		msgs := pub.Messages()
		require.Len(t, msgs, 1, fmt.Sprintf("%s: expected exactly one publish", tc.desc))
		assert.Equal(t, tc.topic, msgs[0].Topic, fmt.Sprintf("%s: expected topic %s got %s", tc.desc, tc.topic, msgs[0].Topic))
		assert.Equal(t, tc.payload, msgs[0].Payload, fmt.Sprintf("%s: expected payload %s got %s", tc.desc, tc.payload, msgs[0].Payload))
	}
}

func TestDispatchUnknownKind(t *testing.T) {
	svc, pub := newService(false)

	err := svc.Dispatch(context.Background(), floatFrame(77, 3.14))
	require.Nil(t, err)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "wavenode/unknown/77", msgs[0].Topic)
	assert.Equal(t, "3.14", msgs[0].Payload)
}

func TestDispatchDerivedGate(t *testing.T) {
	svc, pub := newService(false)
	ctx := context.Background()

	// Forward power alone must not produce derived metrics.
	require.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindPeakWattsCh1, 100)))
	assert.Equal(t, []string{"wavenode/peak_watts/1"}, topics(pub.Messages()),
		"no derived metrics before SWR is observed")

	// SWR arriving completes the pair; the avg variant is still unseen.
	pub.Reset()
	require.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindSWRCh1, 2)))
	assert.Equal(t, []string{
		"wavenode/swr1",
		"wavenode/ref_watts/peak/1",
		"wavenode/return_loss/1",
	}, topics(pub.Messages()))

	// Derived state is per channel: channel 2 starts from scratch.
	pub.Reset()
	require.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindSWRCh2, 2)))
	assert.Equal(t, []string{"wavenode/swr2"}, topics(pub.Messages()),
		"channel 2 has no forward power cached")
}

func TestDispatchDerivedValues(t *testing.T) {
	svc, pub := newService(false)
	ctx := context.Background()

	require.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindSWRCh3, 2)))
	pub.Reset()
	require.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindPeakWattsCh3, 100)))

	msgs := pub.Messages()
	require.Len(t, msgs, 3)

	// Γ = 1/3: reflected = 100/9, return loss = -20·log10(1/3).
	assert.Equal(t, "wavenode/ref_watts/peak/3", msgs[1].Topic)
	assert.Equal(t, "11.111", msgs[1].Payload)
	assert.Equal(t, "wavenode/return_loss/3", msgs[2].Topic)
	assert.Equal(t, "9.54", msgs[2].Payload)
}

func TestDispatchPerfectMatch(t *testing.T) {
	svc, pub := newService(false)
	ctx := context.Background()

	require.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindAvgWattsCh1, 50)))
	pub.Reset()
	require.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindSWRCh1, 1)))

	msgs := pub.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "wavenode/ref_watts/avg/1", msgs[1].Topic)
	assert.Equal(t, "0", msgs[1].Payload, "perfect match reflects no power")
	assert.Equal(t, "wavenode/return_loss/1", msgs[2].Topic)
	assert.Equal(t, "inf", msgs[2].Payload, "perfect match has infinite return loss")
}

func TestDispatchSWRUpdatesBothVariants(t *testing.T) {
	svc, pub := newService(false)
	ctx := context.Background()

	require.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindPeakWattsCh1, 100)))
	require.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindAvgWattsCh1, 80)))
	pub.Reset()

	// One SWR update recomputes both cached forward-power variants.
	require.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindSWRCh1, 1.5)))
	assert.Equal(t, []string{
		"wavenode/swr1",
		"wavenode/ref_watts/peak/1",
		"wavenode/return_loss/1",
		"wavenode/ref_watts/avg/1",
		"wavenode/return_loss/1",
	}, topics(pub.Messages()))
}

func TestDispatchSkipsDegenerateInputs(t *testing.T) {
	cases := []struct {
		desc  string
		power float32
		swr   float32
	}{
		{desc: "zero forward power", power: 0, swr: 1.5},
		{desc: "negative forward power", power: -10, swr: 1.5},
		{desc: "zero SWR", power: 100, swr: 0},
		{desc: "negative SWR", power: 100, swr: -2},
		{desc: "NaN SWR", power: 100, swr: float32(math.NaN())},
	}

	for _, tc := range cases {
		svc, pub := newService(false)
		ctx := context.Background()

		assert.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindPeakWattsCh1, tc.power)))
		assert.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindSWRCh1, tc.swr)))

		for _, topic := range topics(pub.Messages()) {
			assert.NotContains(t, topic, "ref_watts", fmt.Sprintf("%s: derived metrics must be skipped", tc.desc))
			assert.NotContains(t, topic, "return_loss", fmt.Sprintf("%s: derived metrics must be skipped", tc.desc))
		}
	}
}

func TestRetainPolicy(t *testing.T) {
	svc, pub := newService(true)
	ctx := context.Background()

	require.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindDCVolts, 13.8)))
	require.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindPeakWattsCh1, 100)))
	require.Nil(t, svc.Dispatch(ctx, floatFrame(wavenode.KindSWRCh1, 2)))

	retained := map[string]bool{}
	for _, m := range pub.Messages() {
		retained[m.Topic] = m.Retain
	}

	assert.True(t, retained["wavenode/dc/volts"], "dc/volts follows the global retain flag")
	assert.True(t, retained["wavenode/swr1"], "swr follows the global retain flag")
	assert.True(t, retained["wavenode/return_loss/1"], "return loss follows the global retain flag")
	assert.False(t, retained["wavenode/peak_watts/1"], "instantaneous forward power is never retained")
	assert.False(t, retained["wavenode/ref_watts/peak/1"], "derived reflected power is never retained")
}

func TestDispatchPublishError(t *testing.T) {
	svc, pub := newService(false)
	pub.SetError(errors.ErrPublish)

	err := svc.Dispatch(context.Background(), floatFrame(wavenode.KindDCVolts, 13.8))
	assert.True(t, errors.Contains(err, wavenode.ErrPublish),
		fmt.Sprintf("expected %s to contain %s", err, wavenode.ErrPublish))
}
