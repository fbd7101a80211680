// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wavenode

import (
	"math"
	"strconv"
)

// Kind identifies a sample type reported by the WaveNode protocol.
type Kind uint32

// Report kinds, in device report order. The wattmeter reports forward
// power and SWR per measurement channel, DC bus readings, auxiliary
// switch states and rotator state, plus a couple of debug reports.
const (
	KindPeakWattsCh1 Kind = iota + 1
	KindPeakWattsCh2
	KindPeakWattsCh3
	KindPeakWattsCh4
	KindAvgWattsCh1
	KindAvgWattsCh2
	KindAvgWattsCh3
	KindAvgWattsCh4
	KindSWRCh1
	KindSWRCh2
	KindSWRCh3
	KindSWRCh4
	KindDCVolts
	KindDCAmps
	KindAux1
	KindAux2
	KindRotatorHeading1
	KindRotatorHeading2
	KindRotatorDestHeading
	KindRotatorInMotion1
	KindRotatorInMotion2
	KindTestFloat
	KindDeviceHandle
)

// Frame is a raw protocol message as delivered by the inbound transport.
type Frame struct {
	Kind    Kind
	Payload uint32
}

type valueClass uint8

const (
	classFloat valueClass = iota
	classBool
	classHandle
)

type metricRole uint8

const (
	roleNone metricRole = iota
	rolePeak
	roleAvg
	roleSWR
)

type kindInfo struct {
	suffix  string
	class   valueClass
	role    metricRole
	channel int
	fast    bool
}

// kindTable associates every recognized kind with its topic suffix and
// decode class. Built once at startup, immutable thereafter; adding a
// kind means adding a table row, dispatch logic stays untouched.
var kindTable = newKindTable()

func newKindTable() map[Kind]kindInfo {
	t := make(map[Kind]kindInfo)

	for ch := 1; ch <= numChannels; ch++ {
		k := Kind(ch - 1)
		t[KindPeakWattsCh1+k] = kindInfo{suffix: peakWattsSuffix(ch), class: classFloat, role: rolePeak, channel: ch, fast: true}
		t[KindAvgWattsCh1+k] = kindInfo{suffix: avgWattsSuffix(ch), class: classFloat, role: roleAvg, channel: ch, fast: true}
		t[KindSWRCh1+k] = kindInfo{suffix: swrSuffix(ch), class: classFloat, role: roleSWR, channel: ch}
	}

	t[KindDCVolts] = kindInfo{suffix: "dc/volts", class: classFloat}
	t[KindDCAmps] = kindInfo{suffix: "dc/amps", class: classFloat}
	t[KindAux1] = kindInfo{suffix: "aux/1", class: classBool}
	t[KindAux2] = kindInfo{suffix: "aux/2", class: classBool}
	t[KindRotatorHeading1] = kindInfo{suffix: "rotator/heading/1", class: classFloat}
	t[KindRotatorHeading2] = kindInfo{suffix: "rotator/heading/2", class: classFloat}
	t[KindRotatorDestHeading] = kindInfo{suffix: "rotator/destination_heading", class: classFloat}
	t[KindRotatorInMotion1] = kindInfo{suffix: "rotator/in_motion/1", class: classBool}
	t[KindRotatorInMotion2] = kindInfo{suffix: "rotator/in_motion/2", class: classBool}
	t[KindTestFloat] = kindInfo{suffix: "debug/test_float", class: classFloat}
	t[KindDeviceHandle] = kindInfo{suffix: "debug/wavenode_hwnd", class: classHandle}

	return t
}

// Sample is a decoded telemetry value. Samples are produced once per
// incoming frame, consumed immediately and never persisted.
type Sample struct {
	Kind  Kind
	Known bool
	Float float64 // numeric interpretation, set for float and unknown kinds
	Text  string  // wire rendering
}

// Decode interprets a raw (kind, payload) pair. Decoding is total over
// the 32-bit input space: malformed payloads surface as degenerate
// floats (NaN) which downstream stages filter, never as errors.
func Decode(kind Kind, payload uint32) Sample {
	info, ok := kindTable[kind]
	if !ok {
		v := float64(math.Float32frombits(payload))
		return Sample{Kind: kind, Float: v, Text: FormatValue(v)}
	}

	s := Sample{Kind: kind, Known: true}
	switch info.class {
	case classFloat:
		s.Float = float64(math.Float32frombits(payload))
		s.Text = FormatValue(s.Float)
	case classBool:
		if int32(payload) != 0 {
			s.Text = "1"
		} else {
			s.Text = "0"
		}
	case classHandle:
		s.Text = strconv.FormatUint(uint64(payload), 10)
	}

	return s
}

// FormatValue renders a numeric value as decimal text with at most three
// decimal places, trailing zeros trimmed.
func FormatValue(v float64) string {
	return formatFloat(v, 3)
}

// FormatReturnLoss renders return loss with at most two decimal places;
// a perfect match renders as the literal "inf".
func FormatReturnLoss(v float64) string {
	return formatFloat(v, 2)
}

func formatFloat(v float64, places int) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	pow := math.Pow(10, float64(places))
	return strconv.FormatFloat(math.Round(v*pow)/pow, 'f', -1, 64)
}
