// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wavenode

// numChannels is the number of independent RF measurement paths the
// wattmeter reports.
const numChannels = 4

// channelMetrics caches the most recently observed forward power and SWR
// for one channel. Entries are unset until first observed and live for
// the process lifetime.
type channelMetrics struct {
	peak    float64
	avg     float64
	swr     float64
	hasPeak bool
	hasAvg  bool
	hasSWR  bool
}

// stateStore holds per-channel metric caches. It is written and read
// exclusively from the dispatch path, so it carries no locking.
type stateStore struct {
	channels [numChannels + 1]channelMetrics // 1-based indexing
}

func newStateStore() *stateStore {
	return &stateStore{}
}

func (ss *stateStore) setPeak(ch int, v float64) {
	ss.channels[ch].peak = v
	ss.channels[ch].hasPeak = true
}

func (ss *stateStore) setAvg(ch int, v float64) {
	ss.channels[ch].avg = v
	ss.channels[ch].hasAvg = true
}

func (ss *stateStore) setSWR(ch int, v float64) {
	ss.channels[ch].swr = v
	ss.channels[ch].hasSWR = true
}

func (ss *stateStore) peak(ch int) (float64, bool) {
	return ss.channels[ch].peak, ss.channels[ch].hasPeak
}

func (ss *stateStore) avg(ch int) (float64, bool) {
	return ss.channels[ch].avg, ss.channels[ch].hasAvg
}

func (ss *stateStore) swr(ch int) (float64, bool) {
	return ss.channels[ch].swr, ss.channels[ch].hasSWR
}
