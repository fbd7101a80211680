// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package wavenode

import "fmt"

// File topics.go contains the topic suffix catalogue shared between the
// decode table and the derived-metric engine. Every fully-qualified
// topic is {prefix}/{suffix}; no two (kind, channel) pairs collide.

func peakWattsSuffix(ch int) string {
	return fmt.Sprintf("peak_watts/%d", ch)
}

func avgWattsSuffix(ch int) string {
	return fmt.Sprintf("avg_watts/%d", ch)
}

func swrSuffix(ch int) string {
	return fmt.Sprintf("swr%d", ch)
}

func refWattsSuffix(variant string, ch int) string {
	return fmt.Sprintf("ref_watts/%s/%d", variant, ch)
}

func returnLossSuffix(ch int) string {
	return fmt.Sprintf("return_loss/%d", ch)
}

func unknownSuffix(kind Kind) string {
	return fmt.Sprintf("unknown/%d", kind)
}
