/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package sysclock adapts CLOCK_REALTIME to the client.Clock
// contract. It is the fallback used when a board has no PHC device,
// or when the kernel clock shouldn't be frequency-disciplined.
package sysclock

import (
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/embeddedtime/ptpclient/clock"
	ptp "github.com/embeddedtime/ptpclient/ptp/protocol"
)

const q32Scale = 1e9 / (1 << 32)

// Clock drives CLOCK_REALTIME directly, applying rate adjustments
// through adjtimex(2).
type Clock struct {
	// RateAdjustable controls whether AdjustRate touches the kernel
	// clock discipline; leave false to run the clock free.
	RateAdjustable bool
}

// Read implements client.Clock.
func (c *Clock) Read() (ptp.Epoch, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &ts); err != nil {
		return 0, err
	}
	return ptp.Epoch(ts.Nano()), nil
}

// Adjust implements client.Clock by stepping CLOCK_REALTIME.
func (c *Clock) Adjust(deltaNS int64) error {
	state, err := clock.Step(unix.CLOCK_REALTIME, time.Duration(deltaNS))
	if err == nil && state != unix.TIME_OK {
		log.Warningf("ptp: clock state %d is not TIME_OK after stepping", state)
	}
	return err
}

// AdjustRate implements client.Clock. When RateAdjustable is false
// this is a no-op reporting no capability; the caller's drift filter
// keeps running for diagnostics without ever touching adjtimex.
func (c *Clock) AdjustRate(driftQ32 int32) (bool, error) {
	if !c.RateAdjustable {
		return false, nil
	}
	freqPPB := float64(driftQ32) * q32Scale
	state, err := clock.AdjFreqPPB(unix.CLOCK_REALTIME, freqPPB)
	if err == nil && state != unix.TIME_OK {
		log.Warningf("ptp: clock state %d is not TIME_OK after adjusting frequency", state)
	}
	return true, err
}
