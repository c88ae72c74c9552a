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

package phc

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/embeddedtime/ptpclient/clock"
)

// withDevice opens the PHC read-write (CLOCK_ADJTIME needs RW even for
// reads) and hands its dynamic clockid to fn.
func withDevice(phcDevice string, fn func(clockid int32) (int, error)) error {
	f, err := os.OpenFile(phcDevice, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("opening device %q: %w", phcDevice, err)
	}
	defer f.Close()
	state, err := fn(FDToClockID(f.Fd()))
	if err == nil && state != unix.TIME_OK {
		return fmt.Errorf("clock %q state %d is not TIME_OK", phcDevice, state)
	}
	return err
}

// FrequencyPPBFromDevice reads the PHC device's current frequency
// correction in PPB.
func FrequencyPPBFromDevice(phcDevice string) (freqPPB float64, err error) {
	err = withDevice(phcDevice, func(clockid int32) (int, error) {
		var state int
		freqPPB, state, err = clock.FrequencyPPB(clockid)
		return state, err
	})
	return freqPPB, err
}

// ClockAdjFreq sets the PHC device's frequency correction in PPB.
func ClockAdjFreq(phcDevice string, freqPPB float64) error {
	return withDevice(phcDevice, func(clockid int32) (int, error) {
		return clock.AdjFreqPPB(clockid, freqPPB)
	})
}

// ClockStep steps the PHC device by the given offset.
func ClockStep(phcDevice string, step time.Duration) error {
	return withDevice(phcDevice, func(clockid int32) (int, error) {
		return clock.Step(clockid, step)
	})
}
