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

// Package phcdev adapts a Linux PHC character device (/dev/ptpN) to
// the client.Clock contract.
package phcdev

import (
	"fmt"
	"time"

	"github.com/embeddedtime/ptpclient/phc"
	ptp "github.com/embeddedtime/ptpclient/ptp/protocol"
)

// q32Scale converts a parts-per-2^32 drift value to the parts-per-billion
// unit phc.ClockAdjFreq expects.
const q32Scale = 1e9 / (1 << 32)

// PHC drives the PTP hardware clock exposed by a network interface's
// PHC device.
type PHC struct {
	devicePath string
}

// New maps ifaceName to its PHC device path.
func New(ifaceName string) (*PHC, error) {
	device, err := phc.IfaceToPHCDevice(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("ptp: mapping %s to a phc device: %w", ifaceName, err)
	}
	return &PHC{devicePath: device}, nil
}

// Read implements client.Clock.
func (p *PHC) Read() (ptp.Epoch, error) {
	r, err := phc.TimeAndOffsetFromDevice(p.devicePath, phc.MethodSyscallClockGettime)
	if err != nil {
		return 0, err
	}
	return ptp.Epoch(r.PHCTime.UnixNano()), nil
}

// Adjust implements client.Clock by stepping the PHC.
func (p *PHC) Adjust(deltaNS int64) error {
	return phc.ClockStep(p.devicePath, time.Duration(deltaNS))
}

// AdjustRate implements client.Clock. A PHC device always advertises
// a rate-adjust capability, so ok is unconditionally true.
func (p *PHC) AdjustRate(driftQ32 int32) (bool, error) {
	freqPPB := float64(driftQ32) * q32Scale
	if err := phc.ClockAdjFreq(p.devicePath, freqPPB); err != nil {
		return true, err
	}
	return true, nil
}
