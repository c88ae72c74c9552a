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
)

// SysoffResult is one measurement of PHC time against system time.
type SysoffResult struct {
	Offset  time.Duration
	Delay   time.Duration
	SysTime time.Time
	PHCTime time.Time
}

// based on calculate_offset from ptp4l phc_ctl.c: the PHC read rt is
// bracketed by the two system reads ts1/ts2, so system time at the
// moment of the PHC read is estimated as the interval midpoint.
func sysoffEstimateBasic(ts1, rt, ts2 time.Time) SysoffResult {
	interval := ts2.Sub(ts1)
	return SysoffResult{
		SysTime: ts1.Add(interval / 2),
		PHCTime: rt,
		Delay:   interval,
		Offset:  ts2.Sub(rt) - interval/2,
	}
}

// loosely based on sysoff_estimate from ptp4l sysoff.c: of all bracketed
// samples, the one with the shortest bracket bounds the error tightest.
func sysoffEstimateExtended(extended *PTPSysOffsetExtended) SysoffResult {
	best := SysoffResult{Delay: time.Duration(1<<63 - 1)}
	for i := 0; i < int(extended.NSamples); i++ {
		t1 := extended.TS[i][0].Time()
		tp := extended.TS[i][1].Time()
		t2 := extended.TS[i][2].Time()
		interval := t2.Sub(t1)
		if interval >= best.Delay {
			continue
		}
		sysTime := t1.Add(interval / 2)
		best = SysoffResult{
			SysTime: sysTime,
			PHCTime: tp,
			Delay:   interval,
			Offset:  sysTime.Sub(tp),
		}
	}
	return best
}

// TimeAndOffsetFromDevice samples the PHC device's time together with
// an estimate of its offset from the system clock.
func TimeAndOffsetFromDevice(phcDevice string, method TimeMethod) (SysoffResult, error) {
	f, err := os.Open(phcDevice)
	if err != nil {
		return SysoffResult{}, err
	}
	defer f.Close()
	dev := FromFile(f)

	switch method {
	case MethodSyscallClockGettime:
		var ts unix.Timespec
		ts1 := time.Now()
		err = unix.ClockGettime(dev.ClockID(), &ts)
		ts2 := time.Now()
		if err != nil {
			return SysoffResult{}, fmt.Errorf("failed clock_gettime: %w", err)
		}
		return sysoffEstimateBasic(ts1, time.Unix(ts.Unix()), ts2), nil
	case MethodIoctlSysOffsetExtended:
		extended, err := dev.ReadSysoffExtended()
		if err != nil {
			return SysoffResult{}, err
		}
		return sysoffEstimateExtended(extended), nil
	}
	return SysoffResult{}, fmt.Errorf("unknown method to get PHC time %q", method)
}
