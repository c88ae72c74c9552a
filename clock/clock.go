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

package clock

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PPBToTimexPPM converts between ppb and the timex frequency unit.
// man clock_adjtime(2): freq is ppm with a 16-bit fractional part,
// so 65536 == 1 ppm and 65.536 == 1 ppb.
const PPBToTimexPPM = 65.536

// timex mode bits from linux/timex.h, the subset this package sets.
const (
	AdjFrequency uint32 = 0x0002
	AdjSetOffset uint32 = 0x0100
	AdjNano      uint32 = 0x2000
)

// Adjtime issues the CLOCK_ADJTIME syscall against clockid: it adjusts
// the clock per buf's mode bits, or reads its current parameters when
// buf has no modes set. Returns the clock state (TIME_OK etc).
func Adjtime(clockid int32, buf *unix.Timex) (state int, err error) {
	r0, _, errno := unix.Syscall(unix.SYS_CLOCK_ADJTIME, uintptr(clockid), uintptr(unsafe.Pointer(buf)), 0)
	if errno != 0 {
		return int(r0), errno
	}
	return int(r0), nil
}

// FrequencyPPB reads the clock's current frequency correction in parts
// per billion.
func FrequencyPPB(clockid int32) (freqPPB float64, state int, err error) {
	tx := &unix.Timex{}
	state, err = Adjtime(clockid, tx)
	return float64(tx.Freq) / PPBToTimexPPM, state, err
}

// AdjFreqPPB sets the clock's frequency correction, in parts per
// billion.
func AdjFreqPPB(clockid int32, freqPPB float64) (state int, err error) {
	return Adjtime(clockid, freqTimex(freqPPB))
}

// Step shifts the clock by the given offset, positive or negative, in
// a single adjustment.
func Step(clockid int32, step time.Duration) (state int, err error) {
	return Adjtime(clockid, stepTimex(step))
}

func freqTimex(freqPPB float64) *unix.Timex {
	tx := &unix.Timex{Modes: AdjFrequency}
	// setFreq is platform-split: timex carries 32-bit fields on 386
	setFreq(tx, freqPPB)
	return tx
}

func stepTimex(step time.Duration) *unix.Timex {
	sign := 1
	if step < 0 {
		sign = -1
		step = -step
	}
	tx := &unix.Timex{Modes: AdjSetOffset | AdjNano}
	sec := time.Duration(float64(sign) * (float64(step) / float64(time.Second)))
	usec := time.Duration(sign) * (step % time.Second)
	setTime(tx, sec, usec)
	// the value of a timex time is the sum of its fields, but the
	// fractional field must always be non-negative
	if tx.Time.Usec < 0 {
		tx.Time.Sec--
		tx.Time.Usec += 1000000000
	}
	return tx
}
