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

// Package phc reads and adjusts PTP hardware clocks exposed as Linux
// /dev/ptpN character devices: mapping a network interface to its PHC
// device, reading device time alongside system time, and stepping or
// frequency-adjusting the device through its dynamic POSIX clockid.
package phc

import (
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultMaxClockFreqPPB is the frequency-adjustment ceiling assumed
// when a device doesn't report one; the value comes from linuxptp's
// clockadj.c.
const DefaultMaxClockFreqPPB = 500000.0

// TimeMethod selects how device time is sampled.
type TimeMethod string

// Supported ways to sample a PHC device's time.
const (
	MethodSyscallClockGettime    TimeMethod = "syscall_clock_gettime"
	MethodIoctlSysOffsetExtended TimeMethod = "ioctl_PTP_SYS_OFFSET_EXTENDED"
)

// ExtendedNumProbes is how many sysoff samples a single
// PTP_SYS_OFFSET_EXTENDED ioctl gathers.
const ExtendedNumProbes = 5

// FDToClockID derives the dynamic POSIX clockid of an open PHC device
// from its file descriptor, see the FD_TO_CLOCKID macro in
// clock_gettime(3).
func FDToClockID(fd uintptr) int32 {
	return int32((int(^fd) << 3) | 3)
}

// Device is an open PHC character device.
type Device os.File

// FromFile returns the *Device corresponding to an *os.File.
func FromFile(file *os.File) *Device { return (*Device)(file) }

// File returns the underlying *os.File.
func (dev *Device) File() *os.File { return (*os.File)(dev) }

// Fd returns the underlying file descriptor.
func (dev *Device) Fd() uintptr { return dev.File().Fd() }

// ClockID returns the device's dynamic POSIX clockid.
func (dev *Device) ClockID() int32 { return FDToClockID(dev.Fd()) }

// Time samples the device through clock_gettime.
func (dev *Device) Time() (time.Time, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(dev.ClockID(), &ts); err != nil {
		return time.Time{}, fmt.Errorf("failed clock_gettime: %w", err)
	}
	return time.Unix(ts.Unix()), nil
}

func (dev *Device) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, dev.Fd(), req, uintptr(arg))
	if errno != 0 {
		return fmt.Errorf("errno %w during ioctl %d on %s", errno, req, dev.File().Name())
	}
	return nil
}

// ReadSysoffExtended gathers ExtendedNumProbes bracketed
// (sys, phc, sys) time samples in one PTP_SYS_OFFSET_EXTENDED ioctl.
func (dev *Device) ReadSysoffExtended() (*PTPSysOffsetExtended, error) {
	res := &PTPSysOffsetExtended{NSamples: ExtendedNumProbes}
	if err := dev.ioctl(ioctlPTPSysOffsetExtended, unsafe.Pointer(res)); err != nil {
		return nil, fmt.Errorf("failed PTP_SYS_OFFSET_EXTENDED: %w", err)
	}
	return res, nil
}

// MaxFreqAdjPPB reads the device's maximum supported frequency
// adjustment, in parts per billion.
func (dev *Device) MaxFreqAdjPPB() (float64, error) {
	caps := &PTPClockCaps{}
	if err := dev.ioctl(ioctlPTPClockGetcaps, unsafe.Pointer(caps)); err != nil {
		return 0, fmt.Errorf("failed PTP_CLOCK_GETCAPS: %w", err)
	}
	return caps.maxAdj(), nil
}

func ifaceInfoToPHCDevice(info *EthtoolTSinfo) (string, error) {
	if info.PHCIndex < 0 {
		return "", fmt.Errorf("interface doesn't support PHC")
	}
	return fmt.Sprintf("/dev/ptp%d", info.PHCIndex), nil
}

// IfaceToPHCDevice returns the path of the PHC device behind the given
// network interface.
func IfaceToPHCDevice(iface string) (string, error) {
	info, err := IfaceInfo(iface)
	if err != nil {
		return "", fmt.Errorf("getting interface %s info: %w", iface, err)
	}
	return ifaceInfoToPHCDevice(info)
}
