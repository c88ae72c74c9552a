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

package timestamp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// unix.Cmsghdr size differs between platforms
var cmsgHeaderSize = binary.Size(unix.Cmsghdr{})

var timestamping = unix.SO_TIMESTAMPING_NEW

var errNoTimestamp = errors.New("failed to find timestamp in socket control message")

func init() {
	// kernels older than 5 don't know SO_TIMESTAMPING_NEW
	var uname unix.Utsname
	if err := unix.Uname(&uname); err == nil {
		if uname.Release[0] < '5' {
			timestamping = unix.SO_TIMESTAMPING
		}
	}
}

// timespecToTime reads a __kernel_timespec from linux/time_types.h:
// two native-endian int64s regardless of platform word size, which is
// why unix.Timespec (32-bit fields on 386) can't be used here.
func timespecToTime(data []byte) time.Time {
	sec := *(*int64)(unsafe.Pointer(&data[0]))
	nsec := *(*int64)(unsafe.Pointer(&data[8]))
	return time.Unix(sec, nsec)
}

// scmDataToTime picks the timestamp out of an SCM_TIMESTAMPING
// payload, which carries three timespec slots: software in slot 0,
// hardware in slot 2. Hardware wins when present. Zero timestamps are
// compared via UnixNano because time.Unix(0, 0).IsZero() is false.
func scmDataToTime(data []byte) (time.Time, error) {
	const slot = 16 // one __kernel_timespec
	ts := timespecToTime(data[2*slot : 3*slot])
	if ts.UnixNano() != 0 {
		return ts, nil
	}
	ts = timespecToTime(data[0:slot])
	if ts.UnixNano() == 0 {
		return ts, fmt.Errorf("got zero timestamp")
	}
	return ts, nil
}

// scmTimestamp walks the control messages in b[:n] and returns the
// first SCM_TIMESTAMPING payload. Trimmed-down counterpart of
// syscall.ParseSocketControlMessage that stops at the one message type
// this package cares about.
func scmTimestamp(b []byte, n int) (time.Time, error) {
	mlen := 0
	for i := 0; i < n; i += unix.CmsgSpace(mlen - unix.SizeofCmsghdr) {
		h := (*unix.Cmsghdr)(unsafe.Pointer(&b[i]))
		mlen = int(h.Len)
		if mlen == 0 {
			break
		}
		// a kernel asked for SO_TIMESTAMPING_NEW may still answer with
		// plain SO_TIMESTAMPING messages
		if h.Level == unix.SOL_SOCKET && (int(h.Type) == unix.SO_TIMESTAMPING_NEW || int(h.Type) == unix.SO_TIMESTAMPING) {
			return scmDataToTime(b[i+cmsgHeaderSize : i+mlen])
		}
	}
	return time.Time{}, errNoTimestamp
}

// hwRXFilter returns the most specific PTP RX filter the NIC supports,
// or an error when the hardware can't timestamp at all.
func hwRXFilter(fd int, ifname string) (int32, error) {
	info, err := unix.IoctlGetEthtoolTsInfo(fd, ifname)
	if err != nil {
		return 0, fmt.Errorf("failed to run ioctl SIOCETHTOOL to see what is supported: %w", err)
	}
	if info.Tx_types&(1<<unix.HWTSTAMP_TX_ON) == 0 {
		return 0, fmt.Errorf("hardware TX timestamping is not supported for the interface %s", ifname)
	}
	switch {
	case info.Rx_filters&(1<<unix.HWTSTAMP_FILTER_PTP_V2_L4_EVENT) != 0:
		return unix.HWTSTAMP_FILTER_PTP_V2_L4_EVENT, nil
	case info.Rx_filters&(1<<unix.HWTSTAMP_FILTER_PTP_V2_EVENT) != 0:
		return unix.HWTSTAMP_FILTER_PTP_V2_EVENT, nil
	case info.Rx_filters&(1<<unix.HWTSTAMP_FILTER_ALL) != 0:
		return unix.HWTSTAMP_FILTER_ALL, nil
	}
	return 0, fmt.Errorf("hardware RX timestamping is not supported for the interface %s", ifname)
}

// configureHWTimestamps points the NIC's timestamping engine at PTP
// traffic, unless it is already set up that way.
func configureHWTimestamps(fd int, ifname string, rxFilter int32) error {
	cfg, err := unix.IoctlGetHwTstamp(fd, ifname)
	if errors.Is(err, unix.ENOTSUP) {
		// the loopback interface
		cfg = &unix.HwTstampConfig{}
	} else if err != nil {
		return fmt.Errorf("failed to run ioctl SIOCGHWTSTAMP to see what is enabled: %w", err)
	}
	if cfg.Tx_type == unix.HWTSTAMP_TX_ON && cfg.Rx_filter == rxFilter {
		return nil
	}
	cfg.Tx_type = unix.HWTSTAMP_TX_ON
	cfg.Rx_filter = rxFilter
	if err := unix.IoctlSetHwTstamp(fd, ifname, cfg); err != nil {
		return fmt.Errorf("failed to run ioctl SIOCSHWTSTAMP to set timestamps enabled: %w", err)
	}
	return nil
}

// EnableSWTimestamps enables software TX and RX timestamps on the
// socket. OPT_TSONLY makes the kernel deliver the TX timestamp next to
// an empty packet instead of echoing the original payload.
func EnableSWTimestamps(connFd int) error {
	flags := unix.SOF_TIMESTAMPING_TX_SOFTWARE |
		unix.SOF_TIMESTAMPING_RX_SOFTWARE |
		unix.SOF_TIMESTAMPING_SOFTWARE |
		unix.SOF_TIMESTAMPING_OPT_TSONLY
	if err := unix.SetsockoptInt(connFd, unix.SOL_SOCKET, timestamping, flags); err != nil {
		return err
	}
	return unix.SetsockoptInt(connFd, unix.SOL_SOCKET, unix.SO_SELECT_ERR_QUEUE, 1)
}

// EnableHWTimestamps enables hardware TX and RX timestamps on the
// socket, configuring the NIC first.
func EnableHWTimestamps(connFd int, iface *net.Interface) error {
	rxFilter, err := hwRXFilter(connFd, iface.Name)
	if err != nil {
		return err
	}
	if err := configureHWTimestamps(connFd, iface.Name, rxFilter); err != nil {
		return err
	}

	flags := unix.SOF_TIMESTAMPING_TX_HARDWARE |
		unix.SOF_TIMESTAMPING_RX_HARDWARE |
		unix.SOF_TIMESTAMPING_RAW_HARDWARE |
		unix.SOF_TIMESTAMPING_OPT_TSONLY
	if err := unix.SetsockoptInt(connFd, unix.SOL_SOCKET, timestamping, flags); err != nil {
		return err
	}
	return unix.SetsockoptInt(connFd, unix.SOL_SOCKET, unix.SO_SELECT_ERR_QUEUE, 1)
}

// ReadPacketWithRXTimestamp returns the next packet along with its RX
// timestamp.
func ReadPacketWithRXTimestamp(connFd int) ([]byte, unix.Sockaddr, time.Time, error) {
	buf := make([]byte, PayloadSizeBytes)
	oob := make([]byte, ControlSizeBytes)
	n, sa, ts, err := ReadPacketWithRXTimestampBuf(connFd, buf, oob)
	return buf[:n], sa, ts, err
}

// ReadPacketWithRXTimestampBuf reads one packet into buf and parses
// its RX timestamp from the control messages written to oob. Both
// buffers can be reused after it returns.
func ReadPacketWithRXTimestampBuf(connFd int, buf, oob []byte) (int, unix.Sockaddr, time.Time, error) {
	n, oobn, _, saddr, err := unix.Recvmsg(connFd, buf, oob, 0)
	if err != nil {
		return 0, nil, time.Time{}, fmt.Errorf("failed to read timestamp: %w", err)
	}
	ts, err := scmTimestamp(oob, oobn)
	return n, saddr, ts, err
}

// pollTXTS waits for the error queue to signal a pending TX timestamp.
func pollTXTS(connFd int) error {
	fds := []unix.PollFd{{Fd: int32(connFd), Events: unix.POLLERR}}
	for {
		n, err := unix.Poll(fds, int(TimeoutTXTS.Milliseconds()))
		if !errors.Is(err, syscall.EINTR) {
			return err
		}
		if n == 0 {
			return syscall.ETIMEDOUT
		}
	}
}

// recvErrqueueControl reads only the control messages from the
// socket's error queue; the payload echo is not requested (OPT_TSONLY)
// and not wanted.
func recvErrqueueControl(connFd int, oob []byte) (int, error) {
	var msg unix.Msghdr
	msg.Control = &oob[0]
	msg.SetControllen(len(oob))
	_, _, errno := unix.Syscall(unix.SYS_RECVMSG, uintptr(connFd), uintptr(unsafe.Pointer(&msg)), uintptr(unix.MSG_ERRQUEUE))
	if errno != 0 {
		return 0, errno
	}
	return int(msg.Controllen), nil
}

// ReadTXtimestampBuf drains the error queue and returns the newest TX
// timestamp found. The queue must be emptied completely, otherwise a
// stale timestamp pairs with the next packet sent. Both buffers can be
// reused after it returns.
func ReadTXtimestampBuf(connFd int, oob, toob []byte) (time.Time, int, error) {
	var oobn int
	found := false
	start := time.Now()
	attempts := 0
	for ; attempts < AttemptsTXTS; attempts++ {
		if !found {
			_ = pollTXTS(connFd)
		}
		n, err := recvErrqueueControl(connFd, toob)
		if err != nil {
			if found {
				// queue drained after a valid timestamp
				break
			}
			continue
		}
		found = true
		oobn = n
		copy(oob, toob)
	}
	if !found {
		return time.Time{}, attempts, fmt.Errorf("no TX timestamp found after %d tries (%d ms)", AttemptsTXTS, time.Since(start).Milliseconds())
	}
	ts, err := scmTimestamp(oob, oobn)
	return ts, attempts, err
}

// ReadTXtimestamp returns the TX timestamp of the packet just sent on
// connFd.
func ReadTXtimestamp(connFd int) (time.Time, int, error) {
	oob := make([]byte, ControlSizeBytes)
	toob := make([]byte, ControlSizeBytes)
	return ReadTXtimestampBuf(connFd, oob, toob)
}
