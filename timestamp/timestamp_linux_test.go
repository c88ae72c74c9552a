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
	"net"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/embeddedtime/ptpclient/hostendian"
)

// fakeSCMTimestamping lays out one SCM_TIMESTAMPING control message
// the way the kernel would: a Cmsghdr followed by three
// __kernel_timespec slots (software, legacy, hardware).
func fakeSCMTimestamping(t *testing.T, swT, hwT time.Time) ([]byte, int) {
	t.Helper()
	const dataLen = 3 * 16
	oob := make([]byte, unix.CmsgSpace(dataLen))
	h := (*unix.Cmsghdr)(unsafe.Pointer(&oob[0]))
	h.Level = unix.SOL_SOCKET
	h.Type = int32(timestamping)
	h.SetLen(unix.CmsgLen(dataLen))

	data := oob[cmsgHeaderSize:]
	off := 0
	for _, ts := range []time.Time{swT, {}, hwT} {
		sec, nsec := int64(0), int64(0)
		if !ts.IsZero() {
			sec = ts.Unix()
			nsec = int64(ts.Nanosecond())
		}
		hostendian.Order.PutUint64(data[off:], uint64(sec))
		hostendian.Order.PutUint64(data[off+8:], uint64(nsec))
		off += 16
	}
	return oob, unix.CmsgLen(dataLen)
}

func TestScmTimestampPrefersHardware(t *testing.T) {
	sw := time.Unix(1667818190, 552297411)
	hw := time.Unix(1667818190, 552297522)
	oob, n := fakeSCMTimestamping(t, sw, hw)

	got, err := scmTimestamp(oob, n)
	require.NoError(t, err)
	require.Equal(t, hw.UnixNano(), got.UnixNano())
}

func TestScmTimestampFallsBackToSoftware(t *testing.T) {
	sw := time.Unix(1667818190, 552297411)
	oob, n := fakeSCMTimestamping(t, sw, time.Time{})

	got, err := scmTimestamp(oob, n)
	require.NoError(t, err)
	require.Equal(t, sw.UnixNano(), got.UnixNano())
}

func TestScmTimestampAllZero(t *testing.T) {
	oob, n := fakeSCMTimestamping(t, time.Time{}, time.Time{})
	_, err := scmTimestamp(oob, n)
	require.Error(t, err)
}

func TestScmTimestampNoControlMessages(t *testing.T) {
	oob := make([]byte, ControlSizeBytes)
	_, err := scmTimestamp(oob, 0)
	require.ErrorIs(t, err, errNoTimestamp)
}

func TestEnableSWTimestamps(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	defer conn.Close()
	fd, err := ConnFd(conn)
	require.NoError(t, err)

	require.NoError(t, EnableSWTimestamps(fd))

	flags, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, timestamping)
	require.NoError(t, err)
	want := unix.SOF_TIMESTAMPING_TX_SOFTWARE |
		unix.SOF_TIMESTAMPING_RX_SOFTWARE |
		unix.SOF_TIMESTAMPING_SOFTWARE |
		unix.SOF_TIMESTAMPING_OPT_TSONLY
	require.Equal(t, want, flags)
}

func TestReadPacketWithRXTimestamp(t *testing.T) {
	recv, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	defer recv.Close()
	fd, err := ConnFd(recv)
	require.NoError(t, err)
	require.NoError(t, EnableSWTimestamps(fd))

	send, err := net.DialUDP("udp", nil, recv.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer send.Close()
	payload := []byte("sync follows")
	_, err = send.Write(payload)
	require.NoError(t, err)

	got, _, ts, err := ReadPacketWithRXTimestamp(fd)
	require.NoError(t, err)
	require.Equal(t, payload, got)
	require.InDelta(t, time.Now().UnixNano(), ts.UnixNano(), float64(time.Second))
}
