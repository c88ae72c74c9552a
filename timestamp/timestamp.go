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

// Package timestamp configures kernel packet timestamping on UDP
// sockets and reads the hardware (or software) timestamps the kernel
// attaches to received packets and to sent packets via MSG_ERRQUEUE.
package timestamp

import (
	"net"
	"time"
)

const (
	// ControlSizeBytes fits a socket control message carrying a TX/RX
	// timestamp. If a read fails we may end up with several timestamps
	// queued, so the buffer leaves room to drain them.
	ControlSizeBytes = 128
	// PayloadSizeBytes covers the largest PTP packet this client
	// exchanges (a 64-byte Announce) with room to spare.
	PayloadSizeBytes = 128
)

// AttemptsTXTS bounds how many error-queue reads to try before giving
// up on a TX timestamp.
var AttemptsTXTS = 100

// TimeoutTXTS bounds each individual poll for the TX timestamp.
var TimeoutTXTS = time.Millisecond

// ConnFd returns the file descriptor behind a UDP connection.
func ConnFd(conn *net.UDPConn) (int, error) {
	sc, err := conn.SyscallConn()
	if err != nil {
		return -1, err
	}
	var intfd int
	err = sc.Control(func(fd uintptr) {
		intfd = int(fd)
	})
	if err != nil {
		return -1, err
	}
	return intfd, nil
}
