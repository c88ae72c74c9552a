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

package client

import (
	"context"

	ptp "github.com/embeddedtime/ptpclient/ptp/protocol"
)

// Port distinguishes the PTP event port (319, timestamped) from the
// general port (320, not timestamped).
type Port int

const (
	PortEvent   Port = ptp.PortEvent
	PortGeneral Port = ptp.PortGeneral
)

// Datagram is one received PTP packet plus its capture metadata.
type Datagram struct {
	Port Port
	Data []byte

	// RXTimestamp is the hardware timestamp captured at the frame's
	// start-of-frame delimiter. Valid only when RXTimestampOK is true.
	RXTimestamp   ptp.Epoch
	RXTimestampOK bool
}

// Transport is the collaborator owning the UDP/IPv6 sockets and the
// multicast group membership. The client never opens a socket itself;
// it is handed one of these.
type Transport interface {
	// Start joins the primary PTP multicast group and binds both
	// ports. Called once before the event loop begins.
	Start(ctx context.Context) error

	// Receive blocks for the next datagram on either port.
	Receive(ctx context.Context) (Datagram, error)

	// Send writes b to the given port without requesting a TX
	// timestamp (used for nothing this client emits today, but part
	// of the named contract).
	Send(port Port, b []byte) error

	// SendEvent writes b to the event port and requests a hardware TX
	// timestamp. ok is false if no timestamp could be captured, in
	// which case the caller must not proceed with synchronization.
	SendEvent(port Port, b []byte) (ts ptp.Epoch, ok bool, err error)

	// Close releases both sockets and leaves the multicast group.
	Close() error
}
