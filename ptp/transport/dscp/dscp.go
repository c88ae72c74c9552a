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

// Package dscp marks outgoing sockets with a DSCP traffic class so PTP
// datagrams get priority queuing treatment on the path to the server.
package dscp

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// EF is the standard "Expedited Forwarding" DSCP value (46) PTP
// traffic is conventionally marked with.
const EF = 46

// Enable sets the outgoing DSCP value on fd, choosing the IPv4 or IPv6
// socket option depending on ip's form. value is the six-bit DSCP
// codepoint; it is shifted into the traffic-class byte's top bits the
// way IP_TOS/IPV6_TCLASS expect.
func Enable(fd int, ip net.IP, value int) error {
	tos := value << 2
	if ip.To4() != nil {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, tos); err != nil {
			return fmt.Errorf("setting IP_TOS: %w", err)
		}
		return nil
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, tos); err != nil {
		return fmt.Errorf("setting IPV6_TCLASS: %w", err)
	}
	return nil
}
