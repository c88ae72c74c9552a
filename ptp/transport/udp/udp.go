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

// Package udp implements the client.Transport contract over IPv6
// multicast UDP sockets with hardware (falling back to software)
// timestamping.
package udp

import (
	"context"
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/ipv6"

	"github.com/embeddedtime/ptpclient/ptp/client"
	ptp "github.com/embeddedtime/ptpclient/ptp/protocol"
	"github.com/embeddedtime/ptpclient/ptp/transport/dscp"
	"github.com/embeddedtime/ptpclient/timestamp"
)

// Transport is the concrete client.Transport for a Linux host: it
// discovers the first IPv6-capable interface, joins the primary PTP
// multicast group on both the event and general ports, and requests
// hardware timestamps on send/receive.
type Transport struct {
	iface *net.Interface

	eventConn *net.UDPConn
	genConn   *net.UDPConn

	eventAddr *net.UDPAddr
	genAddr   *net.UDPAddr

	useHW bool

	rxq  chan rxResult
	done chan struct{}
}

type rxResult struct {
	dg  client.Datagram
	err error
}

// New constructs a Transport bound to the named interface. If
// ifaceName is empty, Start discovers the first interface carrying a
// usable IPv6 address.
func New(ifaceName string, useHWTimestamps bool) *Transport {
	t := &Transport{useHW: useHWTimestamps}
	if ifaceName != "" {
		if iface, err := net.InterfaceByName(ifaceName); err == nil {
			t.iface = iface
		}
	}
	return t
}

func firstIPv6Interface() (*net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("ptp: no interfaces: %w", err)
	}
	for i := range ifaces {
		iface := ifaces[i]
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipn, ok := a.(*net.IPNet); ok && ipn.IP.To4() == nil && ipn.IP.IsGlobalUnicast() {
				return &iface, nil
			}
		}
	}
	return nil, fmt.Errorf("ptp: no interface with a usable ipv6 address")
}

// Start implements client.Transport. It joins ptp.MulticastGroup on
// both well-known ports, enables timestamping on the event socket and
// spawns one reader per socket.
func (t *Transport) Start(ctx context.Context) error {
	if t.iface == nil {
		iface, err := firstIPv6Interface()
		if err != nil {
			return err
		}
		t.iface = iface
	}

	var err error
	t.eventConn, t.eventAddr, err = t.listen(ptp.PortEvent)
	if err != nil {
		return fmt.Errorf("ptp: event socket: %w", err)
	}
	t.genConn, t.genAddr, err = t.listen(ptp.PortGeneral)
	if err != nil {
		t.eventConn.Close()
		return fmt.Errorf("ptp: general socket: %w", err)
	}

	fd, err := timestamp.ConnFd(t.eventConn)
	if err != nil {
		t.Close()
		return fmt.Errorf("ptp: event socket fd: %w", err)
	}
	if t.useHW {
		if err := timestamp.EnableHWTimestamps(fd, t.iface); err != nil {
			log.Warningf("ptp: hardware timestamps unavailable, falling back to software: %v", err)
			t.useHW = false
		}
	}
	if !t.useHW {
		if err := timestamp.EnableSWTimestamps(fd); err != nil {
			log.Warningf("ptp: software timestamps unavailable: %v", err)
		}
	}
	if err := dscp.Enable(fd, t.eventAddr.IP, dscp.EF); err != nil {
		log.Debugf("ptp: dscp marking failed: %v", err)
	}

	t.rxq = make(chan rxResult, 16)
	t.done = make(chan struct{})
	go t.readEvent(fd)
	go t.readGeneral()
	return nil
}

func (t *Transport) listen(port int) (*net.UDPConn, *net.UDPAddr, error) {
	group := net.ParseIP(ptp.MulticastGroup)
	addr := &net.UDPAddr{IP: group, Port: port, Zone: t.iface.Name}

	conn, err := net.ListenUDP("udp6", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, nil, err
	}
	pc := ipv6.NewPacketConn(conn)
	if err := pc.JoinGroup(t.iface, &net.UDPAddr{IP: group}); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("joining %s: %w", ptp.MulticastGroup, err)
	}
	return conn, addr, nil
}

func (t *Transport) push(r rxResult) bool {
	select {
	case t.rxq <- r:
		return true
	case <-t.done:
		return false
	}
}

// readEvent delivers event-port datagrams with their RX timestamp. A
// packet whose timestamp can't be parsed is still delivered, flagged
// timestampless, so the client can log and skip it.
func (t *Transport) readEvent(fd int) {
	buf := make([]byte, timestamp.PayloadSizeBytes)
	oob := make([]byte, timestamp.ControlSizeBytes)
	for {
		n, _, ts, err := timestamp.ReadPacketWithRXTimestampBuf(fd, buf, oob)
		if err != nil && n == 0 {
			t.push(rxResult{err: fmt.Errorf("ptp: event socket read: %w", err)})
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		ok := t.push(rxResult{dg: client.Datagram{
			Port:          client.PortEvent,
			Data:          data,
			RXTimestamp:   ptp.Epoch(ts.UnixNano()),
			RXTimestampOK: err == nil && ts.UnixNano() != 0,
		}})
		if !ok {
			return
		}
	}
}

// readGeneral delivers general-port datagrams (Announce, Follow-Up,
// Delay-Resp), which carry no RX timestamp requirement.
func (t *Transport) readGeneral() {
	buf := make([]byte, 1024)
	for {
		n, _, err := t.genConn.ReadFromUDP(buf)
		if err != nil {
			t.push(rxResult{err: fmt.Errorf("ptp: general socket read: %w", err)})
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		if !t.push(rxResult{dg: client.Datagram{Port: client.PortGeneral, Data: data}}) {
			return
		}
	}
}

// Receive implements client.Transport.
func (t *Transport) Receive(ctx context.Context) (client.Datagram, error) {
	select {
	case <-ctx.Done():
		return client.Datagram{}, ctx.Err()
	case r := <-t.rxq:
		return r.dg, r.err
	}
}

// Send implements client.Transport.
func (t *Transport) Send(port client.Port, b []byte) error {
	conn, addr := t.connFor(port)
	_, err := conn.WriteTo(b, addr)
	return err
}

// SendEvent implements client.Transport.
func (t *Transport) SendEvent(port client.Port, b []byte) (ptp.Epoch, bool, error) {
	conn, addr := t.connFor(port)
	if _, err := conn.WriteTo(b, addr); err != nil {
		return 0, false, err
	}
	fd, err := timestamp.ConnFd(conn)
	if err != nil {
		return 0, false, err
	}
	ts, _, err := timestamp.ReadTXtimestamp(fd)
	if err != nil {
		log.Debugf("ptp: no tx timestamp available: %v", err)
		return 0, false, nil
	}
	return ptp.Epoch(ts.UnixNano()), true, nil
}

func (t *Transport) connFor(port client.Port) (*net.UDPConn, *net.UDPAddr) {
	if port == client.PortEvent {
		return t.eventConn, t.eventAddr
	}
	return t.genConn, t.genAddr
}

// Close implements client.Transport.
func (t *Transport) Close() error {
	if t.done != nil {
		select {
		case <-t.done:
		default:
			close(t.done)
		}
	}
	var firstErr error
	if t.eventConn != nil {
		if err := t.eventConn.Close(); err != nil {
			firstErr = err
		}
	}
	if t.genConn != nil {
		if err := t.genConn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
