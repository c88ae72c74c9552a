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

package protocol

import (
	"encoding/binary"
	"fmt"
	"net"
)

// MessageType is the PTP messageType field, Table 36.
type MessageType uint8

// Message types this client decodes or emits. PDelay, Management,
// Signaling and the rest of Table 36 are not needed by this client and
// fall through to Other.
const (
	MessageSync      MessageType = 0x0
	MessageDelayReq  MessageType = 0x1
	MessageFollowUp  MessageType = 0x8
	MessageDelayResp MessageType = 0x9
	MessageAnnounce  MessageType = 0xb
	// MessageOther represents any message type this client does not
	// care about; it is decoded far enough to read the header and
	// then silently dropped by the state machine.
	MessageOther MessageType = 0xff
)

var messageTypeNames = map[MessageType]string{
	MessageSync:      "SYNC",
	MessageDelayReq:  "DELAY_REQ",
	MessageFollowUp:  "FOLLOW_UP",
	MessageDelayResp: "DELAY_RESP",
	MessageAnnounce:  "ANNOUNCE",
	MessageOther:     "OTHER",
}

func (m MessageType) String() string {
	if s, ok := messageTypeNames[m]; ok {
		return s
	}
	return "UNKNOWN"
}

// seconds48 is a big-endian 48-bit unsigned seconds counter. No
// native uint48 exists, so it's decoded by hand, 6 bytes at a time.
type seconds48 [6]byte

func (s seconds48) value() uint64 {
	return uint64(s[5]) | uint64(s[4])<<8 | uint64(s[3])<<16 |
		uint64(s[2])<<24 | uint64(s[1])<<32 | uint64(s[0])<<40
}

func seconds48FromValue(v uint64) seconds48 {
	var s seconds48
	s[0] = byte(v >> 40)
	s[1] = byte(v >> 32)
	s[2] = byte(v >> 24)
	s[3] = byte(v >> 16)
	s[4] = byte(v >> 8)
	s[5] = byte(v)
	return s
}

// Timestamp is the wire form of a PTP timestamp: 48-bit seconds plus
// 32-bit nanoseconds, both big-endian, both unsigned.
type Timestamp struct {
	Seconds     seconds48
	Nanoseconds uint32
}

// Epoch is a signed nanosecond offset from the PTP epoch
// (1970-01-01T00:00:00Z). All internal arithmetic uses this scalar
// form; conversion to/from the wire's seconds+nanoseconds pair happens
// only here.
type Epoch int64

// Epoch converts a wire Timestamp to the signed nanosecond scalar form.
func (t Timestamp) Epoch() Epoch {
	return Epoch(t.Seconds.value())*Epoch(1e9) + Epoch(t.Nanoseconds)
}

// NewTimestamp builds the wire form of an Epoch. Epoch is assumed
// non-negative, as PTP timestamps always are.
func NewTimestamp(e Epoch) Timestamp {
	if e < 0 {
		e = 0
	}
	secs := uint64(e) / 1e9
	ns := uint32(uint64(e) % 1e9)
	return Timestamp{Seconds: seconds48FromValue(secs), Nanoseconds: ns}
}

func decodeTimestamp(b []byte) Timestamp {
	var s seconds48
	copy(s[:], b[0:6])
	return Timestamp{Seconds: s, Nanoseconds: binary.BigEndian.Uint32(b[6:10])}
}

func encodeTimestampTo(t Timestamp, b []byte) {
	copy(b[0:6], t.Seconds[:])
	binary.BigEndian.PutUint32(b[6:10], t.Nanoseconds)
}

// ClockQuality describes a grandmaster's stability. Carried through
// Announce verbatim; this client does not interpret it beyond storage
// since full BMCA is out of scope.
type ClockQuality struct {
	ClockClass              uint8
	ClockAccuracy           uint8
	OffsetScaledLogVariance uint16
}

// NewClockIdentity derives a ClockIdentity from a network interface's
// MAC address per the IEEE EUI-48-to-EUI-64 expansion (insert
// FF:FE in the middle).
func NewClockIdentity(mac net.HardwareAddr) (ClockIdentity, error) {
	var b [8]byte
	switch len(mac) {
	case 6: // EUI-48
		b[0], b[1], b[2] = mac[0], mac[1], mac[2]
		b[3], b[4] = 0xff, 0xfe
		b[5], b[6], b[7] = mac[3], mac[4], mac[5]
	case 8: // EUI-64
		copy(b[:], mac)
	default:
		return 0, fmt.Errorf("protocol: unsupported MAC %v, must be EUI-48 or EUI-64", mac)
	}
	return ClockIdentity(binary.BigEndian.Uint64(b[:])), nil
}

// TimeSource indicates a grandmaster's time reference, Table 6.
type TimeSource uint8

// Known TimeSource values.
const (
	TimeSourceAtomicClock        TimeSource = 0x10
	TimeSourceGNSS               TimeSource = 0x20
	TimeSourceTerrestrialRadio   TimeSource = 0x30
	TimeSourcePTP                TimeSource = 0x40
	TimeSourceNTP                TimeSource = 0x50
	TimeSourceHandSet            TimeSource = 0x60
	TimeSourceOther              TimeSource = 0x90
	TimeSourceInternalOscillator TimeSource = 0xa0
)
