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

// Package protocol implements the subset of the PTPv2 (IEEE 1588) wire
// format needed by an embedded unicast-free client: the common header
// plus Sync, Follow_Up, Delay_Req, Delay_Resp and Announce bodies.
package protocol

import (
	"encoding/binary"
	"fmt"
)

// protocol version this client speaks/accepts, see decodeHeader
const (
	MajorVersion uint8 = 2
	MinorVersion uint8 = 1
)

// PortEvent and PortGeneral are the well-known PTP UDP ports.
const (
	PortEvent   = 319
	PortGeneral = 320
)

// MulticastGroup is the primary PTP IPv6 multicast group address.
const MulticastGroup = "ff0e::181"

// flags used in FlagField, Table 37 Values of flagField (IEEE 1588-2019)
const (
	FlagUnicast        uint16 = 0x0400
	FlagTwoStep        uint16 = 0x0200
	FlagUTCOffsetValid uint16 = 0x0004
)

// HeaderSize is the fixed size in bytes of the common PTP header.
const HeaderSize = 34

// ClockIdentity is the 8-byte opaque identifier of a PTP clock.
type ClockIdentity uint64

// String formats a ClockIdentity the same way ptp4l's pmc client does.
func (c ClockIdentity) String() string {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(c))
	return fmt.Sprintf("%02x%02x%02x.%02x%02x.%02x%02x%02x",
		b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7])
}

// PortIdentity identifies a PTP port: a clock identity plus a port number.
type PortIdentity struct {
	ClockIdentity ClockIdentity
	PortNumber    uint16
}

// Header is the common 34-byte PTP message header (Table 35).
type Header struct {
	SdoIDAndMsgType     uint8
	Version             uint8
	MessageLength       uint16
	DomainNumber        uint8
	MinorSdoID          uint8
	FlagField           uint16
	CorrectionField     uint64 // unused by this client, carried verbatim
	MessageTypeSpecific uint32
	SourcePortIdentity  PortIdentity
	SequenceID          uint16
	ControlField        uint8 // obsolete per IEEE, still required on the wire
	LogMessageInterval  int8
}

// MessageType extracts the message type nibble from SdoIDAndMsgType.
func (h *Header) MessageType() MessageType {
	return MessageType(h.SdoIDAndMsgType & 0x0f)
}

// TwoStep reports whether the TWO_STEP flag is set.
func (h *Header) TwoStep() bool {
	return h.FlagField&FlagTwoStep != 0
}

func decodeHeader(b []byte) (Header, error) {
	var h Header
	h.SdoIDAndMsgType = b[0]
	h.Version = b[1]
	h.MessageLength = binary.BigEndian.Uint16(b[2:])
	h.DomainNumber = b[4]
	h.MinorSdoID = b[5]
	h.FlagField = binary.BigEndian.Uint16(b[6:])
	h.CorrectionField = binary.BigEndian.Uint64(b[8:])
	h.MessageTypeSpecific = binary.BigEndian.Uint32(b[16:])
	h.SourcePortIdentity.ClockIdentity = ClockIdentity(binary.BigEndian.Uint64(b[20:]))
	h.SourcePortIdentity.PortNumber = binary.BigEndian.Uint16(b[28:])
	h.SequenceID = binary.BigEndian.Uint16(b[30:])
	h.ControlField = b[32]
	h.LogMessageInterval = int8(b[33])

	major := h.Version & 0x0f
	minor := h.Version >> 4
	if major != MajorVersion || minor > MinorVersion {
		return h, ErrBadVersion
	}
	return h, nil
}

func encodeHeaderTo(h *Header, b []byte) {
	b[0] = h.SdoIDAndMsgType
	b[1] = h.Version
	binary.BigEndian.PutUint16(b[2:], h.MessageLength)
	b[4] = h.DomainNumber
	b[5] = h.MinorSdoID
	binary.BigEndian.PutUint16(b[6:], h.FlagField)
	binary.BigEndian.PutUint64(b[8:], h.CorrectionField)
	binary.BigEndian.PutUint32(b[16:], h.MessageTypeSpecific)
	binary.BigEndian.PutUint64(b[20:], uint64(h.SourcePortIdentity.ClockIdentity))
	binary.BigEndian.PutUint16(b[28:], h.SourcePortIdentity.PortNumber)
	binary.BigEndian.PutUint16(b[30:], h.SequenceID)
	b[32] = h.ControlField
	b[33] = byte(h.LogMessageInterval)
}
