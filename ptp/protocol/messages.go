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

import "encoding/binary"

// Sync carries the header plus, for a one-step clock, the origin
// timestamp. For a two-step clock (FlagTwoStep set) OriginTimestamp is
// zero and the real timestamp follows in a Follow_Up.
type Sync struct {
	Header
	OriginTimestamp Timestamp
}

// syncBodySize is the size of SyncDelayReqBody (Table 44): a single Timestamp.
const syncBodySize = 10

// FollowUp carries the precise origin timestamp deferred by a two-step Sync.
type FollowUp struct {
	Header
	PreciseOriginTimestamp Timestamp
}

const followUpBodySize = 10

// DelayResp carries the server's receive timestamp for a Delay_Req,
// plus the identity of the client it is addressed to.
type DelayResp struct {
	Header
	ReceiveTimestamp        Timestamp
	RequestingClockIdentity ClockIdentity
	RequestingPortNumber    uint16
}

// delayRespBodySize: ReceiveTimestamp(10) + RequestingClockIdentity(8) +
// RequestingPortNumber(2), for a 54-byte message total.
const delayRespBodySize = 20

// Announce carries a grandmaster's identity, priority and UTC offset.
type Announce struct {
	Header
	OriginTimestamp         Timestamp
	CurrentUTCOffset        int16
	GrandmasterPriority1    uint8
	GrandmasterClockQuality ClockQuality
	GrandmasterPriority2    uint8
	GrandmasterIdentity     ClockIdentity
	StepsRemoved            uint16
	TimeSource              TimeSource
}

// announceBodySize: OriginTimestamp(10) + UTCOffset(2) + Reserved(1) +
// Priority1(1) + ClockQuality(4) + Priority2(1) + GMIdentity(8) +
// StepsRemoved(2) + TimeSource(1) = 30.
const announceBodySize = 30

func decodeSync(h Header, b []byte) (*Sync, error) {
	if len(b) < HeaderSize+syncBodySize {
		return nil, ErrTruncated
	}
	return &Sync{Header: h, OriginTimestamp: decodeTimestamp(b[HeaderSize:])}, nil
}

func decodeFollowUp(h Header, b []byte) (*FollowUp, error) {
	if len(b) < HeaderSize+followUpBodySize {
		return nil, ErrTruncated
	}
	return &FollowUp{Header: h, PreciseOriginTimestamp: decodeTimestamp(b[HeaderSize:])}, nil
}

func decodeDelayResp(h Header, b []byte) (*DelayResp, error) {
	if len(b) < HeaderSize+delayRespBodySize {
		return nil, ErrTruncated
	}
	body := b[HeaderSize:]
	return &DelayResp{
		Header:                  h,
		ReceiveTimestamp:        decodeTimestamp(body),
		RequestingClockIdentity: ClockIdentity(binary.BigEndian.Uint64(body[10:])),
		RequestingPortNumber:    binary.BigEndian.Uint16(body[18:]),
	}, nil
}

func decodeAnnounce(h Header, b []byte) (*Announce, error) {
	if len(b) < HeaderSize+announceBodySize {
		return nil, ErrTruncated
	}
	body := b[HeaderSize:]
	return &Announce{
		Header:           h,
		OriginTimestamp:  decodeTimestamp(body),
		CurrentUTCOffset: int16(binary.BigEndian.Uint16(body[10:])),
		// body[12] is Reserved
		GrandmasterPriority1: body[13],
		GrandmasterClockQuality: ClockQuality{
			ClockClass:              body[14],
			ClockAccuracy:           body[15],
			OffsetScaledLogVariance: binary.BigEndian.Uint16(body[16:]),
		},
		GrandmasterPriority2: body[18],
		GrandmasterIdentity:  ClockIdentity(binary.BigEndian.Uint64(body[19:])),
		StepsRemoved:         binary.BigEndian.Uint16(body[27:]),
		TimeSource:           TimeSource(body[29]),
	}, nil
}
