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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeDelayReqRoundTrip(t *testing.T) {
	clockID := ClockIdentity(0x1122334455667788)
	b := EncodeDelayReq(clockID, 42)
	require.Len(t, b, HeaderSize)

	h, err := decodeHeader(b)
	require.NoError(t, err)
	require.Equal(t, MessageDelayReq, h.MessageType())
	require.EqualValues(t, 42, h.SequenceID)
	require.Equal(t, clockID, h.SourcePortIdentity.ClockIdentity)
	require.EqualValues(t, 1, h.SourcePortIdentity.PortNumber)
	require.EqualValues(t, 1, h.ControlField)
	require.EqualValues(t, 0x7f, h.LogMessageInterval)
	require.EqualValues(t, HeaderSize, h.MessageLength)
}

func TestDecodeBadVersion(t *testing.T) {
	b := EncodeDelayReq(1, 0)
	b[1] = 0x03 // major version 3
	_, err := Decode(b)
	require.ErrorIs(t, err, ErrBadVersion)
}

func TestDecodeTruncated(t *testing.T) {
	_, err := Decode(make([]byte, HeaderSize-1))
	require.ErrorIs(t, err, ErrTruncated)

	// Announce header-only, body missing
	b := make([]byte, HeaderSize)
	b[0] = byte(MessageAnnounce)
	b[1] = MajorVersion
	binary.BigEndian.PutUint16(b[2:], HeaderSize+announceBodySize)
	_, err = Decode(b)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeLengthMismatch(t *testing.T) {
	b := make([]byte, HeaderSize+syncBodySize)
	b[0] = byte(MessageSync)
	b[1] = MajorVersion
	binary.BigEndian.PutUint16(b[2:], HeaderSize+syncBodySize+100)
	_, err := Decode(b)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func buildAnnounce(priority1 uint8, utcOffset int16, gm ClockIdentity) []byte {
	b := make([]byte, HeaderSize+announceBodySize)
	b[0] = byte(MessageAnnounce)
	b[1] = MajorVersion
	binary.BigEndian.PutUint16(b[2:], uint16(len(b)))
	body := b[HeaderSize:]
	binary.BigEndian.PutUint16(body[10:], uint16(utcOffset))
	body[13] = priority1
	binary.BigEndian.PutUint64(body[19:], uint64(gm))
	return b
}

func TestDecodeAnnounceStableUnderRepeatedInvocation(t *testing.T) {
	b := buildAnnounce(5, 37, 0xaabbccddeeff0011)
	for i := 0; i < 3; i++ {
		d, err := Decode(b)
		require.NoError(t, err)
		require.NotNil(t, d.Announce)
		require.EqualValues(t, 5, d.Announce.GrandmasterPriority1)
		require.EqualValues(t, 37, d.Announce.CurrentUTCOffset)
		require.Equal(t, ClockIdentity(0xaabbccddeeff0011), d.Announce.GrandmasterIdentity)
	}
}

func TestDecodeSyncOneStepAndTwoStep(t *testing.T) {
	b := make([]byte, HeaderSize+syncBodySize)
	b[0] = byte(MessageSync)
	b[1] = MajorVersion
	binary.BigEndian.PutUint16(b[2:], uint16(len(b)))
	ts := NewTimestamp(Epoch(1_700_000_000)*1e9 + 500_000_000)
	encodeTimestampTo(ts, b[HeaderSize:])

	d, err := Decode(b)
	require.NoError(t, err)
	require.NotNil(t, d.Sync)
	require.False(t, d.Header.TwoStep())
	require.Equal(t, Epoch(1_700_000_000)*1e9+500_000_000, d.Sync.OriginTimestamp.Epoch())

	binary.BigEndian.PutUint16(b[6:], FlagTwoStep)
	d, err = Decode(b)
	require.NoError(t, err)
	require.True(t, d.Header.TwoStep())
}

func TestDecodeDelayResp(t *testing.T) {
	b := make([]byte, HeaderSize+delayRespBodySize)
	b[0] = byte(MessageDelayResp)
	b[1] = MajorVersion
	binary.BigEndian.PutUint16(b[2:], uint16(len(b)))
	binary.BigEndian.PutUint16(b[30:], 7) // sequence id
	body := b[HeaderSize:]
	encodeTimestampTo(NewTimestamp(1_000_000_060), body)
	binary.BigEndian.PutUint64(body[10:], 0x1234)
	binary.BigEndian.PutUint16(body[18:], 1)

	d, err := Decode(b)
	require.NoError(t, err)
	require.NotNil(t, d.DelayResp)
	require.EqualValues(t, 7, d.DelayResp.SequenceID)
	require.Equal(t, Epoch(1_000_000_060), d.DelayResp.ReceiveTimestamp.Epoch())
	require.Equal(t, ClockIdentity(0x1234), d.DelayResp.RequestingClockIdentity)
	require.EqualValues(t, 1, d.DelayResp.RequestingPortNumber)
}

func TestTimestampEpochRoundTripNearRollover(t *testing.T) {
	cases := []Epoch{
		0,
		(Epoch(1)<<32 - 1) * 1e9, // seconds field at 2^32-1
		1_700_000_000_500_000_000,
	}
	for _, e := range cases {
		ts := NewTimestamp(e)
		require.Equal(t, e, ts.Epoch())
	}
}

func TestSeconds48RoundTripAtRolloverBoundaries(t *testing.T) {
	cases := []uint64{0, 1<<32 - 1, 1 << 40}
	for _, secs := range cases {
		s := seconds48FromValue(secs)
		require.Equal(t, secs, s.value())
	}
}

func TestProbeMsgType(t *testing.T) {
	b := EncodeDelayReq(1, 0)
	mt, err := ProbeMsgType(b)
	require.NoError(t, err)
	require.Equal(t, MessageDelayReq, mt)

	_, err = ProbeMsgType(nil)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestOtherMessageTypeSilentlyIgnored(t *testing.T) {
	b := EncodeDelayReq(1, 0) // DelayReq is "Other" from a receive perspective
	d, err := Decode(b)
	require.NoError(t, err)
	require.Nil(t, d.Sync)
	require.Nil(t, d.FollowUp)
	require.Nil(t, d.DelayResp)
	require.Nil(t, d.Announce)
}
