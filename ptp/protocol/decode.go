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

// Decoded is the discriminated result of Decode: exactly one of the
// pointer fields is set for message types this client cares about;
// none are set for MessageOther, which the state machine silently
// ignores.
type Decoded struct {
	Header    Header
	Sync      *Sync
	FollowUp  *FollowUp
	DelayResp *DelayResp
	Announce  *Announce
}

// Decode parses a single datagram into a typed message variant.
//
// It rejects ErrBadVersion if the major version isn't 2 or the minor
// version exceeds 1, ErrTruncated if the payload is smaller than the
// header or the variant-specific body, and ErrLengthMismatch if the
// header's declared length exceeds what was actually received.
func Decode(b []byte) (Decoded, error) {
	var d Decoded
	if len(b) < HeaderSize {
		return d, ErrTruncated
	}
	h, err := decodeHeader(b)
	if err != nil {
		return d, err
	}
	if int(h.MessageLength) > len(b) {
		return d, ErrLengthMismatch
	}
	d.Header = h

	switch h.MessageType() {
	case MessageSync:
		s, err := decodeSync(h, b)
		if err != nil {
			return d, err
		}
		d.Sync = s
	case MessageFollowUp:
		f, err := decodeFollowUp(h, b)
		if err != nil {
			return d, err
		}
		d.FollowUp = f
	case MessageDelayResp:
		r, err := decodeDelayResp(h, b)
		if err != nil {
			return d, err
		}
		d.DelayResp = r
	case MessageAnnounce:
		a, err := decodeAnnounce(h, b)
		if err != nil {
			return d, err
		}
		d.Announce = a
	default:
		// MessageDelayReq and anything else: not interesting to a
		// client, silently ignored (Other).
	}
	if int(h.MessageLength) > len(b) {
		return Decoded{}, ErrLengthMismatch
	}
	return d, nil
}

// ProbeMsgType reads just enough of a datagram to determine its
// MessageType without decoding the full message.
func ProbeMsgType(b []byte) (MessageType, error) {
	if len(b) < 1 {
		return 0, ErrTruncated
	}
	return MessageType(b[0] & 0x0f), nil
}
