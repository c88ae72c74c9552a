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

// EncodeDelayReq builds the wire bytes of a Delay_Req message. Per
// this client's encoding contract the message is exactly HeaderSize
// bytes: no origin timestamp body is sent, since the TX hardware
// timestamp is captured out-of-band by the transport at send time.
func EncodeDelayReq(clockID ClockIdentity, sequence uint16) []byte {
	h := Header{
		SdoIDAndMsgType: uint8(MessageDelayReq),
		Version:         MajorVersion, // major=2, minor=0
		MessageLength:   HeaderSize,
		SourcePortIdentity: PortIdentity{
			ClockIdentity: clockID,
			PortNumber:    1,
		},
		SequenceID:         sequence,
		ControlField:       1,    // obsolete control byte, required to be 1 for Delay_Req
		LogMessageInterval: 0x7f, // Table 42: unknown/not applicable
	}
	b := make([]byte, HeaderSize)
	encodeHeaderTo(&h, b)
	return b
}
