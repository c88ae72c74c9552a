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

import "errors"

// Decode errors, all recovered locally by the state machine (protocol
// anomaly, not a fatal condition).
var (
	// ErrBadVersion is returned when the major version isn't 2 or the
	// minor version exceeds what this client accepts.
	ErrBadVersion = errors.New("protocol: unsupported PTP version")
	// ErrTruncated is returned when the payload is smaller than the
	// header, or smaller than the variant-specific body it claims to carry.
	ErrTruncated = errors.New("protocol: truncated message")
	// ErrLengthMismatch is returned when the header's declared
	// MessageLength exceeds the bytes actually received.
	ErrLengthMismatch = errors.New("protocol: declared length exceeds received payload")
)
