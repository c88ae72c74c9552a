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

import ptp "github.com/embeddedtime/ptpclient/ptp/protocol"

// Stats is the client's read-only inspection surface: a diagnostic
// shell or exporter reads these concurrently with the event loop, so
// RTT, UTCOffset and Drift are atomic loads and SelectedServer copies
// the clock id under the state's short mutex.
type Stats struct {
	st *state
}

// RTT returns the current smoothed round-trip estimate, in nanoseconds.
func (s Stats) RTT() uint32 {
	return s.st.rttNS.Load()
}

// UTCOffset returns the UTC-TAI offset last learned from an Announce,
// in seconds.
func (s Stats) UTCOffset() uint16 {
	return uint16(s.st.utcOffset.Load())
}

// Drift returns the current smoothed drift estimate, in
// parts-per-2^32.
func (s Stats) Drift() int32 {
	return s.st.driftQ32.Load()
}

// SelectedServer returns the clock identity of the currently tracked
// server, and false if none has been selected yet.
func (s Stats) SelectedServer() (ptp.ClockIdentity, bool) {
	return s.st.selectedID()
}
