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

import (
	ptp "github.com/embeddedtime/ptpclient/ptp/protocol"
)

// selector decides which Announce-sender this client is tracking. It
// stands in for the full IEEE Best Master Clock Algorithm with a
// priority1-only heuristic: numerically lower priority1 wins, and a
// silent server's priority1 ages upward every scheduler tick until
// either a fresher Announce resets it or a lower-priority backup
// takes over.
type selector struct {
	st *state
}

func newSelector(st *state) *selector {
	return &selector{st: st}
}

// onAnnounce updates the tracked server. It returns true
// if the selected server changed; rtt_ns and the drift history are
// reset here, and the caller must then force phase back to IDLE and
// arm a fresh Delay-Req.
func (sel *selector) onAnnounce(sender ptp.ClockIdentity, priority1 uint8, utcOffsetS uint16) (switched bool) {
	id, present := sel.st.selectedID()
	if present && sender == id {
		// same server re-announcing: refresh priority1 and reset aging
		sel.st.setSelectedPriority(int(priority1))
		sel.st.utcOffset.Store(uint32(utcOffsetS))
		return false
	}

	if !present || int(priority1) < sel.st.selectedPriority() {
		sel.st.setSelected(sender, int(priority1))
		sel.st.utcOffset.Store(uint32(utcOffsetS))
		sel.st.resetRTT()
		sel.st.lastServerTimeValid = false
		return true
	}

	// equal-or-higher priority1 from a different server: ignored.
	// Operators must keep priority1 values distinct; the first
	// observed of a tie simply keeps winning.
	return false
}

// onTick is the aging step: the currently-selected server's priority1
// is incremented (saturating at 255) on every scheduler tick, so a
// silent grandmaster eventually yields to a lower-priority backup.
func (sel *selector) onTick() {
	_, present := sel.st.selectedID()
	if !present {
		return
	}
	p := sel.st.selectedPriority()
	if p < 255 {
		sel.st.setSelectedPriority(p + 1)
	}
}
