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
	log "github.com/sirupsen/logrus"

	ptp "github.com/embeddedtime/ptpclient/ptp/protocol"
)

// offsetEstimator consumes the Sync/Follow-Up pair, steps the clock,
// and accumulates a q32 fixed-point drift estimate across sync
// intervals, carrying filter state between updates.
type offsetEstimator struct {
	st    *state
	cfg   Config
	clock Clock
}

func newOffsetEstimator(st *state, cfg Config, clock Clock) *offsetEstimator {
	return &offsetEstimator{st: st, cfg: cfg, clock: clock}
}

// onSync handles a Sync from the selected server: a one-step Sync
// adjusts immediately, a two-step Sync parks the RX timestamp until
// the Follow-Up delivers the precise origin.
func (o *offsetEstimator) onSync(hdr *ptp.Header, oneStepOriginTS ptp.Epoch, rxTS ptp.Epoch) {
	id, present := o.st.selectedID()
	if !present || hdr.SourcePortIdentity.ClockIdentity != id {
		return
	}
	o.st.lastSyncSequenceID = hdr.SequenceID

	if !hdr.TwoStep() {
		o.adjustTime(oneStepOriginTS, rxTS)
		o.st.phase = PhaseIdle
		return
	}
	o.st.pendingTxTS = rxTS
	o.st.phase = PhaseWaitForFollowUp
}

// onFollowUp completes a two-step Sync whose sequence id it matches.
func (o *offsetEstimator) onFollowUp(hdr *ptp.Header, preciseOriginTS ptp.Epoch) {
	if o.st.phase != PhaseWaitForFollowUp {
		return
	}
	id, present := o.st.selectedID()
	if !present || hdr.SourcePortIdentity.ClockIdentity != id {
		return
	}
	if hdr.SequenceID != o.st.lastSyncSequenceID {
		return
	}
	o.adjustTime(preciseOriginTS, o.st.pendingTxTS)
	o.st.phase = PhaseIdle
}

// adjustTime steps the clock by the measured offset (assuming a
// symmetric path, so half the RTT rode on the way in) and folds the
// offset-per-interval into the drift accumulator.
func (o *offsetEstimator) adjustTime(serverTS, localTS ptp.Epoch) {
	rtt := int64(o.st.rttNS.Load())
	offsetNS := int64(serverTS-localTS) + rtt/2

	if err := o.clock.Adjust(offsetNS); err != nil {
		log.Warningf("ptp: clock adjust failed: %v", err)
	}

	if o.st.lastServerTimeValid {
		interval := int64(serverTS - o.st.lastServerTime)
		if interval != 0 {
			raw := (offsetNS << 32) / interval

			// accumulate in int64 so an out-of-range estimate is caught
			// by the plausibility check instead of wrapping on the cast
			prev := int64(o.st.driftQ32.Load())
			next := raw
			if prev != 0 {
				next = raw/8 + prev
			}

			limit := int64(o.cfg.DriftPlausibilityLimitQ32)
			if next > limit || next < -limit {
				log.Debugf("ptp: rejecting implausible drift %d q32", next)
				next = 0
			}

			o.st.driftQ32.Store(int32(next))
			if ok, err := o.clock.AdjustRate(int32(next)); err != nil {
				log.Warningf("ptp: clock rate adjust failed: %v", err)
			} else if !ok {
				log.Debugf("ptp: clock has no rate-adjust capability, drift computed for diagnostics only")
			}
		}
	}

	o.st.lastServerTime = serverTS
	o.st.lastServerTimeValid = true
}
