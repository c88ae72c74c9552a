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

// delayEstimator runs the Delay-Req/Delay-Resp exchange and smooths
// the round-trip estimate with a fixed-weight EMA. Integer arithmetic
// throughout keeps the rounding exact.
type delayEstimator struct {
	st  *state
	cfg Config
}

func newDelayEstimator(st *state, cfg Config) *delayEstimator {
	return &delayEstimator{st: st, cfg: cfg}
}

// sendDelayReq emits a Delay-Req over transport and records the TX
// hardware timestamp. If none was captured, the exchange is skipped
// entirely and the caller is told to re-arm the periodic timer rather
// than the short response timeout.
func (d *delayEstimator) sendDelayReq(tr Transport) (armResponseTimeout bool) {
	d.st.lastDelayReqSequenceID++
	seq := d.st.lastDelayReqSequenceID
	b := ptp.EncodeDelayReq(d.st.localClockID, seq)

	ts, ok, err := tr.SendEvent(PortEvent, b)
	if err != nil {
		log.Warningf("ptp: delay-req send failed: %v", err)
		d.st.phase = PhaseIdle
		return false
	}
	if !ok {
		log.Warningf("ptp: delay-req sent without a TX timestamp, skipping exchange")
		d.st.phase = PhaseIdle
		return false
	}
	logSent(ptp.MessageDelayReq, "seq=%d", seq)

	d.st.pendingTxTS = ts
	d.st.phase = PhaseWaitForDelayResp
	return true
}

// onDelayResp processes a Delay-Resp addressed to this client. It
// returns true if the exchange was accepted (regardless of whether the RTT measurement
// itself was judged plausible) so the caller knows to return to IDLE
// and re-arm the periodic timer.
func (d *delayEstimator) onDelayResp(resp *ptp.DelayResp) (accepted bool) {
	id, present := d.st.selectedID()
	if !present || resp.Header.SourcePortIdentity.ClockIdentity != id {
		return false
	}
	if d.st.phase != PhaseWaitForDelayResp {
		return false
	}
	if resp.RequestingClockIdentity != d.st.localClockID {
		return false
	}
	if resp.SequenceID != d.st.lastDelayReqSequenceID {
		return false
	}

	serverCaptureTS := resp.ReceiveTimestamp.Epoch()
	rtt := int64(d.st.rttNS.Load())
	halfCompensated := d.st.pendingTxTS - ptp.Epoch(rtt/2)
	rawRTT := int64(serverCaptureTS - halfCompensated)

	if rawRTT < 0 || rawRTT > d.cfg.RTTPlausibilityLimitNS {
		log.Debugf("ptp: rejecting implausible raw rtt %d ns", rawRTT)
		d.st.rttNS.Store(0)
	} else if rtt == 0 {
		d.st.rttNS.Store(uint32(rawRTT))
	} else {
		d.st.rttNS.Store(uint32((3*rtt + rawRTT) / 4))
	}

	d.st.lastServerTimeValid = false
	d.st.phase = PhaseIdle
	return true
}
