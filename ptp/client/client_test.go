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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ptp "github.com/embeddedtime/ptpclient/ptp/protocol"
)

func buildAnnounceDatagram(t *testing.T, sender ptp.ClockIdentity, priority1 uint8) []byte {
	t.Helper()
	// protocol.Header/Announce have no exported encoder (only Delay-Req
	// needs one on the wire, per the codec's contract), so the raw bytes
	// of a minimal Announce are laid out by hand here.
	b := make([]byte, ptp.HeaderSize+30)
	b[0] = uint8(ptp.MessageAnnounce)
	b[1] = ptp.MajorVersion
	b[2] = byte(len(b) >> 8)
	b[3] = byte(len(b))
	for i := 0; i < 8; i++ {
		b[20+i] = byte(sender >> uint(56-8*i))
	}
	b[ptp.HeaderSize+13] = priority1
	return b
}

// TestClientSwitchesServerAndArmsDelayReq drives the event loop with a
// single Announce datagram and checks the selector wiring end-to-end:
// the client should select the announced server and promptly emit a
// Delay-Req once armed.
func TestClientSwitchesServerAndArmsDelayReq(t *testing.T) {
	ann := buildAnnounceDatagram(t, serverA, 10)
	tr := &fakeTransport{
		rx:           []Datagram{{Port: PortGeneral, Data: ann}},
		txTimestamps: []ptp.Epoch{1000},
		txOK:         []bool{true},
	}
	clk := &fakeClock{rateOK: true}

	cfg := DefaultConfig()
	cfg.DelayReqInterval = 20 * time.Millisecond
	cfg.DelayReqJitter = 0

	c := New(1, cfg, tr, clk)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_ = c.Start(ctx)

	id, present := c.Stats().SelectedServer()
	require.True(t, present)
	require.Equal(t, serverA, id)
	require.NotEmpty(t, tr.sentEvents)
}

// A pending Follow-Up gets one short grace window before the periodic
// timer abandons the exchange in favor of a Delay-Req.
func TestDelayReqTimerDefersOnceDuringPendingFollowUp(t *testing.T) {
	tr := &fakeTransport{
		txTimestamps: []ptp.Epoch{1000},
		txOK:         []bool{true},
	}
	c := New(1, DefaultConfig(), tr, &fakeClock{})
	c.st.setSelected(serverA, 10)
	c.st.phase = PhaseWaitForFollowUp

	delayReqTimer := newResettableTimer()
	responseTimer := newResettableTimer()
	defer delayReqTimer.stop()
	defer responseTimer.stop()

	c.handleDelayReqTimer(delayReqTimer, responseTimer)
	require.Empty(t, tr.sentEvents)
	require.Equal(t, PhaseWaitForFollowUp, c.st.phase)

	c.handleDelayReqTimer(delayReqTimer, responseTimer)
	require.Len(t, tr.sentEvents, 1)
	require.Equal(t, PhaseWaitForDelayResp, c.st.phase)
}
