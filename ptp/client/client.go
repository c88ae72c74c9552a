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
	"fmt"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	ptp "github.com/embeddedtime/ptpclient/ptp/protocol"
)

// logSent/logReceive give the trace log a quick visual cue of message
// direction.
func logSent(t ptp.MessageType, msg string, v ...interface{}) {
	log.Infof(color.GreenString("client -> %s (%s)", t, fmt.Sprintf(msg, v...)))
}

func logReceive(t ptp.MessageType, msg string, v ...interface{}) {
	log.Infof(color.BlueString("server -> %s (%s)", t, fmt.Sprintf(msg, v...)))
}

// Client drives the PTPv2 client state machine. It owns no socket or
// hardware clock directly: Transport and Clock are supplied
// collaborators. One errgroup.Group, one inbound channel fed by a
// reader goroutine, and a select loop that is the only mutator of
// client state keep the model single-threaded and event-driven.
type Client struct {
	cfg       Config
	transport Transport
	clock     Clock

	st       *state
	selector *selector
	delay    *delayEstimator
	offset   *offsetEstimator

	inbound chan Datagram
	cancel  context.CancelFunc

	// set when the periodic timer fired during WAIT_FOR_FOLLOW_UP and
	// was pushed back once to give the Follow-Up a short grace window
	followUpGraceUsed bool
}

// followUpGrace is how long a pending Follow-Up may delay the periodic
// Delay-Req before the exchange is abandoned.
const followUpGrace = 100 * time.Millisecond

// New constructs a Client for the given local clock identity,
// transport and hardware clock. cfg.Validate is not called here;
// configuration is validated once, at load time.
func New(localClockID ptp.ClockIdentity, cfg Config, tr Transport, clock Clock) *Client {
	st := newState(localClockID)
	return &Client{
		cfg:       cfg,
		transport: tr,
		clock:     clock,
		st:        st,
		selector:  newSelector(st),
		delay:     newDelayEstimator(st, cfg),
		offset:    newOffsetEstimator(st, cfg, clock),
		inbound:   make(chan Datagram, 16),
	}
}

// Stats returns the read-only inspection surface for this client.
func (c *Client) Stats() Stats {
	return Stats{st: c.st}
}

// Stop asks a running Start to wind down: the event loop exits and the
// transport (sockets, multicast membership) is released. Idempotent;
// a no-op before Start.
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Start joins the multicast group via the transport and runs the
// event loop until ctx is canceled or an unrecoverable error occurs.
// It blocks; callers typically run it in its own goroutine.
func (c *Client) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel

	if err := c.transport.Start(ctx); err != nil {
		return fmt.Errorf("ptp: transport start failed: %w", err)
	}
	defer func() {
		if err := c.transport.Close(); err != nil {
			log.Warningf("ptp: transport close failed: %v", err)
		}
	}()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return c.readLoop(ctx) })
	eg.Go(func() error { return c.eventLoop(ctx) })
	return eg.Wait()
}

// readLoop is the only goroutine that calls transport.Receive; it
// hands datagrams off to the single event-processing goroutine via
// inbound, so every event reaches the state machine through one
// logical queue.
func (c *Client) readLoop(ctx context.Context) error {
	for {
		dg, err := c.transport.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ptp: receive failed: %w", err)
		}
		select {
		case c.inbound <- dg:
		case <-ctx.Done():
			return nil
		}
	}
}

// eventLoop is the single logical event queue: every mutation of
// client state happens here, so no internal locking is required
// beyond the short critical section in state.go guarding the selected
// server's clock id.
func (c *Client) eventLoop(ctx context.Context) error {
	delayReqTimer := newResettableTimer()
	responseTimer := newResettableTimer()
	agingTicker := newResettableTimer()

	delayReqTimer.arm(nextDelayReqDelay(c.cfg))
	agingTicker.arm(c.cfg.DelayReqInterval)

	for {
		select {
		case <-ctx.Done():
			return nil

		case dg := <-c.inbound:
			c.handleDatagram(dg, delayReqTimer, responseTimer)

		case <-delayReqTimer.C():
			c.handleDelayReqTimer(delayReqTimer, responseTimer)

		case <-responseTimer.C():
			// the Delay-Resp never arrived: retry immediately rather
			// than waiting for the next periodic tick
			log.Debugf("ptp: delay-resp timeout, retrying")
			c.st.phase = PhaseIdle
			c.handleDelayReqTimer(delayReqTimer, responseTimer)

		case <-agingTicker.C():
			c.selector.onTick()
			agingTicker.arm(c.cfg.DelayReqInterval)
		}
	}
}

func (c *Client) handleDelayReqTimer(delayReqTimer, responseTimer *resettableTimer) {
	_, present := c.st.selectedID()
	if !present {
		delayReqTimer.arm(nextDelayReqDelay(c.cfg))
		return
	}
	if c.st.phase == PhaseWaitForFollowUp && !c.followUpGraceUsed {
		c.followUpGraceUsed = true
		delayReqTimer.arm(followUpGrace)
		return
	}
	c.followUpGraceUsed = false
	c.st.phase = PhaseIdle
	if c.delay.sendDelayReq(c.transport) {
		responseTimer.arm(c.cfg.DelayReqTimeout)
	} else {
		delayReqTimer.arm(nextDelayReqDelay(c.cfg))
	}
}

func (c *Client) handleDatagram(dg Datagram, delayReqTimer, responseTimer *resettableTimer) {
	decoded, err := ptp.Decode(dg.Data)
	if err != nil {
		log.Debugf("ptp: dropping malformed datagram: %v", err)
		return
	}

	switch {
	case decoded.Announce != nil:
		a := decoded.Announce
		logReceive(ptp.MessageAnnounce, "priority1=%d utc_offset=%d", a.GrandmasterPriority1, a.CurrentUTCOffset)
		switched := c.selector.onAnnounce(a.Header.SourcePortIdentity.ClockIdentity, a.GrandmasterPriority1, uint16(a.CurrentUTCOffset))
		if switched {
			log.Infof("ptp: selected server switched to %s", a.Header.SourcePortIdentity.ClockIdentity)
			c.st.phase = PhaseIdle
			delayReqTimer.arm(0)
		}

	case decoded.Sync != nil:
		logReceive(ptp.MessageSync, "seq=%d two_step=%v", decoded.Sync.SequenceID, decoded.Sync.TwoStep())
		if !dg.RXTimestampOK {
			log.Debugf("ptp: sync received without an rx hardware timestamp, skipping")
			return
		}
		c.offset.onSync(&decoded.Sync.Header, decoded.Sync.OriginTimestamp.Epoch(), dg.RXTimestamp)

	case decoded.FollowUp != nil:
		logReceive(ptp.MessageFollowUp, "seq=%d", decoded.FollowUp.SequenceID)
		c.offset.onFollowUp(&decoded.FollowUp.Header, decoded.FollowUp.PreciseOriginTimestamp.Epoch())

	case decoded.DelayResp != nil:
		logReceive(ptp.MessageDelayResp, "seq=%d", decoded.DelayResp.SequenceID)
		if c.delay.onDelayResp(decoded.DelayResp) {
			delayReqTimer.arm(nextDelayReqDelay(c.cfg))
			responseTimer.stop()
		}

	default:
		// message types this client doesn't consume, silently ignored
	}
}
