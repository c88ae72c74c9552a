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

// Package client implements the core PTPv2 client: wire-level state
// machine, server selection, delay estimation and offset/drift
// filtering. It owns no sockets or hardware clock directly; those are
// named collaborators (Transport, Clock) supplied by the caller.
package client

import (
	"sync"
	"sync/atomic"

	ptp "github.com/embeddedtime/ptpclient/ptp/protocol"
)

// Phase is one of the three states the client's exchange state
// machine can be in.
type Phase int

// IDLE is both the initial state and the resting state between
// exchanges.
const (
	PhaseIdle Phase = iota
	PhaseWaitForFollowUp
	PhaseWaitForDelayResp
)

var phaseNames = [...]string{"IDLE", "WAIT_FOR_FOLLOW_UP", "WAIT_FOR_DELAY_RESP"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "UNKNOWN"
}

// noServerPriority is the sentinel "no server selected yet" priority: one more
// than the maximum legal priority1 value, so any real Announce beats it.
const noServerPriority = 256

// selectedServer is the single server the client is currently tracking.
type selectedServer struct {
	id        ptp.ClockIdentity
	priority1 int // kept as int so aging can exceed uint8 range before clamping
	present   bool
}

// state is the client's singleton state. It is mutated only by the
// event-processing goroutine; the exported Stats methods on Client
// provide the atomic, concurrency-safe read path for external
// observers.
type state struct {
	phase Phase

	localClockID ptp.ClockIdentity

	mu       sync.Mutex // guards selectedServer's clock id copy
	selected selectedServer

	lastSyncSequenceID     uint16
	lastDelayReqSequenceID uint16
	pendingTxTS            ptp.Epoch

	lastServerTime      ptp.Epoch
	lastServerTimeValid bool

	// externally-observable fields, updated here under the event loop
	// and read anywhere via atomic loads (Stats).
	rttNS     atomic.Uint32
	utcOffset atomic.Uint32 // seconds, unsigned 16-bit range
	driftQ32  atomic.Int32
}

func newState(localClockID ptp.ClockIdentity) *state {
	return &state{localClockID: localClockID}
}

func (s *state) selectedID() (ptp.ClockIdentity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.id, s.selected.present
}

func (s *state) setSelected(id ptp.ClockIdentity, priority1 int) {
	s.mu.Lock()
	s.selected = selectedServer{id: id, priority1: priority1, present: true}
	s.mu.Unlock()
}

func (s *state) selectedPriority() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selected.present {
		return noServerPriority
	}
	return s.selected.priority1
}

func (s *state) setSelectedPriority(p int) {
	s.mu.Lock()
	s.selected.priority1 = p
	s.mu.Unlock()
}

func (s *state) resetRTT() {
	s.rttNS.Store(0)
}
