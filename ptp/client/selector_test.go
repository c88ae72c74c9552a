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
	"testing"

	"github.com/stretchr/testify/require"

	ptp "github.com/embeddedtime/ptpclient/ptp/protocol"
)

const (
	serverA = ptp.ClockIdentity(0xA)
	serverB = ptp.ClockIdentity(0xB)
)

func TestSelectorFirstAnnounceAlwaysWins(t *testing.T) {
	st := newState(1)
	sel := newSelector(st)

	switched := sel.onAnnounce(serverA, 200, 37)
	require.True(t, switched)
	id, present := st.selectedID()
	require.True(t, present)
	require.Equal(t, serverA, id)
	require.EqualValues(t, 37, st.utcOffset.Load())
}

// S4: Server switch.
func TestSelectorSwitchesOnLowerPriority(t *testing.T) {
	st := newState(1)
	sel := newSelector(st)
	st.setSelected(serverA, 5)
	st.rttNS.Store(12345)

	switched := sel.onAnnounce(serverB, 3, 0)
	require.True(t, switched)

	id, _ := st.selectedID()
	require.Equal(t, serverB, id)
	require.EqualValues(t, 0, st.rttNS.Load())
}

func TestSelectorIgnoresEqualOrHigherPriorityFromOtherServer(t *testing.T) {
	st := newState(1)
	sel := newSelector(st)
	st.setSelected(serverA, 5)

	switched := sel.onAnnounce(serverB, 5, 0)
	require.False(t, switched)
	id, _ := st.selectedID()
	require.Equal(t, serverA, id)

	switched = sel.onAnnounce(serverB, 6, 0)
	require.False(t, switched)
}

func TestSelectorRefreshesSameServerWithoutSwitching(t *testing.T) {
	st := newState(1)
	sel := newSelector(st)
	st.setSelected(serverA, 5)

	switched := sel.onAnnounce(serverA, 9, 42)
	require.False(t, switched)
	require.Equal(t, 9, st.selectedPriority())
	require.EqualValues(t, 42, st.utcOffset.Load())
}

// S5: Aging.
func TestSelectorAgingEventuallyPermitsBackup(t *testing.T) {
	st := newState(1)
	sel := newSelector(st)
	st.setSelected(serverA, 50)

	for i := 0; i < 60; i++ {
		sel.onTick()
	}
	require.Equal(t, 110, st.selectedPriority())

	switched := sel.onAnnounce(serverB, 100, 0)
	require.True(t, switched)
}

func TestSelectorAgingSaturatesAt255(t *testing.T) {
	st := newState(1)
	sel := newSelector(st)
	st.setSelected(serverA, 250)

	for i := 0; i < 20; i++ {
		sel.onTick()
	}
	require.Equal(t, 255, st.selectedPriority())
}
