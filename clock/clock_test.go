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

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestFreqTimex(t *testing.T) {
	tx := freqTimex(1000.0)
	require.Equal(t, AdjFrequency, tx.Modes)
	require.EqualValues(t, 65536, tx.Freq)

	tx = freqTimex(-500.5)
	freqPPB := -500.5
	require.EqualValues(t, int64(freqPPB*PPBToTimexPPM), tx.Freq)
}

func TestStepTimexPositive(t *testing.T) {
	tx := stepTimex(1500 * time.Millisecond)
	require.Equal(t, AdjSetOffset|AdjNano, tx.Modes)
	require.EqualValues(t, 1, tx.Time.Sec)
	require.EqualValues(t, 500_000_000, tx.Time.Usec)
}

func TestStepTimexNegativeNormalizesFraction(t *testing.T) {
	tx := stepTimex(-1500 * time.Millisecond)
	// -1.5s must be expressed as -2s + 0.5s since the fractional
	// field has to stay non-negative
	require.EqualValues(t, -2, tx.Time.Sec)
	require.EqualValues(t, 500_000_000, tx.Time.Usec)
}

func TestStepTimexSubSecond(t *testing.T) {
	tx := stepTimex(-800 * time.Nanosecond)
	require.EqualValues(t, -1, tx.Time.Sec)
	require.EqualValues(t, 999_999_200, tx.Time.Usec)
}

// Reading parameters needs no privileges, so this exercises the real
// syscall path.
func TestFrequencyPPBRealtime(t *testing.T) {
	_, _, err := FrequencyPPB(unix.CLOCK_REALTIME)
	require.NoError(t, err)
}
