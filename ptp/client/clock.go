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

// Clock is the collaborator driving the hardware PTP peripheral.
// Read and Adjust are always required; rate adjustment is optional
// and advertised through AdjustRate's ok return.
type Clock interface {
	// Read returns the clock's current monotonic value.
	Read() (ptp.Epoch, error)

	// Adjust steps the clock by deltaNS, positive or negative.
	Adjust(deltaNS int64) error

	// AdjustRate sets the oscillator's frequency scaling in
	// parts-per-2^32. ok is false if the implementation has no rate
	// knob, in which case the caller only steps and still computes the
	// drift filter for diagnostics.
	AdjustRate(driftQ32 int32) (ok bool, err error)
}
