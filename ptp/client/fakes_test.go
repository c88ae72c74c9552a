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

	ptp "github.com/embeddedtime/ptpclient/ptp/protocol"
)

// fakeClock is a small hand-written test double; the Clock interface
// is small enough that a generated mock would add nothing.
type fakeClock struct {
	adjustments []int64
	rates       []int32
	rateOK      bool
	adjustErr   error
}

func (f *fakeClock) Read() (ptp.Epoch, error) { return 0, nil }

func (f *fakeClock) Adjust(deltaNS int64) error {
	if f.adjustErr != nil {
		return f.adjustErr
	}
	f.adjustments = append(f.adjustments, deltaNS)
	return nil
}

func (f *fakeClock) AdjustRate(driftQ32 int32) (bool, error) {
	if !f.rateOK {
		return false, nil
	}
	f.rates = append(f.rates, driftQ32)
	return true, nil
}

// fakeTransport is a minimal Transport double: sendEvent returns a
// queued timestamp (or no-timestamp) per call, and Receive plays back
// a queue of datagrams.
type fakeTransport struct {
	sentEvents   [][]byte
	txTimestamps []ptp.Epoch
	txOK         []bool

	rx    []Datagram
	rxErr error
}

func (f *fakeTransport) Start(ctx context.Context) error { return nil }

func (f *fakeTransport) Receive(ctx context.Context) (Datagram, error) {
	if len(f.rx) == 0 {
		if f.rxErr != nil {
			return Datagram{}, f.rxErr
		}
		<-ctx.Done()
		return Datagram{}, ctx.Err()
	}
	dg := f.rx[0]
	f.rx = f.rx[1:]
	return dg, nil
}

func (f *fakeTransport) Send(port Port, b []byte) error { return nil }

func (f *fakeTransport) SendEvent(port Port, b []byte) (ptp.Epoch, bool, error) {
	f.sentEvents = append(f.sentEvents, b)
	if len(f.txTimestamps) == 0 {
		return 0, false, nil
	}
	ts := f.txTimestamps[0]
	ok := f.txOK[0]
	f.txTimestamps = f.txTimestamps[1:]
	f.txOK = f.txOK[1:]
	return ts, ok, nil
}

func (f *fakeTransport) Close() error { return nil }
