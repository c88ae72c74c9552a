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
	"math/rand"
	"time"
)

// resettableTimer wraps time.Timer with reset-or-arm semantics: every
// arm first drains any pending expiry, so a handler never races a
// stale expiry against a freshly scheduled one.
type resettableTimer struct {
	timer *time.Timer
}

func newResettableTimer() *resettableTimer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return &resettableTimer{timer: t}
}

// arm cancels any pending expiry and schedules a new one after d.
func (r *resettableTimer) arm(d time.Duration) {
	if !r.timer.Stop() {
		select {
		case <-r.timer.C:
		default:
		}
	}
	r.timer.Reset(d)
}

// C is the channel to select on for expiry.
func (r *resettableTimer) C() <-chan time.Time {
	return r.timer.C
}

func (r *resettableTimer) stop() {
	if !r.timer.Stop() {
		select {
		case <-r.timer.C:
		default:
		}
	}
}

// nextDelayReqDelay returns the periodic Delay-Req interval plus a
// pseudorandom jitter in [0, cfg.DelayReqJitter), so many clients
// sharing a server don't synchronize their requests.
func nextDelayReqDelay(cfg Config) time.Duration {
	jitter := time.Duration(0)
	if cfg.DelayReqJitter > 0 {
		jitter = time.Duration(rand.Int63n(int64(cfg.DelayReqJitter)))
	}
	return cfg.DelayReqInterval + jitter
}
