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
	"fmt"
	"time"
)

// Config holds the client's tunables, YAML-tagged for the config
// file loader.
type Config struct {
	// DelayReqInterval is the nominal period between Delay-Req
	// transmissions; actual spacing adds a pseudorandom jitter in
	// [0, DelayReqJitter).
	DelayReqInterval time.Duration `yaml:"delay_req_interval"`
	DelayReqJitter   time.Duration `yaml:"delay_req_jitter"`

	// DelayReqTimeout bounds how long the client waits in
	// WAIT_FOR_DELAY_RESP before giving up and retrying.
	DelayReqTimeout time.Duration `yaml:"delay_req_timeout"`

	// RTTPlausibilityLimitNS rejects any raw RTT sample above this
	// many nanoseconds.
	RTTPlausibilityLimitNS int64 `yaml:"rtt_plausibility_limit_ns"`

	// DriftPlausibilityLimitQ32 rejects any smoothed drift whose
	// magnitude, in q32 units, exceeds this.
	DriftPlausibilityLimitQ32 int32 `yaml:"drift_plausibility_limit_q32"`
}

// DefaultConfig returns the standard defaults.
func DefaultConfig() Config {
	return Config{
		DelayReqInterval:          10 * time.Second,
		DelayReqJitter:            1_048_576 * time.Microsecond, // 2^20 microseconds
		DelayReqTimeout:           500 * time.Millisecond,
		RTTPlausibilityLimitNS:    200_000,
		DriftPlausibilityLimitQ32: 42_949_673,
	}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.DelayReqInterval <= 0 {
		return fmt.Errorf("delay_req_interval must be positive, got %s", c.DelayReqInterval)
	}
	if c.DelayReqJitter < 0 {
		return fmt.Errorf("delay_req_jitter must not be negative, got %s", c.DelayReqJitter)
	}
	if c.DelayReqTimeout <= 0 {
		return fmt.Errorf("delay_req_timeout must be positive, got %s", c.DelayReqTimeout)
	}
	if c.RTTPlausibilityLimitNS <= 0 {
		return fmt.Errorf("rtt_plausibility_limit_ns must be positive, got %d", c.RTTPlausibilityLimitNS)
	}
	if c.DriftPlausibilityLimitQ32 <= 0 {
		return fmt.Errorf("drift_plausibility_limit_q32 must be positive, got %d", c.DriftPlausibilityLimitQ32)
	}
	return nil
}
