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

package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/embeddedtime/ptpclient/ptp/client"
)

// fileConfig is the on-disk form of the run subcommand's settings.
type fileConfig struct {
	Iface           string `yaml:"iface"`
	UseHWTimestamps bool   `yaml:"use_hw_timestamps"`
	RateAdjustable  bool   `yaml:"rate_adjustable"`
	UsePHC          bool   `yaml:"use_phc"`

	client.Config `yaml:",inline"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		UseHWTimestamps: true,
		Config:          client.DefaultConfig(),
	}
}

func readConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}
