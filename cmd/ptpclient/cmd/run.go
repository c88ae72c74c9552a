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
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/embeddedtime/ptpclient/ptp/client"
	"github.com/embeddedtime/ptpclient/ptp/hwclock/phcdev"
	"github.com/embeddedtime/ptpclient/ptp/hwclock/sysclock"
	ptp "github.com/embeddedtime/ptpclient/ptp/protocol"
	"github.com/embeddedtime/ptpclient/ptp/transport/udp"
)

var runCfgPath string

func init() {
	runCmd.Flags().StringVar(&runCfgPath, "config", "", "path to the client config file")
	RootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the PTPv2 client against the multicast domain",
	RunE: func(_ *cobra.Command, _ []string) error {
		ConfigureVerbosity()
		cfg, err := readConfig(runCfgPath)
		if err != nil {
			return err
		}

		iface, clockID, err := localIdentity(cfg.Iface)
		if err != nil {
			return fmt.Errorf("ptp: deriving local clock identity: %w", err)
		}
		log.Infof("ptp: local clock identity %s on %s", clockID, iface)

		tr := udp.New(iface, cfg.UseHWTimestamps)

		var hwclock client.Clock
		if cfg.UsePHC {
			phc, err := phcdev.New(iface)
			if err != nil {
				log.Warningf("ptp: no PHC device for %s, falling back to the system clock: %v", iface, err)
				hwclock = &sysclock.Clock{RateAdjustable: cfg.RateAdjustable}
			} else {
				hwclock = phc
			}
		} else {
			hwclock = &sysclock.Clock{RateAdjustable: cfg.RateAdjustable}
		}

		c := client.New(clockID, cfg.Config, tr, hwclock)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		go logStatsForever(ctx, c.Stats())
		return c.Start(ctx)
	},
}

// logStatsForever periodically logs the read-only inspection surface,
// keeping a long-running daemon observable from its own log without a
// separate shell.
func logStatsForever(ctx context.Context, stats client.Stats) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id, present := stats.SelectedServer()
			if !present {
				log.Infof("ptp: stats: no server selected yet")
				continue
			}
			log.Infof("ptp: stats: server=%s rtt=%dns utc_offset=%ds drift=%d(q32)",
				id, stats.RTT(), stats.UTCOffset(), stats.Drift())
		}
	}
}

// localIdentity resolves the interface to run on (falling back to the
// first interface with a usable IPv6 address) and derives the local
// clock identity from its MAC address.
func localIdentity(ifaceName string) (string, ptp.ClockIdentity, error) {
	if ifaceName != "" {
		iface, err := net.InterfaceByName(ifaceName)
		if err != nil {
			return "", 0, err
		}
		id, err := ptp.NewClockIdentity(iface.HardwareAddr)
		return ifaceName, id, err
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return "", 0, fmt.Errorf("ptp: no interfaces: %w", err)
	}
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipn, ok := a.(*net.IPNet)
			if ok && ipn.IP.To4() == nil && ipn.IP.IsGlobalUnicast() {
				id, err := ptp.NewClockIdentity(iface.HardwareAddr)
				return iface.Name, id, err
			}
		}
	}
	return "", 0, fmt.Errorf("ptp: no interface with a usable ipv6 address")
}
