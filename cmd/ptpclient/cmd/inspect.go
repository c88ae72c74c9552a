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
	"net"

	"github.com/spf13/cobra"

	"github.com/embeddedtime/ptpclient/phc"
)

func init() {
	RootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [iface]",
	Short: "Report local PTP capability: PHC devices and their state",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ConfigureVerbosity()
		if len(args) == 1 {
			return inspectIface(args[0])
		}
		ifaces, err := net.Interfaces()
		if err != nil {
			return err
		}
		for _, iface := range ifaces {
			if err := inspectIface(iface.Name); err != nil {
				fmt.Printf("%s: %v\n", iface.Name, err)
			}
		}
		return nil
	},
}

func inspectIface(name string) error {
	device, err := phc.IfaceToPHCDevice(name)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", name, device)
	freq, err := phc.FrequencyPPBFromDevice(device)
	if err != nil {
		fmt.Printf("  frequency: unreadable: %v\n", err)
		return nil
	}
	fmt.Printf("  frequency: %.3f ppb\n", freq)
	res, err := phc.TimeAndOffsetFromDevice(device, phc.MethodSyscallClockGettime)
	if err != nil {
		fmt.Printf("  time: unreadable: %v\n", err)
		return nil
	}
	fmt.Printf("  time: %s (offset from system clock %s, call delay %s)\n",
		res.PHCTime, res.Offset, res.Delay)
	return nil
}
