// File: cmd/devices.go
package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/droidpilot/internal/device"
)

func newDevicesCmd(runner device.CommandRunner) *cobra.Command {
	var asJSON bool

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List devices visible to adb",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			devices, err := device.ListDevices(cmd.Context(), runner, cfg.Device().ADBPath)
			if err != nil {
				return err
			}
			if asJSON {
				return printDevicesJSON(cmd.OutOrStdout(), devices)
			}
			return printDevices(cmd.OutOrStdout(), devices)
		},
	}
	devicesCmd.Flags().BoolVar(&asJSON, "json", false, "Print the device list as JSON")
	return devicesCmd
}

func printDevicesJSON(out io.Writer, devices []device.Info) error {
	if devices == nil {
		devices = []device.Info{}
	}
	data, err := json.ConfigCompatibleWithStandardLibrary.MarshalIndent(devices, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize device list: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func printDevices(out io.Writer, devices []device.Info) error {
	if len(devices) == 0 {
		_, err := fmt.Fprintln(out, "No devices attached.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIAL\tSTATE\tDETAILS")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Serial, d.State, formatAttributes(d.Attributes))
	}
	return tw.Flush()
}

func formatAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+attrs[k])
	}
	return strings.Join(parts, " ")
}
