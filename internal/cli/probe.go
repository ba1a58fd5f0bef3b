package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"webuictl/internal/probe"
	"webuictl/pkg/types"
)

func newProbeCmd(opts *rootOpts) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Print the probed environment profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			prof, err := probe.New(opts.logger).Probe(cmd.Context())
			if err != nil {
				return exitCodeError{code: 2, msg: err.Error()}
			}
			if asJSON {
				b, err := json.MarshalIndent(prof, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			printProfile(cmd, prof)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the profile as JSON")
	return cmd
}

func printProfile(cmd *cobra.Command, prof types.Profile) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "runtime:     %s\n", prof.RuntimeVersion)
	fmt.Fprintf(out, "os:          %s\n", prof.OS)
	fmt.Fprintf(out, "accelerator: %s", prof.Accelerator)
	if prof.AcceleratorName != "" {
		fmt.Fprintf(out, " (%s)", prof.AcceleratorName)
	}
	fmt.Fprintln(out)
	if prof.VRAMBytes > 0 {
		fmt.Fprintf(out, "vram:        %d MiB\n", prof.VRAMBytes/(1024*1024))
	}
	if prof.DriverVersion != "" {
		fmt.Fprintf(out, "driver:      %s\n", prof.DriverVersion)
	}
	for _, c := range []types.Capability{types.CapFastAttention, types.CapHalfPrecision} {
		if p, ok := prof.Capabilities[c]; ok {
			fmt.Fprintf(out, "%-12s %s\n", string(c)+":", p)
		}
	}
}
