package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMatrixCmd(opts *rootOpts) *cobra.Command {
	var matrixPath string
	root := &cobra.Command{Use: "matrix", Short: "Inspect the compatibility matrix", RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("matrix requires a subcommand: validate|show")
	}}
	root.PersistentFlags().StringVar(&matrixPath, "matrix", "", "Path to a compatibility matrix file (default: built-in)")

	validateCmd := &cobra.Command{Use: "validate", Short: "Load and validate the matrix, launch nothing", RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadMatrix(matrixPath)
		if err != nil {
			return exitCodeError{code: 2, msg: err.Error()}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "matrix version %d valid: %d rule(s)\n", m.Version, len(m.Rules))
		return nil
	}}

	showCmd := &cobra.Command{Use: "show", Short: "Print the loaded rules in priority order", RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadMatrix(matrixPath)
		if err != nil {
			return exitCodeError{code: 2, msg: err.Error()}
		}
		for _, r := range m.Rules {
			fmt.Fprintf(cmd.OutOrStdout(), "rule %q priority=%d\n", r.Name, r.Priority)
			if len(r.When.Accelerator) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  when accelerator in %v\n", r.When.Accelerator)
			}
			if len(r.When.Requires) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  when capabilities %v present\n", r.When.Requires)
			}
			for i, c := range r.Candidates {
				fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s (%s/%s/%s)\n", i+1, c.Label, c.Precision, c.Attention, c.Memory)
			}
		}
		return nil
	}}

	root.AddCommand(validateCmd, showCmd)
	return root
}
