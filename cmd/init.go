package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Writes the built-in topology to a file, as a starting point for custom topologies",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := "topology.yaml"
		if len(args) == 1 {
			out = args[0]
		}
		if err := state.PathValidator(out); err != nil {
			return err
		}
		if _, err := os.Stat(out); err == nil && !initForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", out)
		}
		if err := state.SaveTopology(out, state.CanonicalTopology()); err != nil {
			return err
		}
		fmt.Printf("Wrote topology to %s\n", out)
		return nil
	},
	GroupID: "cfg",
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
}
