package cmd

import (
	"fmt"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validates the topology file",
	RunE: func(cmd *cobra.Command, args []string) error {
		topo, err := state.LoadTopology(topologyPath)
		if err != nil {
			return err
		}
		net, err := state.BuildNetwork(*topo)
		if err != nil {
			return err
		}

		cfgYaml, err := yaml.Marshal(topo)
		if err != nil {
			return err
		}

		fmt.Println("Topology is valid")
		fmt.Println(string(cfgYaml))
		fmt.Print(core.RenderLinks(net.Snapshot()))
		return nil
	},
	GroupID: "cfg",
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
