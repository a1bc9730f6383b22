package cmd

import (
	"fmt"
	"math/rand/v2"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var (
	inspectRounds  int
	inspectAnomaly []string
	inspectRandom  int
	inspectSeed    uint64
	inspectCheck   bool
)

var inspectCmd = &cobra.Command{
	Use:     "inspect",
	Aliases: []string{"i"},
	Short:   "Runs rounds synchronously and prints the resulting tables",
	Long: `Builds the network, converges it, applies the requested anomalies, reconverges and prints every routing table.
With --check the tables are compared against an independent shortest-path computation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		topo, err := state.LoadTopology(topologyPath)
		if err != nil {
			return err
		}
		injector := core.NewInjector(rand.New(rand.NewPCG(inspectSeed, inspectSeed)), 0)
		sim, err := core.NewSimulator(*topo, injector, nil)
		if err != nil {
			return err
		}

		converge := func() error {
			n, ok, err := sim.Converge(inspectRounds)
			if err != nil {
				return err
			}
			if ok {
				fmt.Printf("Converged after %d rounds\n", n)
			} else {
				fmt.Printf("Not converged after %d rounds\n", n)
			}
			return nil
		}

		if err := converge(); err != nil {
			return err
		}
		fmt.Print(core.RenderTables(sim.Snapshot()))

		reports := make([]core.AnomalyReport, 0)
		for _, node := range inspectAnomaly {
			report, err := sim.InjectAnomalyAt(state.NodeId(node))
			if err != nil {
				return err
			}
			reports = append(reports, report)
		}
		for range inspectRandom {
			report, err := sim.InjectAnomaly()
			if err != nil {
				return err
			}
			reports = append(reports, report)
		}
		if len(reports) != 0 {
			for _, report := range reports {
				fmt.Print(core.RenderAnomaly(report))
			}
			if err := converge(); err != nil {
				return err
			}
			fmt.Print(core.RenderTables(sim.Snapshot()))
		}
		fmt.Print(core.RenderLinks(sim.Snapshot()))

		if inspectCheck {
			mismatches := core.CheckConvergence(sim.Network)
			if len(mismatches) != 0 {
				for _, m := range mismatches {
					fmt.Println(" ! " + m.String())
				}
				return fmt.Errorf("%d table entries differ from the shortest paths", len(mismatches))
			}
			fmt.Println("Every table matches the shortest paths")
		}
		return nil
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().IntVarP(&inspectRounds, "rounds", "n", 16, "Maximum number of rounds to converge")
	inspectCmd.Flags().StringSliceVarP(&inspectAnomaly, "anomaly", "a", nil, "Inject an anomaly at these nodes after converging")
	inspectCmd.Flags().IntVarP(&inspectRandom, "random-anomalies", "r", 0, "Inject this many anomalies at random nodes after converging")
	inspectCmd.Flags().Uint64Var(&inspectSeed, "seed", 1, "Seed for random anomaly selection")
	inspectCmd.Flags().BoolVarP(&inspectCheck, "check", "c", false, "Compare the tables with an independent shortest-path computation")
}
