package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var runCfg = state.DefaultRunCfg()

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation",
	Long: `Advances the network one round at a time on a fixed cadence until interrupted or until the stop condition is reached.
The final routing tables are printed on exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		verbose, _ := cmd.Flags().GetBool("verbose")
		snap, err := core.Bootstrap(ctx, topologyPath, runCfg, verbose)
		if err != nil {
			return err
		}
		fmt.Print(core.RenderTables(snap))
		fmt.Print(core.RenderLinks(snap))
		return nil
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().DurationVarP(&runCfg.StepDelay, "interval", "i", runCfg.StepDelay, "Time between rounds")
	runCmd.Flags().Uint64VarP(&runCfg.MaxRounds, "rounds", "n", 0, "Stop after this many rounds, 0 runs until interrupted")
	runCmd.Flags().BoolVarP(&runCfg.UntilConverged, "until-converged", "u", false, "Stop once a round leaves every table unchanged")
	runCmd.Flags().DurationVar(&runCfg.AnomalyAfter, "anomaly-after", 0, "Inject one anomaly after this delay")
	runCmd.Flags().DurationVar(&runCfg.AnomalyEvery, "anomaly-every", 0, "Inject an anomaly periodically")
	runCmd.Flags().DurationVar(&runCfg.AnomalyCooldown, "anomaly-cooldown", 0, "Avoid re-selecting a node hit within this window")
	runCmd.Flags().Uint64Var(&runCfg.Seed, "seed", runCfg.Seed, "Seed for anomaly target selection")
	runCmd.Flags().StringVar(&runCfg.HttpBind, "http", "", fmt.Sprintf("Serve the inspect api on this address, e.g. %s", state.DefaultHttpBind))
	runCmd.Flags().StringVarP(&runCfg.LogPath, "log-path", "l", "", "Also write logs to this file")
	runCmd.Flags().BoolVarP(&state.DBG_log_router, "lroute", "r", false, "Write router events to the console (needs --verbose)")
	runCmd.Flags().BoolVarP(&state.DBG_log_round, "ltable", "g", false, "Write every table after each round")
}
