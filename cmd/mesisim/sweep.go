package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mesisim/benchmarks"
	"github.com/sarchlab/mesisim/loader"
)

var sweepOpts = options{geometry: benchmarks.DefaultSweepConfig().Base}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Vary s, E and b one at a time and print the maximum execution time.",
	Long: `sweep simulates the traces once per value of s in {4,6,8}, E in ` +
		`{2,4,6} and b in {4,5,6}, keeping the other parameters at the ` +
		`values given by -s, -E and -b, and prints one CSV row per run.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if sweepOpts.tracePrefix == "" {
			return fmt.Errorf("a trace prefix is required (-t)")
		}

		timing, err := loadTiming(sweepOpts.timingPath)
		if err != nil {
			return err
		}

		traces, err := loader.LoadApp(sweepOpts.tracePrefix)
		if err != nil {
			return err
		}

		config := benchmarks.DefaultSweepConfig()
		config.Base = sweepOpts.geometry
		config.Timing = timing

		results, err := benchmarks.Sweep(config, traces)
		if err != nil {
			return err
		}

		return benchmarks.PrintSweepCSV(cmd.OutOrStdout(), results)
	},
}

func init() {
	addTraceFlag(sweepCmd, &sweepOpts)
	addGeometryFlags(sweepCmd, &sweepOpts)
}
