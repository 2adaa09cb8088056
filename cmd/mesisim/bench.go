package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mesisim/benchmarks"
)

var benchOpts struct {
	options
	format string
	core   bool
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the built-in sharing-pattern benchmarks.",
	Long: `bench runs synthetic four-core workloads (private streaming, ` +
		`false sharing, producer/consumer, ping-pong, read sharing and ` +
		`conflict eviction) and prints their timing and bus statistics.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		timing, err := loadTiming(benchOpts.timingPath)
		if err != nil {
			return err
		}

		config := benchmarks.DefaultConfig()
		config.Cache = benchOpts.geometry
		config.Timing = timing
		config.CheckInvariant = benchOpts.check
		config.Verbose = benchOpts.verbose
		config.Output = cmd.OutOrStdout()

		harness := benchmarks.NewHarness(config)
		if benchOpts.core {
			harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
		} else {
			harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
		}

		results, err := harness.RunAll()
		if err != nil {
			return err
		}

		switch benchOpts.format {
		case "text":
			harness.PrintResults(results)
		case "csv":
			harness.PrintCSV(results)
		case "json":
			return harness.PrintJSON(results)
		default:
			return fmt.Errorf("unknown format %q", benchOpts.format)
		}

		return nil
	},
}

func init() {
	benchOpts.geometry = benchmarks.DefaultConfig().Cache

	addGeometryFlags(benchCmd, &benchOpts.options)

	flags := benchCmd.Flags()
	flags.StringVar(&benchOpts.format, "format", "text",
		"output format: text, csv or json")
	flags.BoolVar(&benchOpts.core, "core", false,
		"run only the core subset of the benchmarks")
	flags.BoolVar(&benchOpts.check, "check", false,
		"verify the coherence invariant after every cycle")
	flags.BoolVarP(&benchOpts.verbose, "verbose", "v", false,
		"print the wall time of each benchmark")
}
