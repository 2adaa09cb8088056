package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mesisim/loader"
	"github.com/sarchlab/mesisim/recording"
	"github.com/sarchlab/mesisim/report"
	"github.com/sarchlab/mesisim/timing/cache"
	"github.com/sarchlab/mesisim/timing/latency"
	"github.com/sarchlab/mesisim/timing/system"
)

// timingConfigEnv names the environment variable that points at a timing
// configuration file when --config is not given.
const timingConfigEnv = "MESISIM_TIMING_CONFIG"

type options struct {
	tracePrefix  string
	geometry     cache.Config
	outputPath   string
	timingPath   string
	verbose      bool
	check        bool
	cpuProfile   string
	errorsOutput io.Writer
}

var rootOpts = options{geometry: cache.DefaultConfig()}

var rootCmd = &cobra.Command{
	Use:   "mesisim",
	Short: "Simulate four cores with private MESI caches on a snooping bus.",
	Long: `mesisim replays one memory trace per core through private ` +
		`set-associative caches kept coherent by the MESI protocol over a ` +
		`shared snooping bus, and reports per-core and bus statistics.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if rootOpts.tracePrefix == "" {
			return fmt.Errorf("a trace prefix is required (-t)")
		}

		rootOpts.errorsOutput = cmd.ErrOrStderr()

		return simulate(rootOpts, cmd.OutOrStdout())
	},
}

func init() {
	addTraceFlag(rootCmd, &rootOpts)
	addGeometryFlags(rootCmd, &rootOpts)

	flags := rootCmd.Flags()
	flags.StringVarP(&rootOpts.outputPath, "output", "o", "",
		"write a log of the run to this file "+
			"(.sqlite3/.db: SQLite, .csv: CSV, otherwise the text report)")
	flags.BoolVarP(&rootOpts.verbose, "verbose", "v", false,
		"print every bus and coherence event to stderr")
	flags.BoolVar(&rootOpts.check, "check", false,
		"verify the coherence invariant after every cycle")
	flags.StringVar(&rootOpts.cpuProfile, "cpuprofile", "",
		"write a CPU profile to this file")

	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(benchCmd)
}

func addTraceFlag(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVarP(&opts.tracePrefix, "trace", "t", "",
		"trace prefix, reads <prefix>_proc0.trace .. <prefix>_proc3.trace")
}

// addGeometryFlags registers the cache geometry and timing flags shared by
// all commands.
func addGeometryFlags(cmd *cobra.Command, opts *options) {
	flags := cmd.Flags()
	flags.IntVarP(&opts.geometry.SetBits, "sets", "s", opts.geometry.SetBits,
		"number of set index bits (2^s sets)")
	flags.IntVarP(&opts.geometry.Associativity, "assoc", "E",
		opts.geometry.Associativity, "associativity (lines per set)")
	flags.IntVarP(&opts.geometry.BlockBits, "block", "b", opts.geometry.BlockBits,
		"number of block bits (2^b byte blocks)")
	flags.StringVar(&opts.timingPath, "config", "",
		"JSON timing configuration (default $"+timingConfigEnv+")")
}

// loadTiming returns the timing configuration named by path, by the
// environment, or the default one.
func loadTiming(path string) (*latency.TimingConfig, error) {
	if path == "" {
		path = os.Getenv(timingConfigEnv)
	}

	if path == "" {
		return latency.DefaultTimingConfig(), nil
	}

	config, err := latency.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load timing config: %w", err)
	}

	return config, nil
}

func simulate(opts options, stdout io.Writer) error {
	if opts.cpuProfile != "" {
		f, err := os.Create(opts.cpuProfile)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile: %w", err)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	if err := opts.geometry.Validate(); err != nil {
		return err
	}

	timing, err := loadTiming(opts.timingPath)
	if err != nil {
		return err
	}

	traces, err := loader.LoadApp(opts.tracePrefix)
	if err != nil {
		return err
	}

	sysOpts := []system.Option{system.WithTimingConfig(timing)}
	if opts.check {
		sysOpts = append(sysOpts, system.WithInvariantChecking())
	}

	var logHook *recording.LogHook
	if opts.verbose {
		errOut := opts.errorsOutput
		if errOut == nil {
			errOut = os.Stderr
		}
		logHook = recording.NewLogHook(log.New(errOut, "", 0))
		sysOpts = append(sysOpts, system.WithHook(logHook))
	}

	out, err := openOutput(opts.outputPath)
	if err != nil {
		return err
	}
	defer func() { _ = out.close() }()

	if out.recorder != nil {
		sysOpts = append(sysOpts, system.WithHook(out.recorder))
	}

	s, err := system.NewSystem(opts.geometry, traces, sysOpts...)
	if err != nil {
		return err
	}

	if logHook != nil {
		logHook.SetClock(s.Cycle)
	}
	if out.recorder != nil {
		out.recorder.SetClock(s.Cycle)
	}

	s.Run()

	rep := report.New(opts.tracePrefix, opts.geometry, s.Stats())
	if err := report.WriteText(stdout, rep); err != nil {
		return err
	}

	return out.finish(rep)
}

// output is the destination of the -o log.
type output struct {
	recorder *recording.Recorder
	closer   io.Closer
	textPath string
}

func openOutput(path string) (*output, error) {
	out := &output{}
	if path == "" {
		return out, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".sqlite3", ".sqlite", ".db":
		w := recording.NewSQLiteWriter(path)
		if err := w.Init(); err != nil {
			return nil, err
		}
		out.recorder = recording.NewRecorder(w)
		out.closer = w
	case ".csv":
		w := recording.NewCSVWriter(path)
		if err := w.Init(); err != nil {
			return nil, err
		}
		out.recorder = recording.NewRecorder(w)
		out.closer = w
	default:
		out.textPath = path
	}

	return out, nil
}

func (o *output) finish(rep report.Report) error {
	if o.recorder != nil {
		return o.recorder.Finish(rep)
	}

	if o.textPath == "" {
		return nil
	}

	f, err := os.Create(o.textPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := report.WriteText(f, rep); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

func (o *output) close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}
