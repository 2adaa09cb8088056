// Package benchmarks provides coherence benchmark workloads and the harness
// that runs them on the simulated multiprocessor.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/mesisim/insts"
	"github.com/sarchlab/mesisim/timing/cache"
	"github.com/sarchlab/mesisim/timing/latency"
	"github.com/sarchlab/mesisim/timing/system"
)

// BenchmarkResult holds the results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the cycle count at quiescence
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// MaxExecutionTime is the largest per-core finish cycle
	MaxExecutionTime uint64 `json:"max_execution_time"`

	// Instructions is the number of trace operations retired by all cores
	Instructions uint64 `json:"instructions"`

	// Misses is the number of cache misses over all cores
	Misses uint64 `json:"misses"`

	// MissRate is the miss rate over all cores, in percent
	MissRate float64 `json:"miss_rate_percent"`

	// StallCycles is the sum of per-core stall cycles
	StallCycles uint64 `json:"stall_cycles"`

	// Writebacks is the number of blocks written back to memory
	Writebacks uint64 `json:"writebacks"`

	// Invalidations is the number of transactions that invalidated copies
	Invalidations uint64 `json:"invalidations"`

	// Bus summary
	Transactions          uint64 `json:"transactions"`
	TrafficBytes          uint64 `json:"traffic_bytes"`
	CacheToCacheTransfers uint64 `json:"cache_to_cache_transfers"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single multi-core workload.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Traces holds one memory trace per core
	Traces [][]insts.Instruction
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Cache is the per-core cache geometry
	Cache cache.Config

	// Timing holds the bus latencies (default when nil)
	Timing *latency.TimingConfig

	// CheckInvariant verifies coherence after every cycle
	CheckInvariant bool

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Cache:   cache.DefaultConfig(),
		Timing:  latency.DefaultTimingConfig(),
		Output:  os.Stdout,
		Verbose: false,
	}
}

// Harness runs benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results. It stops at the first
// benchmark that cannot be simulated.
func (h *Harness) RunAll() ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result, err := h.runBenchmark(bench)
		if err != nil {
			return results, fmt.Errorf("benchmark %s: %w", bench.Name, err)
		}
		results = append(results, result)

		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "ran %s in %v\n",
				bench.Name, result.WallTime)
		}
	}

	return results, nil
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) (BenchmarkResult, error) {
	opts := []system.Option{system.WithTimingConfig(h.config.Timing)}
	if h.config.CheckInvariant {
		opts = append(opts, system.WithInvariantChecking())
	}

	s, err := system.NewSystem(h.config.Cache, bench.Traces, opts...)
	if err != nil {
		return BenchmarkResult{}, err
	}

	// Run simulation and measure time
	start := time.Now()
	s.Run()
	wallTime := time.Since(start)

	stats := s.Stats()
	result := BenchmarkResult{
		Name:                  bench.Name,
		Description:           bench.Description,
		SimulatedCycles:       stats.Cycles,
		MaxExecutionTime:      stats.MaxExecutionTime(),
		Transactions:          stats.Transactions,
		TrafficBytes:          stats.TrafficBytes,
		CacheToCacheTransfers: stats.CacheToCacheTransfers,
		WallTime:              wallTime,
	}

	var accesses uint64
	for _, c := range stats.Cores {
		result.Instructions += c.Instructions
		result.Misses += c.Misses
		result.StallCycles += c.StallCycles
		result.Writebacks += c.Writebacks
		result.Invalidations += c.Invalidations
		accesses += c.Reads + c.Writes
	}

	if accesses > 0 {
		result.MissRate = float64(result.Misses) * 100 / float64(accesses)
	}

	return result, nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== MESI Coherence Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Max Execution Time:   %d\n", r.MaxExecutionTime)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions:         %d\n", r.Instructions)
		_, _ = fmt.Fprintf(h.config.Output, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Caches ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Misses:    %d\n", r.Misses)
		_, _ = fmt.Fprintf(h.config.Output, "  Miss Rate: %.2f%%\n", r.MissRate)

		if r.Writebacks > 0 || r.Invalidations > 0 {
			_, _ = fmt.Fprintf(h.config.Output, "  Writebacks:    %d\n", r.Writebacks)
			_, _ = fmt.Fprintf(h.config.Output, "  Invalidations: %d\n", r.Invalidations)
		}

		_, _ = fmt.Fprintln(h.config.Output, "  --- Bus ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Transactions:    %d\n", r.Transactions)
		_, _ = fmt.Fprintf(h.config.Output, "  Traffic (Bytes): %d\n", r.TrafficBytes)
		_, _ = fmt.Fprintf(h.config.Output, "  Cache-to-Cache:  %d\n", r.CacheToCacheTransfers)

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,max_execution_time,instructions,misses,miss_rate,stall_cycles,writebacks,invalidations,transactions,traffic_bytes,cache_to_cache")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%d,%.2f,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.MaxExecutionTime,
			r.Instructions,
			r.Misses,
			r.MissRate,
			r.StallCycles,
			r.Writebacks,
			r.Invalidations,
			r.Transactions,
			r.TrafficBytes,
			r.CacheToCacheTransfers,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Cache is the simulated geometry
	Cache cache.Config `json:"cache"`

	// Timing holds the bus latencies
	Timing latency.TimingConfig `json:"timing"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalTransactions is the sum of all bus transactions
	TotalTransactions uint64 `json:"total_transactions"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalCycles, totalTransactions uint64
	var totalWallTime time.Duration
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalTransactions += r.Transactions
		totalWallTime += r.WallTime
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Cache:     h.config.Cache,
			Timing:    *h.config.Timing,
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			TotalCycles:       totalCycles,
			TotalTransactions: totalTransactions,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
