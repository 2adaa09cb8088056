package benchmarks

import (
	"fmt"
	"io"

	"github.com/sarchlab/mesisim/insts"
	"github.com/sarchlab/mesisim/timing/cache"
	"github.com/sarchlab/mesisim/timing/latency"
	"github.com/sarchlab/mesisim/timing/system"
)

// Sweep parameter names.
const (
	ParamSetIndexBits  = "SetIndexBits"
	ParamAssociativity = "Associativity"
	ParamBlockBits     = "BlockBits"
)

// SweepConfig lists the values tried for each geometry parameter. Each
// parameter is varied on its own while the others keep their value in Base.
type SweepConfig struct {
	Base          cache.Config
	SetBits       []int
	Associativity []int
	BlockBits     []int
	Timing        *latency.TimingConfig
}

// DefaultSweepConfig returns the sweep around s=6, E=2, b=5.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Base:          cache.DefaultConfig(),
		SetBits:       []int{4, 6, 8},
		Associativity: []int{2, 4, 6},
		BlockBits:     []int{4, 5, 6},
		Timing:        latency.DefaultTimingConfig(),
	}
}

// SweepResult is one point of a sweep.
type SweepResult struct {
	Parameter        string
	Value            int
	MaxExecutionTime uint64
	CacheSize        int
}

// Sweep simulates traces once per parameter value.
func Sweep(config SweepConfig, traces [][]insts.Instruction) ([]SweepResult, error) {
	var results []SweepResult

	run := func(param string, value int, geometry cache.Config) error {
		opts := []system.Option{}
		if config.Timing != nil {
			opts = append(opts, system.WithTimingConfig(config.Timing))
		}

		s, err := system.NewSystem(geometry, traces, opts...)
		if err != nil {
			return fmt.Errorf("%s=%d: %w", param, value, err)
		}
		s.Run()

		results = append(results, SweepResult{
			Parameter:        param,
			Value:            value,
			MaxExecutionTime: s.Stats().MaxExecutionTime(),
			CacheSize:        geometry.TotalSize(),
		})

		return nil
	}

	for _, v := range config.SetBits {
		geometry := config.Base
		geometry.SetBits = v
		if err := run(ParamSetIndexBits, v, geometry); err != nil {
			return nil, err
		}
	}

	for _, v := range config.Associativity {
		geometry := config.Base
		geometry.Associativity = v
		if err := run(ParamAssociativity, v, geometry); err != nil {
			return nil, err
		}
	}

	for _, v := range config.BlockBits {
		geometry := config.Base
		geometry.BlockBits = v
		if err := run(ParamBlockBits, v, geometry); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// PrintSweepCSV writes sweep results as CSV.
func PrintSweepCSV(w io.Writer, results []SweepResult) error {
	if _, err := fmt.Fprintln(w, "Parameter,Value,MaxExecutionTime,CacheSize"); err != nil {
		return err
	}

	for _, r := range results {
		_, err := fmt.Fprintf(w, "%s,%d,%d,%d\n",
			r.Parameter, r.Value, r.MaxExecutionTime, r.CacheSize)
		if err != nil {
			return err
		}
	}

	return nil
}
