// Package report renders the statistics of a simulation run.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/sarchlab/mesisim/timing/cache"
	"github.com/sarchlab/mesisim/timing/system"
)

// Parameters describes the simulated configuration.
type Parameters struct {
	TracePrefix   string  `json:"trace_prefix"`
	SetBits       int     `json:"set_bits"`
	Associativity int     `json:"associativity"`
	BlockBits     int     `json:"block_bits"`
	BlockSize     int     `json:"block_size"`
	NumSets       int     `json:"num_sets"`
	CacheSizeKB   float64 `json:"cache_size_kb"`
}

// CoreReport holds the statistics of one core.
type CoreReport struct {
	Core                  int     `json:"core"`
	Instructions          uint64  `json:"instructions"`
	Reads                 uint64  `json:"reads"`
	Writes                uint64  `json:"writes"`
	ExecutionCycles       uint64  `json:"execution_cycles"`
	IdleCycles            uint64  `json:"idle_cycles"`
	StallCycles           uint64  `json:"stall_cycles"`
	FinishCycle           uint64  `json:"finish_cycle"`
	Misses                uint64  `json:"misses"`
	MissRate              float64 `json:"miss_rate_percent"`
	Evictions             uint64  `json:"evictions"`
	Writebacks            uint64  `json:"writebacks"`
	Invalidations         uint64  `json:"bus_invalidations"`
	InvalidationsReceived uint64  `json:"invalidations_received"`
	DataTrafficBytes      uint64  `json:"data_traffic_bytes"`
}

// BusReport holds the global bus statistics.
type BusReport struct {
	Transactions          uint64 `json:"transactions"`
	TrafficBytes          uint64 `json:"traffic_bytes"`
	CacheToCacheTransfers uint64 `json:"cache_to_cache_transfers"`
	MemoryFills           uint64 `json:"memory_fills"`
	Upgrades              uint64 `json:"upgrades"`
}

// Report is the complete result of a simulation run.
type Report struct {
	Parameters       Parameters   `json:"parameters"`
	Cycles           uint64       `json:"cycles"`
	MaxExecutionTime uint64       `json:"max_execution_time"`
	Cores            []CoreReport `json:"cores"`
	Bus              BusReport    `json:"bus"`
}

// New builds a report from the statistics of a finished run.
func New(tracePrefix string, config cache.Config, stats system.Stats) Report {
	r := Report{
		Parameters: Parameters{
			TracePrefix:   tracePrefix,
			SetBits:       config.SetBits,
			Associativity: config.Associativity,
			BlockBits:     config.BlockBits,
			BlockSize:     config.BlockSize(),
			NumSets:       config.NumSets(),
			CacheSizeKB:   float64(config.TotalSize()) / 1024,
		},
		Cycles:           stats.Cycles,
		MaxExecutionTime: stats.MaxExecutionTime(),
		Bus: BusReport{
			Transactions:          stats.Transactions,
			TrafficBytes:          stats.TrafficBytes,
			CacheToCacheTransfers: stats.CacheToCacheTransfers,
			MemoryFills:           stats.MemoryFills,
			Upgrades:              stats.Upgrades,
		},
	}

	for i, c := range stats.Cores {
		r.Cores = append(r.Cores, CoreReport{
			Core:                  i,
			Instructions:          c.Instructions,
			Reads:                 c.Reads,
			Writes:                c.Writes,
			ExecutionCycles:       c.ExecutionCycles,
			IdleCycles:            c.IdleCycles,
			StallCycles:           c.StallCycles,
			FinishCycle:           c.FinishCycle,
			Misses:                c.Misses,
			MissRate:              c.MissRate(),
			Evictions:             c.Evictions,
			Writebacks:            c.Writebacks,
			Invalidations:         c.Invalidations,
			InvalidationsReceived: c.InvalidationsReceived,
			DataTrafficBytes:      c.DataTrafficBytes,
		})
	}

	return r
}

// WriteText writes the human-readable report.
func WriteText(w io.Writer, r Report) error {
	p := &printer{w: w}

	p.printf("Simulation Parameters:\n")
	p.printf("Trace Prefix: %s\n", r.Parameters.TracePrefix)
	p.printf("Set Index Bits: %d\n", r.Parameters.SetBits)
	p.printf("Associativity: %d\n", r.Parameters.Associativity)
	p.printf("Block Bits: %d\n", r.Parameters.BlockBits)
	p.printf("Block Size (Bytes): %d\n", r.Parameters.BlockSize)
	p.printf("Number of Sets: %d\n", r.Parameters.NumSets)
	p.printf("Cache Size (KB per core): %.2f\n", r.Parameters.CacheSizeKB)
	p.printf("MESI Protocol: Enabled\n")
	p.printf("Write Policy: Write-back, Write-allocate\n")
	p.printf("Replacement Policy: LRU\n")
	p.printf("Bus: Central snooping bus\n\n")

	for _, c := range r.Cores {
		p.printf("Core %d Statistics:\n", c.Core)
		p.printf("Total Instructions: %d\n", c.Instructions)
		p.printf("Total Reads: %d\n", c.Reads)
		p.printf("Total Writes: %d\n", c.Writes)
		p.printf("Total Execution Cycles: %d\n", c.ExecutionCycles)
		p.printf("Idle Cycles: %d\n", c.IdleCycles)
		p.printf("Cache Misses: %d\n", c.Misses)
		p.printf("Cache Miss Rate: %.2f%%\n", c.MissRate)
		p.printf("Cache Evictions: %d\n", c.Evictions)
		p.printf("Writebacks: %d\n", c.Writebacks)
		p.printf("Bus Invalidations: %d\n", c.Invalidations)
		p.printf("Data Traffic (Bytes): %d\n\n", c.DataTrafficBytes)
	}

	p.printf("Overall Bus Summary:\n")
	p.printf("Total Bus Transactions: %d\n", r.Bus.Transactions)
	p.printf("Total Bus Traffic (Bytes): %d\n\n", r.Bus.TrafficBytes)
	p.printf("Total Simulation Cycles: %d\n", r.Cycles)
	p.printf("Maximum Execution Time (cycles): %d\n", r.MaxExecutionTime)

	return p.err
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

var csvHeader = []string{
	"core", "instructions", "reads", "writes", "execution_cycles",
	"idle_cycles", "stall_cycles", "finish_cycle", "misses", "miss_rate",
	"evictions", "writebacks", "bus_invalidations", "invalidations_received",
	"data_traffic_bytes",
}

// WriteCSV writes one row per core.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	for _, c := range r.Cores {
		row := []string{
			strconv.Itoa(c.Core),
			u(c.Instructions),
			u(c.Reads),
			u(c.Writes),
			u(c.ExecutionCycles),
			u(c.IdleCycles),
			u(c.StallCycles),
			u(c.FinishCycle),
			u(c.Misses),
			strconv.FormatFloat(c.MissRate, 'f', 2, 64),
			u(c.Evictions),
			u(c.Writebacks),
			u(c.Invalidations),
			u(c.InvalidationsReceived),
			u(c.DataTrafficBytes),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}
