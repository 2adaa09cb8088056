package system

// CoreStats holds the statistics of one core and its cache.
type CoreStats struct {
	Instructions uint64
	Reads        uint64
	Writes       uint64

	Hits           uint64
	Misses         uint64
	Upgrades       uint64
	Evictions      uint64
	DirtyEvictions uint64

	BusRequests           uint64
	Writebacks            uint64
	Invalidations         uint64
	InvalidationsReceived uint64
	DataTrafficBytes      uint64

	StallCycles uint64
	// FinishCycle is the cycle count at which the core retired its last
	// operation, or the current cycle if it is still running.
	FinishCycle uint64
	// ExecutionCycles is the number of cycles the core spent on its trace
	// without being stalled.
	ExecutionCycles uint64
	// IdleCycles is the rest of the simulated cycles.
	IdleCycles uint64
}

// MissRate returns the miss rate in percent.
func (c CoreStats) MissRate() float64 {
	accesses := c.Reads + c.Writes
	if accesses == 0 {
		return 0
	}
	return float64(c.Misses) * 100 / float64(accesses)
}

// Stats holds the statistics of a whole run.
type Stats struct {
	Cycles uint64
	Cores  []CoreStats

	Transactions          uint64
	TrafficBytes          uint64
	CacheToCacheTransfers uint64
	MemoryFills           uint64
	Upgrades              uint64
}

// MaxExecutionTime returns the largest finish cycle over all cores.
func (s Stats) MaxExecutionTime() uint64 {
	var longest uint64
	for _, c := range s.Cores {
		if c.FinishCycle > longest {
			longest = c.FinishCycle
		}
	}
	return longest
}

// Stats collects the statistics of the cores, the caches and the bus.
func (s *System) Stats() Stats {
	busStats := s.bus.Stats()

	stats := Stats{
		Cycles:                s.cycle,
		Cores:                 make([]CoreStats, len(s.cores)),
		Transactions:          busStats.Transactions,
		TrafficBytes:          busStats.TrafficBytes,
		CacheToCacheTransfers: busStats.CacheToCacheTransfers,
		MemoryFills:           busStats.MemoryFills,
		Upgrades:              busStats.Upgrades,
	}

	for i, c := range s.cores {
		coreStats := c.Stats()
		cacheStats := s.caches[i].Stats()
		busCore := busStats.PerCore[i]

		finish := c.FinishCycle()
		if c.Active() {
			finish = s.cycle
		}

		execution := finish - coreStats.StallCycles

		stats.Cores[i] = CoreStats{
			Instructions:          coreStats.Instructions,
			Reads:                 coreStats.Reads,
			Writes:                coreStats.Writes,
			Hits:                  cacheStats.Hits,
			Misses:                cacheStats.Misses,
			Upgrades:              cacheStats.Upgrades,
			Evictions:             cacheStats.Evictions,
			DirtyEvictions:        cacheStats.DirtyEvictions,
			BusRequests:           coreStats.BusRequests,
			Writebacks:            busCore.Writebacks,
			Invalidations:         busCore.Invalidations,
			InvalidationsReceived: busCore.InvalidationsReceived,
			DataTrafficBytes:      busCore.DataTrafficBytes,
			StallCycles:           coreStats.StallCycles,
			FinishCycle:           finish,
			ExecutionCycles:       execution,
			IdleCycles:            s.cycle - execution,
		}
	}

	return stats
}
