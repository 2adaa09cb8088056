// Package latency provides the bus timing model for cycle-level simulation.
//
// Every bus transfer occupies the bus for a number of cycles that depends on
// where the data comes from. The values can be configured via TimingConfig.
package latency

// Table provides transfer latency lookups for a given block size.
type Table struct {
	config    *TimingConfig
	blockSize int
}

// NewTable creates a new latency table with default timing values.
func NewTable(blockSize int) *Table {
	return &Table{
		config:    DefaultTimingConfig(),
		blockSize: blockSize,
	}
}

// NewTableWithConfig creates a new latency table with custom timing
// configuration.
func NewTableWithConfig(config *TimingConfig, blockSize int) *Table {
	return &Table{
		config:    config,
		blockSize: blockSize,
	}
}

// MemoryFill returns the latency of a block supplied by main memory.
func (t *Table) MemoryFill() uint64 {
	return t.config.MemoryLatency
}

// CacheToCache returns the latency of a block supplied by another cache.
func (t *Table) CacheToCache() uint64 {
	if t.config.CacheToCacheLatency != 0 {
		return t.config.CacheToCacheLatency
	}

	return uint64(t.blockSize / 2)
}

// Writeback returns the latency of writing a dirty block to memory.
func (t *Table) Writeback() uint64 {
	return t.config.WritebackLatency
}

// Upgrade returns the latency of an invalidation-only transaction.
func (t *Table) Upgrade() uint64 {
	return t.config.UpgradeLatency
}

// BlockSize returns the block size the table was built for.
func (t *Table) BlockSize() int {
	return t.blockSize
}

// Config returns the timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
