package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds latency values for the different bus transfers.
type TimingConfig struct {
	// MemoryLatency is the number of cycles needed to fetch a block from
	// main memory. Default: 100 cycles.
	MemoryLatency uint64 `json:"memory_latency"`

	// WritebackLatency is the number of cycles needed to write a dirty block
	// back to main memory. Default: 100 cycles.
	WritebackLatency uint64 `json:"writeback_latency"`

	// CacheToCacheLatency is the number of cycles needed to move a block
	// from one cache to another. Zero selects blockSize/2, the time needed
	// to move the block two bytes per cycle. Default: 0 (derived).
	CacheToCacheLatency uint64 `json:"cache_to_cache_latency"`

	// UpgradeLatency is the number of cycles an upgrade occupies the bus
	// beyond the invalidation itself. No data moves. Default: 0 cycles.
	UpgradeLatency uint64 `json:"upgrade_latency"`
}

// DefaultTimingConfig returns a TimingConfig with the default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		MemoryLatency:       100,
		WritebackLatency:    100,
		CacheToCacheLatency: 0,
		UpgradeLatency:      0,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid.
func (c *TimingConfig) Validate() error {
	if c.MemoryLatency == 0 {
		return fmt.Errorf("memory_latency must be > 0")
	}
	if c.WritebackLatency == 0 {
		return fmt.Errorf("writeback_latency must be > 0")
	}
	if c.CacheToCacheLatency > c.MemoryLatency {
		return fmt.Errorf("cache_to_cache_latency must be <= memory_latency")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	return &TimingConfig{
		MemoryLatency:       c.MemoryLatency,
		WritebackLatency:    c.WritebackLatency,
		CacheToCacheLatency: c.CacheToCacheLatency,
		UpgradeLatency:      c.UpgradeLatency,
	}
}
