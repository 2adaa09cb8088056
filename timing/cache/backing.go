package cache

// BackingStore is the next level in the memory hierarchy. Blocks are
// identified by their block-aligned address.
type BackingStore interface {
	// ReadBlock fetches a block from the backing store.
	ReadBlock(addr uint32)
	// WriteBlock stores a block into the backing store.
	WriteBlock(addr uint32)
}

// MemoryStatistics holds main memory access counts.
type MemoryStatistics struct {
	BlockReads  uint64
	BlockWrites uint64
}

// Memory is a main memory model. It carries no data; it counts block
// transfers and remembers how many times each block was written back.
type Memory struct {
	stats    MemoryStatistics
	versions map[uint32]uint64
}

// NewMemory creates a new Memory.
func NewMemory() *Memory {
	return &Memory{versions: make(map[uint32]uint64)}
}

// ReadBlock records a block fetched from memory.
func (m *Memory) ReadBlock(addr uint32) {
	m.stats.BlockReads++
}

// WriteBlock records a block written back to memory.
func (m *Memory) WriteBlock(addr uint32) {
	m.stats.BlockWrites++
	m.versions[addr]++
}

// Version returns the number of writebacks the block at addr received.
func (m *Memory) Version(addr uint32) uint64 {
	return m.versions[addr]
}

// Stats returns memory statistics.
func (m *Memory) Stats() MemoryStatistics {
	return m.stats
}
