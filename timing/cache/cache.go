// Package cache provides the per-core private cache model using Akita cache
// components.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads          uint64
	Writes         uint64
	Hits           uint64
	Misses         uint64
	Upgrades       uint64
	Evictions      uint64
	DirtyEvictions uint64
}

// Line is a snapshot of one cache line.
type Line struct {
	Tag   uint32
	Valid bool
	Dirty bool
	State State
}

// AllocResult describes the outcome of an allocation.
type AllocResult struct {
	// Way is the way that now holds the new block.
	Way int
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedDirty is true if the replaced block must be written back.
	EvictedDirty bool
	// EvictedAddr is the block address of the replaced block.
	EvictedAddr uint32
	// EvictedState is the coherence state the replaced block was in.
	EvictedState State
}

// Cache is a set-associative, write-back, write-allocate cache owned by one
// core. It tracks tags, valid and dirty bits and LRU order in an Akita
// directory, and keeps the MESI state of every line next to it.
//
// Cache never decides coherence states on its own. The coherence controller
// assigns them through SetState.
type Cache struct {
	config  Config
	decoder Decoder

	// Akita cache directory for tag/LRU management. Block tags hold the
	// block-aligned address.
	directory *akitacache.DirectoryImpl

	// states is indexed by [set][way].
	states [][]State

	stats Statistics
}

// New creates a new cache with the given geometry.
func New(config Config) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Cache{
		config:  config,
		decoder: config.Decoder(),
		directory: akitacache.NewDirectory(
			config.NumSets(),
			config.Associativity,
			config.BlockSize(),
			newVictimFinder(),
		),
	}
	c.resetStates()

	return c, nil
}

func (c *Cache) resetStates() {
	c.states = make([][]State, c.config.NumSets())
	for i := range c.states {
		c.states[i] = make([]State, c.config.Associativity)
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Decoder returns the address decoder of the cache.
func (c *Cache) Decoder() Decoder {
	return c.decoder
}

// Sets returns the number of sets.
func (c *Cache) Sets() int {
	return c.config.NumSets()
}

// Ways returns the associativity.
func (c *Cache) Ways() int {
	return c.config.Associativity
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// Reset invalidates all cache lines without writeback and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.resetStates()
	c.stats = Statistics{}
}

func (c *Cache) block(index, way int) *akitacache.Block {
	return c.directory.GetSets()[index].Blocks[way]
}

// Lookup returns the way holding tag in the given set. It reports a hit only
// if the line is valid in a state other than Invalid.
func (c *Cache) Lookup(index int, tag uint32) (way int, ok bool) {
	addr := c.decoder.BlockAddress(tag, index)

	block := c.directory.Lookup(0, uint64(addr))
	if block == nil || !block.IsValid {
		return 0, false
	}

	if c.states[index][block.WayID] == StateInvalid {
		return 0, false
	}

	return block.WayID, true
}

// Touch marks way as the most recently used way of the set.
func (c *Cache) Touch(index, way int) {
	c.directory.Visit(c.block(index, way))
}

// Allocate places tag in the given set. A free way is used if one exists,
// otherwise the least recently used way is replaced. The new line is marked
// most recently used and dirty if forWrite is set. Its coherence state is
// reset to Invalid until the caller assigns the final one.
func (c *Cache) Allocate(index int, tag uint32, forWrite bool) AllocResult {
	addr := c.decoder.BlockAddress(tag, index)

	victim := c.directory.FindVictim(uint64(addr))
	way := victim.WayID
	result := AllocResult{Way: way}

	if victim.IsValid && c.states[index][way] != StateInvalid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = uint32(victim.Tag)
		result.EvictedState = c.states[index][way]

		if victim.IsDirty {
			c.stats.DirtyEvictions++
			result.EvictedDirty = true
		}
	}

	victim.Tag = uint64(addr)
	victim.IsValid = true
	victim.IsDirty = forWrite
	c.states[index][way] = StateInvalid

	c.directory.Visit(victim)

	return result
}

// Line returns a snapshot of the line at (index, way).
func (c *Cache) Line(index, way int) Line {
	block := c.block(index, way)
	state := c.states[index][way]

	return Line{
		Tag:   c.decoder.Tag(uint32(block.Tag)),
		Valid: block.IsValid && state != StateInvalid,
		Dirty: block.IsDirty,
		State: state,
	}
}

// State returns the coherence state of the line at (index, way).
func (c *Cache) State(index, way int) State {
	return c.states[index][way]
}

// SetState assigns the coherence state of the line at (index, way).
// Setting StateInvalid clears the valid and dirty bits.
func (c *Cache) SetState(index, way int, state State) {
	block := c.block(index, way)

	c.states[index][way] = state
	if state == StateInvalid {
		block.IsValid = false
		block.IsDirty = false
		return
	}

	block.IsValid = true
}

// SetDirty sets or clears the dirty bit of the line at (index, way).
func (c *Cache) SetDirty(index, way int, dirty bool) {
	c.block(index, way).IsDirty = dirty
}

// LRUOrder returns the valid ways of a set, least recently used first.
func (c *Cache) LRUOrder(index int) []int {
	set := c.directory.GetSets()[index]

	order := make([]int, 0, len(set.Blocks))
	for _, block := range set.LRUQueue {
		if block.IsValid && c.states[index][block.WayID] != StateInvalid {
			order = append(order, block.WayID)
		}
	}

	return order
}

// CountAccess records a read or write and whether it hit on first lookup.
func (c *Cache) CountAccess(isWrite, hit bool) {
	if isWrite {
		c.stats.Writes++
	} else {
		c.stats.Reads++
	}

	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
}

// CountUpgrade records a write hit on a shared line that needs the bus.
func (c *Cache) CountUpgrade() {
	c.stats.Upgrades++
}
