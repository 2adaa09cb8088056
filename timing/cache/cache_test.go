package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesisim/timing/cache"
)

var _ = Describe("Cache", func() {
	var (
		c       *cache.Cache
		decoder cache.Decoder
	)

	BeforeEach(func() {
		// Small cache for testing: 4 sets, 4-way, 16B lines
		config := cache.Config{
			SetBits:       2,
			Associativity: 4,
			BlockBits:     4,
		}

		var err error
		c, err = cache.New(config)
		Expect(err).NotTo(HaveOccurred())
		decoder = c.Decoder()
	})

	// fill allocates addr and gives it a valid state, as the coherence
	// controller would.
	fill := func(addr uint32, forWrite bool) cache.AllocResult {
		tag, index, _ := decoder.Decode(addr)
		result := c.Allocate(index, tag, forWrite)
		state := cache.StateExclusive
		if forWrite {
			state = cache.StateModified
		}
		c.SetState(index, result.Way, state)
		return result
	}

	Describe("Lookup", func() {
		It("should miss on cold cache", func() {
			tag, index, _ := decoder.Decode(0x1000)
			_, ok := c.Lookup(index, tag)
			Expect(ok).To(BeFalse())
		})

		It("should hit after allocation and state assignment", func() {
			fill(0x1000, false)

			tag, index, _ := decoder.Decode(0x1004)
			way, ok := c.Lookup(index, tag)
			Expect(ok).To(BeTrue())
			Expect(way).To(Equal(0))
		})

		It("should miss while the line is still Invalid", func() {
			tag, index, _ := decoder.Decode(0x1000)
			c.Allocate(index, tag, false)

			_, ok := c.Lookup(index, tag)
			Expect(ok).To(BeFalse())
		})

		It("should miss after the line is invalidated", func() {
			fill(0x1000, true)
			tag, index, _ := decoder.Decode(0x1000)
			way, _ := c.Lookup(index, tag)

			c.SetState(index, way, cache.StateInvalid)

			_, ok := c.Lookup(index, tag)
			Expect(ok).To(BeFalse())
			line := c.Line(index, way)
			Expect(line.Valid).To(BeFalse())
			Expect(line.Dirty).To(BeFalse())
		})
	})

	Describe("Allocation", func() {
		It("should use free ways in ascending order", func() {
			// 0x000, 0x040, 0x080 all map to set 0
			Expect(fill(0x000, false).Way).To(Equal(0))
			Expect(fill(0x040, false).Way).To(Equal(1))
			Expect(fill(0x080, false).Way).To(Equal(2))
		})

		It("should prefer the lowest invalid way over eviction", func() {
			fill(0x000, false)
			fill(0x040, false)
			fill(0x080, false)
			fill(0x0C0, false)

			// Invalidate ways 2 and 1
			c.SetState(0, 2, cache.StateInvalid)
			c.SetState(0, 1, cache.StateInvalid)

			result := fill(0x100, false)
			Expect(result.Way).To(Equal(1))
			Expect(result.Evicted).To(BeFalse())
		})

		It("should set the dirty bit for write allocation", func() {
			fill(0x200, true)

			tag, index, _ := decoder.Decode(0x200)
			way, _ := c.Lookup(index, tag)
			Expect(c.Line(index, way).Dirty).To(BeTrue())
			Expect(c.Line(index, way).Tag).To(Equal(tag))
		})
	})

	Describe("Eviction", func() {
		BeforeEach(func() {
			// Fill set 0 completely
			fill(0x000, true)
			fill(0x040, false)
			fill(0x080, false)
			fill(0x0C0, false)
		})

		It("should evict the least recently used way", func() {
			result := fill(0x100, false)

			Expect(result.Evicted).To(BeTrue())
			Expect(result.Way).To(Equal(0))
			Expect(result.EvictedAddr).To(Equal(uint32(0x000)))
			Expect(c.Stats().Evictions).To(Equal(uint64(1)))
		})

		It("should report dirty victims with their reconstructed address", func() {
			c.Touch(0, 1)
			c.Touch(0, 2)
			c.Touch(0, 3)
			c.Touch(0, 0)

			// LRU is now way 1 (clean)
			result := fill(0x100, false)
			Expect(result.Way).To(Equal(1))
			Expect(result.EvictedDirty).To(BeFalse())

			// Next LRU is way 2, then 3, then 0 (dirty)
			fill(0x140, false)
			fill(0x180, false)
			result = fill(0x1C0, false)
			Expect(result.Way).To(Equal(0))
			Expect(result.EvictedDirty).To(BeTrue())
			Expect(result.EvictedState).To(Equal(cache.StateModified))
			Expect(result.EvictedAddr).To(Equal(uint32(0x000)))
			Expect(c.Stats().DirtyEvictions).To(Equal(uint64(1)))
		})

		It("should respect touches when choosing the victim", func() {
			c.Touch(0, 0)

			result := fill(0x100, false)
			Expect(result.Way).To(Equal(1))
			Expect(result.EvictedAddr).To(Equal(uint32(0x040)))
		})
	})

	Describe("LRU order", func() {
		It("should list only valid ways, least recently used first", func() {
			fill(0x000, false)
			fill(0x040, false)
			fill(0x080, false)

			Expect(c.LRUOrder(0)).To(Equal([]int{0, 1, 2}))

			c.Touch(0, 0)
			Expect(c.LRUOrder(0)).To(Equal([]int{1, 2, 0}))

			c.SetState(0, 2, cache.StateInvalid)
			Expect(c.LRUOrder(0)).To(Equal([]int{1, 0}))
		})

		It("should make touch idempotent", func() {
			fill(0x000, false)
			fill(0x040, false)

			c.Touch(0, 1)
			c.Touch(0, 1)
			Expect(c.LRUOrder(0)).To(Equal([]int{0, 1}))
		})

		It("should be empty for an untouched set", func() {
			Expect(c.LRUOrder(3)).To(BeEmpty())
		})
	})

	Describe("Statistics", func() {
		It("should count accesses", func() {
			c.CountAccess(false, false)
			c.CountAccess(true, true)
			c.CountUpgrade()

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Writes).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Upgrades).To(Equal(uint64(1)))

			c.ResetStats()
			Expect(c.Stats()).To(Equal(cache.Statistics{}))
		})
	})

	Describe("Reset", func() {
		It("should invalidate all lines", func() {
			fill(0x000, true)
			c.Reset()

			_, ok := c.Lookup(0, 0)
			Expect(ok).To(BeFalse())
			Expect(c.State(0, 0)).To(Equal(cache.StateInvalid))
		})
	})
})

var _ = Describe("Direct mapped cache", func() {
	It("should work with a single set and a single way", func() {
		c, err := cache.New(cache.Config{SetBits: 0, Associativity: 1, BlockBits: 4})
		Expect(err).NotTo(HaveOccurred())
		d := c.Decoder()

		tag, index, _ := d.Decode(0x10)
		result := c.Allocate(index, tag, true)
		c.SetState(index, result.Way, cache.StateModified)

		tag, index, _ = d.Decode(0x30)
		result = c.Allocate(index, tag, false)
		Expect(result.Evicted).To(BeTrue())
		Expect(result.EvictedDirty).To(BeTrue())
		Expect(result.EvictedAddr).To(Equal(uint32(0x10)))
	})
})
