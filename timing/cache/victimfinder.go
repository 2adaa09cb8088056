package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// victimFinder selects the lowest-numbered invalid way of a set and, when
// every way is valid, the least recently used one.
//
// The akita LRU queue keeps invalidated blocks in place, so the queue order
// alone cannot be used to pick among free ways.
type victimFinder struct{}

func newVictimFinder() *victimFinder {
	return &victimFinder{}
}

// FindVictim implements akitacache.VictimFinder.
func (f *victimFinder) FindVictim(set *akitacache.Set) *akitacache.Block {
	for _, block := range set.Blocks {
		if !block.IsValid {
			return block
		}
	}

	for _, block := range set.LRUQueue {
		if block.IsValid && !block.IsLocked {
			return block
		}
	}

	return set.Blocks[0]
}
