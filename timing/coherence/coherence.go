// Package coherence implements the MESI protocol over a set of private
// caches connected by a snooping bus.
//
// The Controller is the only component that changes the coherence state of
// a cache line. It is invoked for a core's own accesses, for snoops on behalf
// of other cores' bus requests, and when a bus transfer completes.
package coherence

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mesisim/insts"
	"github.com/sarchlab/mesisim/timing/cache"
)

// RequestKind is the kind of a bus request.
type RequestKind uint8

// Bus request kinds.
const (
	// BusRd fetches a block for reading.
	BusRd RequestKind = iota
	// BusRdX fetches a block for writing and invalidates all other copies.
	BusRdX
	// BusUpgr invalidates all other copies of a block the requester shares.
	BusUpgr
)

// String returns the bus mnemonic of the request kind.
func (k RequestKind) String() string {
	switch k {
	case BusRd:
		return "BusRd"
	case BusRdX:
		return "BusRdX"
	case BusUpgr:
		return "BusUpgr"
	default:
		return fmt.Sprintf("RequestKind(%d)", uint8(k))
	}
}

// Cause names the event that triggered a state transition.
type Cause string

// Transition causes.
const (
	CauseLocalWrite Cause = "local-write"
	CauseSnoopRead  Cause = "snoop-read"
	CauseSnoopWrite Cause = "snoop-write"
	CauseFill       Cause = "fill"
	CauseUpgrade    Cause = "upgrade"
	CauseEviction   Cause = "eviction"
)

// HookPosTransition marks a change of the coherence state of a line.
var HookPosTransition = &sim.HookPos{Name: "MESI Transition"}

// Transition is the hook detail of HookPosTransition.
type Transition struct {
	Core  int
	Addr  uint32
	Index int
	Tag   uint32
	From  cache.State
	To    cache.State
	Cause Cause
}

// AccessResult is the outcome of a core's local access.
type AccessResult struct {
	// Hit is true if a valid copy was found on first lookup.
	Hit bool
	// NeedsBus is true if the access can only complete through the bus.
	NeedsBus bool
	// Kind is the bus request to issue when NeedsBus is set.
	Kind RequestKind
}

// SnoopResult is the outcome of a snoop on behalf of a bus request.
type SnoopResult struct {
	// Supplier is the core whose copy can supply the data, or -1.
	Supplier int
	// Writebacks lists the cores whose Modified copy must be written back.
	Writebacks []int
	// Invalidated lists the cores whose copy was invalidated.
	Invalidated []int
}

// Found returns true if any other cache held a valid copy.
func (r SnoopResult) Found() bool {
	return r.Supplier >= 0 || len(r.Invalidated) > 0
}

// Controller applies the MESI transition rules.
type Controller struct {
	sim.HookableBase

	caches  []*cache.Cache
	decoder cache.Decoder
}

// NewController creates a controller over caches. All caches must share the
// same geometry; the slice index is the core ID.
func NewController(caches []*cache.Cache) *Controller {
	return &Controller{
		caches:  caches,
		decoder: caches[0].Decoder(),
	}
}

// NumCores returns the number of caches the controller manages.
func (c *Controller) NumCores() int {
	return len(c.caches)
}

// Decoder returns the address decoder shared by all caches.
func (c *Controller) Decoder() cache.Decoder {
	return c.decoder
}

func (c *Controller) setState(
	core, index, way int,
	tag uint32,
	to cache.State,
	cause Cause,
) {
	ca := c.caches[core]
	from := ca.State(index, way)
	ca.SetState(index, way, to)

	if from == to {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosTransition,
		Item:   core,
		Detail: Transition{
			Core:  core,
			Addr:  c.decoder.BlockAddress(tag, index),
			Index: index,
			Tag:   tag,
			From:  from,
			To:    to,
			Cause: cause,
		},
	})
}

// Access performs the local part of a read or write by core. Hits that need
// no bus traffic complete here. Misses and writes to shared lines report the
// bus request to issue.
func (c *Controller) Access(core int, op insts.Op, addr uint32) AccessResult {
	ca := c.caches[core]
	tag, index, _ := c.decoder.Decode(addr)
	isWrite := op == insts.OpWrite

	way, hit := ca.Lookup(index, tag)
	ca.CountAccess(isWrite, hit)

	if !hit {
		kind := BusRd
		if isWrite {
			kind = BusRdX
		}
		return AccessResult{NeedsBus: true, Kind: kind}
	}

	if !isWrite {
		ca.Touch(index, way)
		return AccessResult{Hit: true}
	}

	switch state := ca.State(index, way); state {
	case cache.StateModified:
		ca.Touch(index, way)
		return AccessResult{Hit: true}
	case cache.StateExclusive:
		c.setState(core, index, way, tag, cache.StateModified, CauseLocalWrite)
		ca.SetDirty(index, way, true)
		ca.Touch(index, way)
		return AccessResult{Hit: true}
	case cache.StateShared:
		ca.CountUpgrade()
		return AccessResult{Hit: true, NeedsBus: true, Kind: BusUpgr}
	default:
		panic(fmt.Sprintf("core %d: write hit on line in state %s", core, state))
	}
}

// SnoopRead lets every other cache observe a BusRd for addr. The first valid
// copy found, in ascending core then way order, supplies the data. A Modified
// or Exclusive supplier drops to Shared; a Modified one must write back.
func (c *Controller) SnoopRead(requester int, addr uint32) SnoopResult {
	tag, index, _ := c.decoder.Decode(addr)
	result := SnoopResult{Supplier: -1}

	for core, ca := range c.caches {
		if core == requester {
			continue
		}

		way, ok := ca.Lookup(index, tag)
		if !ok {
			continue
		}

		result.Supplier = core

		switch ca.State(index, way) {
		case cache.StateModified:
			c.setState(core, index, way, tag, cache.StateShared, CauseSnoopRead)
			ca.SetDirty(index, way, false)
			result.Writebacks = append(result.Writebacks, core)
		case cache.StateExclusive:
			c.setState(core, index, way, tag, cache.StateShared, CauseSnoopRead)
		case cache.StateShared:
		case cache.StateInvalid:
			panic("lookup returned an invalid line")
		}

		return result
	}

	return result
}

// SnoopWrite lets every other cache observe a BusRdX or BusUpgr for addr.
// All other valid copies are invalidated; Modified ones must write back.
func (c *Controller) SnoopWrite(requester int, addr uint32) SnoopResult {
	tag, index, _ := c.decoder.Decode(addr)
	result := SnoopResult{Supplier: -1}

	for core, ca := range c.caches {
		if core == requester {
			continue
		}

		way, ok := ca.Lookup(index, tag)
		if !ok {
			continue
		}

		if ca.State(index, way) == cache.StateModified {
			result.Writebacks = append(result.Writebacks, core)
		}

		c.setState(core, index, way, tag, cache.StateInvalid, CauseSnoopWrite)
		result.Invalidated = append(result.Invalidated, core)
	}

	return result
}

// Fill places the block of addr into core's cache once its bus transfer has
// completed and assigns the final state: Exclusive or Shared after a BusRd
// depending on whether another cache still holds the block, Modified after a
// BusRdX. The allocation result tells the caller about a dirty victim.
func (c *Controller) Fill(core int, addr uint32, kind RequestKind) cache.AllocResult {
	ca := c.caches[core]
	tag, index, _ := c.decoder.Decode(addr)

	var to cache.State
	switch kind {
	case BusRd:
		to = cache.StateExclusive
		if c.othersHold(core, index, tag) {
			to = cache.StateShared
		}
	case BusRdX:
		to = cache.StateModified
	default:
		panic(fmt.Sprintf("cannot fill for %s", kind))
	}

	result := ca.Allocate(index, tag, kind == BusRdX)

	if result.Evicted {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosTransition,
			Item:   core,
			Detail: Transition{
				Core:  core,
				Addr:  result.EvictedAddr,
				Index: index,
				Tag:   c.decoder.Tag(result.EvictedAddr),
				From:  result.EvictedState,
				To:    cache.StateInvalid,
				Cause: CauseEviction,
			},
		})
	}

	c.setState(core, index, result.Way, tag, to, CauseFill)

	return result
}

// CompleteUpgrade turns the requester's Shared copy into a Modified one. It
// returns false if the requester no longer holds the block.
func (c *Controller) CompleteUpgrade(core int, addr uint32) bool {
	ca := c.caches[core]
	tag, index, _ := c.decoder.Decode(addr)

	way, ok := ca.Lookup(index, tag)
	if !ok {
		return false
	}

	c.setState(core, index, way, tag, cache.StateModified, CauseUpgrade)
	ca.SetDirty(index, way, true)
	ca.Touch(index, way)

	return true
}

// HoldsValid returns true if core has a valid copy of addr.
func (c *Controller) HoldsValid(core int, addr uint32) bool {
	return c.StateOf(core, addr).IsValid()
}

// StateOf returns the state of addr in core's cache.
func (c *Controller) StateOf(core int, addr uint32) cache.State {
	ca := c.caches[core]
	tag, index, _ := c.decoder.Decode(addr)

	way, ok := ca.Lookup(index, tag)
	if !ok {
		return cache.StateInvalid
	}

	return ca.State(index, way)
}

func (c *Controller) othersHold(core, index int, tag uint32) bool {
	for other, ca := range c.caches {
		if other == core {
			continue
		}
		if _, ok := ca.Lookup(index, tag); ok {
			return true
		}
	}
	return false
}
