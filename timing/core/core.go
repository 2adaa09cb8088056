// Package core provides the per-core trace stepping model.
//
// A Core walks its trace one operation at a time. An operation is issued,
// completes either immediately (a cache hit) or when the bus reports its
// request done, and is retired once the core is no longer stalled. The core
// is stalled while its own bus request is outstanding and while writebacks
// of its dirty blocks are in flight; the two reasons are tracked separately
// so a finished writeback never releases a core still waiting for its fill.
package core

import (
	"fmt"

	"github.com/sarchlab/mesisim/insts"
)

// Stats holds per-core statistics.
type Stats struct {
	// Instructions is the number of trace operations retired.
	Instructions uint64
	// Reads is the number of read operations retired.
	Reads uint64
	// Writes is the number of write operations retired.
	Writes uint64
	// BusRequests is the number of bus requests the core issued.
	BusRequests uint64
	// StallCycles is the number of cycles the core ended stalled.
	StallCycles uint64
}

// Core represents one processor replaying a memory trace.
type Core struct {
	id    int
	trace []insts.Instruction
	pc    int

	active            bool
	waiting           bool
	pendingWritebacks int
	issued            bool
	completed         bool

	finishCycle uint64
	stats       Stats
}

// NewCore creates a new Core replaying trace.
func NewCore(id int, trace []insts.Instruction) *Core {
	c := &Core{id: id, trace: trace}
	c.Reset()
	return c
}

// ID returns the core index.
func (c *Core) ID() int {
	return c.id
}

// Active returns true while the trace has operations left to retire.
func (c *Core) Active() bool {
	return c.active
}

// Stalled returns true if the core waits for the bus.
func (c *Core) Stalled() bool {
	return c.waiting || c.pendingWritebacks > 0
}

// WaitingOnRequest returns true if the core's own bus request is outstanding.
func (c *Core) WaitingOnRequest() bool {
	return c.waiting
}

// PendingWritebacks returns the number of the core's writebacks in flight.
func (c *Core) PendingWritebacks() int {
	return c.pendingWritebacks
}

// CanIssue returns true if the core may issue its current operation.
func (c *Core) CanIssue() bool {
	return c.active && !c.Stalled() && !c.issued
}

// CurrentOp returns the operation at the trace cursor.
func (c *Core) CurrentOp() (insts.Instruction, bool) {
	if c.pc >= len(c.trace) {
		return insts.Instruction{}, false
	}
	return c.trace[c.pc], true
}

// PC returns the trace cursor.
func (c *Core) PC() int {
	return c.pc
}

// TraceLength returns the number of operations in the trace.
func (c *Core) TraceLength() int {
	return len(c.trace)
}

// Issue marks the current operation as issued and returns it.
func (c *Core) Issue() insts.Instruction {
	if !c.CanIssue() {
		panic(fmt.Sprintf("core %d cannot issue", c.id))
	}

	c.issued = true
	return c.trace[c.pc]
}

// Complete marks the issued operation as done without bus involvement.
func (c *Core) Complete() {
	c.completed = true
}

// WaitForBus marks the issued operation as waiting for a bus request.
func (c *Core) WaitForBus() {
	c.waiting = true
	c.stats.BusRequests++
}

// RequestDone clears the wait for the core's own bus request.
func (c *Core) RequestDone() {
	if !c.waiting {
		panic(fmt.Sprintf("core %d has no outstanding request", c.id))
	}

	c.waiting = false
	c.completed = true
}

// WritebackStarted records a writeback of one of the core's blocks.
func (c *Core) WritebackStarted() {
	c.pendingWritebacks++
}

// WritebackDone records the completion of one of the core's writebacks.
func (c *Core) WritebackDone() {
	if c.pendingWritebacks == 0 {
		panic(fmt.Sprintf("core %d has no pending writeback", c.id))
	}

	c.pendingWritebacks--
}

// Retire advances the trace cursor past a completed operation. It returns
// false if there is nothing to retire this cycle. The core becomes inactive
// after retiring its last operation at cycle now.
func (c *Core) Retire(now uint64) bool {
	if !c.active || c.Stalled() || !c.completed {
		return false
	}

	switch c.trace[c.pc].Op {
	case insts.OpRead:
		c.stats.Reads++
	case insts.OpWrite:
		c.stats.Writes++
	}

	c.stats.Instructions++
	c.pc++
	c.issued = false
	c.completed = false

	if c.pc == len(c.trace) {
		c.active = false
		c.finishCycle = now + 1
	}

	return true
}

// EndCycle accounts for the cycle that just ended. Only cycles spent on
// the trace count as stall cycles.
func (c *Core) EndCycle() {
	if c.active && c.Stalled() {
		c.stats.StallCycles++
	}
}

// FinishCycle returns the number of cycles the core needed to retire its
// whole trace. It is zero for an empty trace.
func (c *Core) FinishCycle() uint64 {
	return c.finishCycle
}

// Stats returns per-core statistics.
func (c *Core) Stats() Stats {
	return c.stats
}

// Reset rewinds the trace and clears all core state.
func (c *Core) Reset() {
	c.pc = 0
	c.active = len(c.trace) > 0
	c.waiting = false
	c.pendingWritebacks = 0
	c.issued = false
	c.completed = false
	c.finishCycle = 0
	c.stats = Stats{}
}
