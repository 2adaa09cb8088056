package recording

import (
	"log"

	"github.com/sarchlab/akita/v4/sim"
)

// LogHook prints every simulator event through a logger.
type LogHook struct {
	sim.LogHookBase

	clock func() uint64
}

// NewLogHook creates a LogHook that writes to logger.
func NewLogHook(logger *log.Logger) *LogHook {
	h := &LogHook{clock: func() uint64 { return 0 }}
	h.Logger = logger
	return h
}

// SetClock sets the source of the current cycle for events that do not
// carry one.
func (h *LogHook) SetClock(clock func() uint64) {
	h.clock = clock
}

// Func implements sim.Hook.
func (h *LogHook) Func(ctx sim.HookCtx) {
	e, ok := toEvent(ctx, h.clock)
	if !ok {
		return
	}

	h.Printf("%d\tcore %d\t%-14s 0x%08x\t%s",
		e.Cycle, e.Core, e.Kind, e.Address, e.What)
}
