// Package system assembles the per-core caches, the coherence controller,
// the bus and the cores into a multiprocessor and steps them in lock-step,
// one cycle at a time.
//
// Within a cycle the cores issue in ascending core order, then the bus
// services at most one request and advances its head transfer, then the
// cores that are no longer stalled retire their completed operations. The
// order is fixed, so the same traces and geometry always produce the same
// statistics.
package system

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mesisim/insts"
	"github.com/sarchlab/mesisim/timing/bus"
	"github.com/sarchlab/mesisim/timing/cache"
	"github.com/sarchlab/mesisim/timing/coherence"
	"github.com/sarchlab/mesisim/timing/core"
	"github.com/sarchlab/mesisim/timing/latency"
)

// NumCores is the number of processors in the system.
const NumCores = 4

// Option is a functional option for configuring the System.
type Option func(*System)

// WithTimingConfig sets the bus latencies.
func WithTimingConfig(config *latency.TimingConfig) Option {
	return func(s *System) {
		s.timing = config
	}
}

// WithHook attaches a hook to the bus and the coherence controller.
func WithHook(hook sim.Hook) Option {
	return func(s *System) {
		s.hooks = append(s.hooks, hook)
	}
}

// WithBackingStore sets the main memory model.
func WithBackingStore(backing cache.BackingStore) Option {
	return func(s *System) {
		s.backing = backing
	}
}

// WithInvariantChecking verifies the coherence invariant after every cycle
// and panics on the first violation.
func WithInvariantChecking() Option {
	return func(s *System) {
		s.checkInvariant = true
	}
}

// System owns all simulation state of one run.
type System struct {
	config         cache.Config
	timing         *latency.TimingConfig
	backing        cache.BackingStore
	hooks          []sim.Hook
	checkInvariant bool

	caches     []*cache.Cache
	cores      []*core.Core
	controller *coherence.Controller
	bus        *bus.Bus

	cycle uint64
}

// NewSystem creates a system whose cores replay traces. Cores without a
// trace stay idle. It refuses invalid geometries and timings and more
// traces than there are cores.
func NewSystem(
	config cache.Config,
	traces [][]insts.Instruction,
	opts ...Option,
) (*System, error) {
	if len(traces) > NumCores {
		return nil, fmt.Errorf("got %d traces for %d cores", len(traces), NumCores)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &System{
		config:  config,
		timing:  latency.DefaultTimingConfig(),
		backing: cache.NewMemory(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.timing.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing config: %w", err)
	}

	s.caches = make([]*cache.Cache, NumCores)
	s.cores = make([]*core.Core, NumCores)
	for i := 0; i < NumCores; i++ {
		c, err := cache.New(config)
		if err != nil {
			return nil, err
		}
		s.caches[i] = c

		var trace []insts.Instruction
		if i < len(traces) {
			trace = traces[i]
		}
		s.cores[i] = core.NewCore(i, trace)
	}

	s.controller = coherence.NewController(s.caches)
	s.bus = bus.New(
		s.controller,
		latency.NewTableWithConfig(s.timing, config.BlockSize()),
		&notifier{cores: s.cores},
		bus.WithBackingStore(s.backing),
	)

	for _, hook := range s.hooks {
		s.controller.AcceptHook(hook)
		s.bus.AcceptHook(hook)
	}

	return s, nil
}

// notifier forwards bus completions to the cores.
type notifier struct {
	cores []*core.Core
}

func (n *notifier) RequestDone(coreID int) {
	n.cores[coreID].RequestDone()
}

func (n *notifier) WritebackStarted(coreID int) {
	n.cores[coreID].WritebackStarted()
}

func (n *notifier) WritebackDone(coreID int) {
	n.cores[coreID].WritebackDone()
}

// Config returns the cache geometry.
func (s *System) Config() cache.Config {
	return s.config
}

// TimingConfig returns the bus latencies.
func (s *System) TimingConfig() *latency.TimingConfig {
	return s.timing
}

// Cycle returns the number of cycles simulated so far.
func (s *System) Cycle() uint64 {
	return s.cycle
}

// Core returns core i.
func (s *System) Core(i int) *core.Core {
	return s.cores[i]
}

// Cache returns the private cache of core i.
func (s *System) Cache(i int) *cache.Cache {
	return s.caches[i]
}

// Bus returns the shared bus.
func (s *System) Bus() *bus.Bus {
	return s.bus
}

// Controller returns the coherence controller.
func (s *System) Controller() *coherence.Controller {
	return s.controller
}

// Done returns true once every trace is retired, no core waits for the bus
// and the bus has drained.
func (s *System) Done() bool {
	for _, c := range s.cores {
		if c.Active() || c.Stalled() {
			return false
		}
	}

	return s.bus.Idle() && !s.bus.Busy()
}

// Run simulates until the system is done and returns the cycle count.
func (s *System) Run() uint64 {
	for !s.Done() {
		s.Tick()
	}
	return s.cycle
}

// RunCycles simulates at most cycles cycles.
// Returns true if still running, false if done.
func (s *System) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !s.Done(); i++ {
		s.Tick()
	}
	return !s.Done()
}

// Tick simulates one cycle.
func (s *System) Tick() {
	s.issue()
	s.bus.Tick(s.cycle)
	s.retire()

	s.cycle++

	if s.checkInvariant {
		if err := s.CheckCoherence(); err != nil {
			panic(fmt.Sprintf("cycle %d: %v", s.cycle-1, err))
		}
	}
}

func (s *System) issue() {
	for _, c := range s.cores {
		if !c.CanIssue() {
			continue
		}

		op := c.Issue()
		result := s.controller.Access(c.ID(), op.Op, op.Addr)
		if !result.NeedsBus {
			c.Complete()
			continue
		}

		c.WaitForBus()
		s.bus.Submit(bus.Request{
			CoreID:  c.ID(),
			Address: op.Addr,
			Kind:    result.Kind,
		})
	}
}

func (s *System) retire() {
	for _, c := range s.cores {
		c.Retire(s.cycle)
		c.EndCycle()
	}
}

// CheckCoherence verifies the coherence invariant over all caches.
func (s *System) CheckCoherence() error {
	return coherence.CheckInvariant(s.caches)
}
