// Package bus models the shared snooping bus that connects the private
// caches to each other and to main memory.
//
// The bus services one request at a time. Servicing a request snoops every
// other cache, applies the resulting coherence transitions and queues the
// data transfers the request needs. Only the transfer at the head of the
// transfer queue makes progress, so at most one transfer is in flight at any
// cycle. The bus stays busy until the transfer queue drains, which serializes
// all coherence events into a single total order.
package bus

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mesisim/timing/cache"
	"github.com/sarchlab/mesisim/timing/coherence"
	"github.com/sarchlab/mesisim/timing/latency"
)

const (
	requestQueueCapacity  = 64
	transferQueueCapacity = 64
)

// Hook positions of the bus.
var (
	// HookPosRequestServiced marks a request being taken off the request
	// queue and snooped. The detail is a RequestRecord.
	HookPosRequestServiced = &sim.HookPos{Name: "Bus Request Serviced"}
	// HookPosTransferStarted marks the head transfer starting its countdown.
	HookPosTransferStarted = &sim.HookPos{Name: "Bus Transfer Started"}
	// HookPosTransferCompleted marks a transfer leaving the transfer queue.
	HookPosTransferCompleted = &sim.HookPos{Name: "Bus Transfer Completed"}
)

// Request is a bus request issued by a core after a miss or a write to a
// shared line.
type Request struct {
	CoreID  int
	Address uint32
	Kind    coherence.RequestKind
}

// Transfer is a block movement (or, for upgrades, an invalidation) in flight
// on the bus.
type Transfer struct {
	ID      uint64
	Address uint32
	CoreID  int

	// Kind is the request a fill answers.
	Kind coherence.RequestKind

	IsWrite        bool
	IsWriteback    bool
	InvalidateOnly bool
	FromCache      bool

	RemainingLatency uint64
	OriginalLatency  uint64

	started bool
}

// Active returns true if the transfer has reached the head of the queue and
// started counting down.
func (t *Transfer) Active() bool {
	return t.started
}

// RequestRecord is the hook detail of HookPosRequestServiced.
type RequestRecord struct {
	Now     uint64
	Request Request
	Snoop   coherence.SnoopResult
}

// TransferRecord is the hook detail of transfer hook positions.
type TransferRecord struct {
	Now      uint64
	Transfer Transfer
}

// CoreNotifier is told when a core's bus activity starts and ends.
type CoreNotifier interface {
	// RequestDone is called when the core's own request has completed.
	RequestDone(coreID int)
	// WritebackStarted is called when a writeback by the core is queued.
	WritebackStarted(coreID int)
	// WritebackDone is called when a writeback by the core has completed.
	WritebackDone(coreID int)
}

// CoreStatistics holds the bus statistics of one core.
type CoreStatistics struct {
	// Writebacks counts completed writebacks of the core's dirty blocks.
	Writebacks uint64
	// Invalidations counts the core's transactions that invalidated at
	// least one copy in another cache.
	Invalidations uint64
	// InvalidationsReceived counts the core's copies invalidated by other
	// cores' transactions.
	InvalidationsReceived uint64
	// DataTrafficBytes counts bytes the core sent or received.
	DataTrafficBytes uint64
}

// Statistics holds bus statistics.
type Statistics struct {
	Transactions          uint64
	TrafficBytes          uint64
	CacheToCacheTransfers uint64
	MemoryFills           uint64
	Upgrades              uint64
	PerCore               []CoreStatistics
}

// Bus is the shared snooping bus and its arbiter.
type Bus struct {
	sim.HookableBase

	controller *coherence.Controller
	table      *latency.Table
	notifier   CoreNotifier
	backing    cache.BackingStore

	requests  sim.Buffer
	transfers sim.Buffer
	busy      bool
	active    int

	now       uint64
	nextID    uint64
	blockSize uint64
	stats     Statistics
}

// Option configures a Bus.
type Option func(*Bus)

// WithBackingStore sets the main memory model that serves fills and
// receives writebacks.
func WithBackingStore(backing cache.BackingStore) Option {
	return func(b *Bus) {
		b.backing = backing
	}
}

// New creates a new bus over the caches managed by controller.
func New(
	controller *coherence.Controller,
	table *latency.Table,
	notifier CoreNotifier,
	opts ...Option,
) *Bus {
	b := &Bus{
		controller: controller,
		table:      table,
		notifier:   notifier,
		backing:    cache.NewMemory(),
		requests:   sim.NewBuffer("Bus.RequestQueue", requestQueueCapacity),
		transfers:  sim.NewBuffer("Bus.TransferQueue", transferQueueCapacity),
		blockSize:  uint64(table.BlockSize()),
		stats: Statistics{
			PerCore: make([]CoreStatistics, controller.NumCores()),
		},
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Submit queues a request. Requests are serviced in arrival order.
func (b *Bus) Submit(req Request) {
	b.requests.Push(req)
}

// Busy returns true while a transaction is in flight.
func (b *Bus) Busy() bool {
	return b.busy
}

// Idle returns true if both queues are empty.
func (b *Bus) Idle() bool {
	return b.requests.Size() == 0 && b.transfers.Size() == 0
}

// PendingRequests returns the number of queued requests.
func (b *Bus) PendingRequests() int {
	return b.requests.Size()
}

// PendingTransfers returns the number of queued transfers.
func (b *Bus) PendingTransfers() int {
	return b.transfers.Size()
}

// ActiveTransfers returns the number of queued transfers whose latency is
// counting down.
func (b *Bus) ActiveTransfers() int {
	return b.active
}

// HeadTransfer returns a copy of the transfer at the head of the queue.
func (b *Bus) HeadTransfer() (Transfer, bool) {
	item := b.transfers.Peek()
	if item == nil {
		return Transfer{}, false
	}
	return *item.(*Transfer), true
}

// BackingStore returns the main memory model.
func (b *Bus) BackingStore() cache.BackingStore {
	return b.backing
}

// Stats returns bus statistics.
func (b *Bus) Stats() Statistics {
	stats := b.stats
	stats.PerCore = append([]CoreStatistics(nil), b.stats.PerCore...)
	return stats
}

// Tick advances the bus by one cycle: request intake first, then progress
// of the head transfer.
func (b *Bus) Tick(now uint64) {
	b.now = now
	b.intake()
	b.progress()
}

func (b *Bus) intake() {
	if b.busy {
		return
	}

	item := b.requests.Pop()
	if item == nil {
		return
	}

	b.service(item.(Request))
}

func (b *Bus) service(req Request) {
	b.stats.Transactions++
	b.busy = true

	var snoop coherence.SnoopResult
	switch req.Kind {
	case coherence.BusRd:
		snoop = b.serviceRead(req)
	case coherence.BusRdX:
		snoop = b.serviceReadExclusive(req)
	case coherence.BusUpgr:
		if b.controller.HoldsValid(req.CoreID, req.Address) {
			snoop = b.serviceUpgrade(req)
			break
		}

		// The shared copy was invalidated while the request was queued.
		req.Kind = coherence.BusRdX
		snoop = b.serviceReadExclusive(req)
	default:
		panic(fmt.Sprintf("unknown bus request kind %s", req.Kind))
	}

	b.InvokeHook(sim.HookCtx{
		Domain: b,
		Pos:    HookPosRequestServiced,
		Item:   req,
		Detail: RequestRecord{Now: b.now, Request: req, Snoop: snoop},
	})
}

func (b *Bus) serviceRead(req Request) coherence.SnoopResult {
	snoop := b.controller.SnoopRead(req.CoreID, req.Address)

	for _, owner := range snoop.Writebacks {
		b.startWriteback(owner, req.Address)
	}

	fill := &Transfer{
		Address: req.Address,
		CoreID:  req.CoreID,
		Kind:    coherence.BusRd,
	}

	if snoop.Supplier >= 0 {
		fill.FromCache = true
		b.stats.CacheToCacheTransfers++
		b.stats.PerCore[snoop.Supplier].DataTrafficBytes += b.blockSize
		b.push(fill, b.table.CacheToCache())
	} else {
		b.push(fill, b.table.MemoryFill())
	}

	return snoop
}

func (b *Bus) serviceReadExclusive(req Request) coherence.SnoopResult {
	snoop := b.controller.SnoopWrite(req.CoreID, req.Address)
	b.countInvalidations(req.CoreID, snoop)

	for _, owner := range snoop.Writebacks {
		b.startWriteback(owner, req.Address)
	}

	b.push(&Transfer{
		Address: req.Address,
		CoreID:  req.CoreID,
		Kind:    coherence.BusRdX,
		IsWrite: true,
	}, b.table.MemoryFill())

	return snoop
}

func (b *Bus) serviceUpgrade(req Request) coherence.SnoopResult {
	snoop := b.controller.SnoopWrite(req.CoreID, req.Address)
	b.countInvalidations(req.CoreID, snoop)
	b.stats.Upgrades++

	for _, owner := range snoop.Writebacks {
		b.startWriteback(owner, req.Address)
	}

	b.push(&Transfer{
		Address:        req.Address,
		CoreID:         req.CoreID,
		Kind:           coherence.BusUpgr,
		IsWrite:        true,
		InvalidateOnly: true,
	}, b.table.Upgrade())

	return snoop
}

func (b *Bus) countInvalidations(requester int, snoop coherence.SnoopResult) {
	if len(snoop.Invalidated) == 0 {
		return
	}

	b.stats.PerCore[requester].Invalidations++
	for _, core := range snoop.Invalidated {
		b.stats.PerCore[core].InvalidationsReceived++
	}
}

func (b *Bus) startWriteback(coreID int, addr uint32) {
	b.notifier.WritebackStarted(coreID)
	b.push(&Transfer{
		Address:     b.controller.Decoder().Align(addr),
		CoreID:      coreID,
		IsWrite:     true,
		IsWriteback: true,
	}, b.table.Writeback())
}

func (b *Bus) push(t *Transfer, lat uint64) {
	b.nextID++
	t.ID = b.nextID
	t.RemainingLatency = lat
	t.OriginalLatency = lat

	b.transfers.Push(t)
}

func (b *Bus) progress() {
	item := b.transfers.Peek()
	if item == nil {
		return
	}

	t := item.(*Transfer)
	if !t.started {
		t.started = true
		b.active++
		b.InvokeHook(sim.HookCtx{
			Domain: b,
			Pos:    HookPosTransferStarted,
			Item:   t.ID,
			Detail: TransferRecord{Now: b.now, Transfer: *t},
		})
	}

	if t.RemainingLatency > 0 {
		t.RemainingLatency--
		return
	}

	b.transfers.Pop()
	b.active--
	b.complete(t)

	if b.transfers.Size() == 0 {
		b.busy = false
	}
}

func (b *Bus) complete(t *Transfer) {
	switch {
	case t.IsWriteback:
		b.completeWriteback(t)
	case t.InvalidateOnly:
		b.completeUpgrade(t)
	default:
		b.completeFill(t)
	}

	b.InvokeHook(sim.HookCtx{
		Domain: b,
		Pos:    HookPosTransferCompleted,
		Item:   t.ID,
		Detail: TransferRecord{Now: b.now, Transfer: *t},
	})
}

func (b *Bus) completeWriteback(t *Transfer) {
	b.backing.WriteBlock(t.Address)
	b.stats.TrafficBytes += b.blockSize
	b.stats.PerCore[t.CoreID].Writebacks++
	b.stats.PerCore[t.CoreID].DataTrafficBytes += b.blockSize
	b.notifier.WritebackDone(t.CoreID)
}

func (b *Bus) completeUpgrade(t *Transfer) {
	if !b.controller.CompleteUpgrade(t.CoreID, t.Address) {
		panic(fmt.Sprintf("core %d lost line 0x%08x during its upgrade",
			t.CoreID, t.Address))
	}

	b.notifier.RequestDone(t.CoreID)
}

func (b *Bus) completeFill(t *Transfer) {
	if !t.FromCache {
		b.backing.ReadBlock(b.controller.Decoder().Align(t.Address))
		b.stats.MemoryFills++
	}

	b.stats.TrafficBytes += b.blockSize
	b.stats.PerCore[t.CoreID].DataTrafficBytes += b.blockSize

	result := b.controller.Fill(t.CoreID, t.Address, t.Kind)
	b.notifier.RequestDone(t.CoreID)

	if result.EvictedDirty {
		b.startWriteback(t.CoreID, result.EvictedAddr)
	}
}
