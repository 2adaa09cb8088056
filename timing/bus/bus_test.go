package bus

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mesisim/timing/cache"
	"github.com/sarchlab/mesisim/timing/coherence"
	"github.com/sarchlab/mesisim/timing/latency"
)

type completionRecorder struct {
	completed []TransferRecord
	serviced  []RequestRecord
}

func (r *completionRecorder) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case HookPosTransferCompleted:
		r.completed = append(r.completed, ctx.Detail.(TransferRecord))
	case HookPosRequestServiced:
		r.serviced = append(r.serviced, ctx.Detail.(RequestRecord))
	}
}

var _ = Describe("Bus", func() {
	const (
		addrA = uint32(0x10)
		addrB = uint32(0x20)
	)

	var (
		mockCtrl *gomock.Controller
		notifier *MockCoreNotifier
		caches   []*cache.Cache
		ctrl     *coherence.Controller
		memory   *cache.Memory
		recorder *completionRecorder
		b        *Bus
		now      uint64
	)

	tick := func() {
		b.Tick(now)
		now++
	}

	runUntilIdle := func() {
		for i := 0; i < 1000 && (!b.Idle() || b.Busy()); i++ {
			tick()
		}
		Expect(b.Idle()).To(BeTrue())
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		notifier = NewMockCoreNotifier(mockCtrl)

		caches = make([]*cache.Cache, 3)
		for i := range caches {
			c, err := cache.New(cache.Config{SetBits: 0, Associativity: 1, BlockBits: 4})
			Expect(err).NotTo(HaveOccurred())
			caches[i] = c
		}
		ctrl = coherence.NewController(caches)

		timing := &latency.TimingConfig{
			MemoryLatency:       3,
			WritebackLatency:    2,
			CacheToCacheLatency: 1,
		}
		Expect(timing.Validate()).To(Succeed())

		memory = cache.NewMemory()
		b = New(ctrl, latency.NewTableWithConfig(timing, 16), notifier,
			WithBackingStore(memory))
		recorder = &completionRecorder{}
		b.AcceptHook(recorder)
		now = 0
	})

	AfterEach(func() {
		Expect(coherence.CheckInvariant(caches)).To(Succeed())
		mockCtrl.Finish()
	})

	share := func(addr uint32, cores ...int) {
		for _, core := range cores {
			ctrl.SnoopRead(core, addr)
			ctrl.Fill(core, addr, coherence.BusRd)
		}
	}

	It("should start idle", func() {
		Expect(b.Idle()).To(BeTrue())
		Expect(b.Busy()).To(BeFalse())
		_, ok := b.HeadTransfer()
		Expect(ok).To(BeFalse())
	})

	It("should fill a read miss from memory after the memory latency", func() {
		var doneAt uint64
		notifier.EXPECT().RequestDone(0).Do(func(int) { doneAt = now })

		b.Submit(Request{CoreID: 0, Address: addrA, Kind: coherence.BusRd})
		tick()

		Expect(b.Busy()).To(BeTrue())
		Expect(b.PendingRequests()).To(Equal(0))
		head, ok := b.HeadTransfer()
		Expect(ok).To(BeTrue())
		Expect(head.Active()).To(BeTrue())
		Expect(head.RemainingLatency).To(Equal(uint64(2)))

		runUntilIdle()

		Expect(doneAt).To(Equal(uint64(3)))
		Expect(b.Busy()).To(BeFalse())
		Expect(ctrl.StateOf(0, addrA)).To(Equal(cache.StateExclusive))
		Expect(memory.Stats().BlockReads).To(Equal(uint64(1)))

		stats := b.Stats()
		Expect(stats.Transactions).To(Equal(uint64(1)))
		Expect(stats.TrafficBytes).To(Equal(uint64(16)))
		Expect(stats.MemoryFills).To(Equal(uint64(1)))
		Expect(stats.PerCore[0].DataTrafficBytes).To(Equal(uint64(16)))
	})

	It("should fill as Shared when another cache holds the block", func() {
		ctrl.Fill(1, addrA, coherence.BusRd)
		notifier.EXPECT().RequestDone(0)

		b.Submit(Request{CoreID: 0, Address: addrA, Kind: coherence.BusRd})
		runUntilIdle()

		Expect(ctrl.StateOf(0, addrA)).To(Equal(cache.StateShared))
		Expect(ctrl.StateOf(1, addrA)).To(Equal(cache.StateShared))

		stats := b.Stats()
		Expect(stats.CacheToCacheTransfers).To(Equal(uint64(1)))
		Expect(stats.MemoryFills).To(Equal(uint64(0)))
		Expect(stats.PerCore[1].DataTrafficBytes).To(Equal(uint64(16)))
	})

	It("should write back a Modified owner before supplying a reader", func() {
		ctrl.Fill(1, addrA, coherence.BusRdX)

		gomock.InOrder(
			notifier.EXPECT().WritebackStarted(1),
			notifier.EXPECT().WritebackDone(1),
			notifier.EXPECT().RequestDone(0),
		)

		b.Submit(Request{CoreID: 0, Address: addrA, Kind: coherence.BusRd})
		tick()

		Expect(ctrl.StateOf(1, addrA)).To(Equal(cache.StateShared))
		Expect(b.PendingTransfers()).To(Equal(2))
		Expect(b.ActiveTransfers()).To(Equal(1))
		head, _ := b.HeadTransfer()
		Expect(head.IsWriteback).To(BeTrue())

		for !b.Idle() {
			tick()
			Expect(b.ActiveTransfers()).To(BeNumerically("<=", 1))
		}

		Expect(ctrl.StateOf(0, addrA)).To(Equal(cache.StateShared))
		Expect(memory.Version(addrA)).To(Equal(uint64(1)))

		stats := b.Stats()
		Expect(stats.PerCore[1].Writebacks).To(Equal(uint64(1)))
		Expect(stats.TrafficBytes).To(Equal(uint64(32)))
	})

	It("should invalidate every other copy on a read-exclusive", func() {
		ctrl.Fill(1, addrA, coherence.BusRd)
		share(addrA, 2)
		notifier.EXPECT().RequestDone(0)

		b.Submit(Request{CoreID: 0, Address: addrA, Kind: coherence.BusRdX})
		tick()

		Expect(ctrl.StateOf(1, addrA)).To(Equal(cache.StateInvalid))
		Expect(ctrl.StateOf(2, addrA)).To(Equal(cache.StateInvalid))

		runUntilIdle()

		Expect(ctrl.StateOf(0, addrA)).To(Equal(cache.StateModified))

		stats := b.Stats()
		Expect(stats.PerCore[0].Invalidations).To(Equal(uint64(1)))
		Expect(stats.PerCore[1].InvalidationsReceived).To(Equal(uint64(1)))
		Expect(stats.PerCore[2].InvalidationsReceived).To(Equal(uint64(1)))
	})

	It("should complete an upgrade without moving data", func() {
		ctrl.Fill(0, addrA, coherence.BusRd)
		share(addrA, 1)
		notifier.EXPECT().RequestDone(0)

		b.Submit(Request{CoreID: 0, Address: addrA, Kind: coherence.BusUpgr})
		tick()

		Expect(b.Idle()).To(BeTrue())
		Expect(b.Busy()).To(BeFalse())
		Expect(ctrl.StateOf(0, addrA)).To(Equal(cache.StateModified))
		Expect(ctrl.StateOf(1, addrA)).To(Equal(cache.StateInvalid))

		stats := b.Stats()
		Expect(stats.Upgrades).To(Equal(uint64(1)))
		Expect(stats.TrafficBytes).To(Equal(uint64(0)))
		Expect(stats.PerCore[0].Invalidations).To(Equal(uint64(1)))
	})

	It("should service an upgrade as read-exclusive once the copy is lost", func() {
		ctrl.Fill(0, addrA, coherence.BusRd)
		share(addrA, 1)

		gomock.InOrder(
			notifier.EXPECT().RequestDone(0),
			notifier.EXPECT().WritebackStarted(0),
			notifier.EXPECT().WritebackDone(0),
			notifier.EXPECT().RequestDone(1),
		)

		b.Submit(Request{CoreID: 0, Address: addrA, Kind: coherence.BusUpgr})
		b.Submit(Request{CoreID: 1, Address: addrA, Kind: coherence.BusUpgr})
		runUntilIdle()

		Expect(ctrl.StateOf(0, addrA)).To(Equal(cache.StateInvalid))
		Expect(ctrl.StateOf(1, addrA)).To(Equal(cache.StateModified))
		Expect(recorder.serviced).To(HaveLen(2))
		Expect(recorder.serviced[1].Request.Kind).To(Equal(coherence.BusRdX))
		Expect(b.Stats().Transactions).To(Equal(uint64(2)))
	})

	It("should chain a writeback for a dirty victim and stay busy", func() {
		ctrl.Fill(0, addrA, coherence.BusRdX)

		notifier.EXPECT().RequestDone(0)
		notifier.EXPECT().WritebackStarted(0)
		notifier.EXPECT().WritebackDone(0)

		b.Submit(Request{CoreID: 0, Address: addrB, Kind: coherence.BusRd})
		for i := 0; i < 4; i++ {
			tick()
		}

		Expect(ctrl.StateOf(0, addrB)).To(Equal(cache.StateExclusive))
		Expect(b.Busy()).To(BeTrue())
		Expect(b.PendingTransfers()).To(Equal(1))

		runUntilIdle()

		Expect(b.Busy()).To(BeFalse())
		Expect(memory.Version(addrA)).To(Equal(uint64(1)))
		Expect(b.Stats().PerCore[0].Writebacks).To(Equal(uint64(1)))
	})

	It("should service one request at a time", func() {
		notifier.EXPECT().RequestDone(0)
		notifier.EXPECT().RequestDone(1)

		b.Submit(Request{CoreID: 0, Address: addrA, Kind: coherence.BusRd})
		b.Submit(Request{CoreID: 1, Address: addrB, Kind: coherence.BusRd})
		tick()

		Expect(b.PendingRequests()).To(Equal(1))

		runUntilIdle()

		Expect(recorder.serviced).To(HaveLen(2))
		Expect(recorder.serviced[0].Now).To(Equal(uint64(0)))
		Expect(recorder.serviced[1].Now).To(Equal(uint64(4)))

		Expect(recorder.completed).To(HaveLen(2))
		first, second := recorder.completed[0], recorder.completed[1]
		Expect(second.Now - first.Now).To(
			BeNumerically(">", second.Transfer.OriginalLatency))
	})
})
