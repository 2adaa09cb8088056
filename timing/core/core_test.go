package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesisim/insts"
	"github.com/sarchlab/mesisim/timing/core"
)

var _ = Describe("Core", func() {
	var c *core.Core

	BeforeEach(func() {
		c = core.NewCore(2, []insts.Instruction{
			insts.Read(0x100),
			insts.Write(0x200),
		})
	})

	It("should start active at the first operation", func() {
		Expect(c.ID()).To(Equal(2))
		Expect(c.Active()).To(BeTrue())
		Expect(c.Stalled()).To(BeFalse())
		Expect(c.CanIssue()).To(BeTrue())

		op, ok := c.CurrentOp()
		Expect(ok).To(BeTrue())
		Expect(op).To(Equal(insts.Read(0x100)))
	})

	It("should be inactive with an empty trace", func() {
		c = core.NewCore(0, nil)

		Expect(c.Active()).To(BeFalse())
		Expect(c.CanIssue()).To(BeFalse())
		Expect(c.FinishCycle()).To(BeZero())
		_, ok := c.CurrentOp()
		Expect(ok).To(BeFalse())
	})

	It("should retire a hit in the cycle it issues", func() {
		Expect(c.Issue()).To(Equal(insts.Read(0x100)))
		Expect(c.CanIssue()).To(BeFalse())

		c.Complete()
		Expect(c.Retire(0)).To(BeTrue())
		c.EndCycle()

		Expect(c.PC()).To(Equal(1))
		Expect(c.CanIssue()).To(BeTrue())
		Expect(c.Stats().Reads).To(Equal(uint64(1)))
		Expect(c.Stats().StallCycles).To(BeZero())
	})

	It("should not retire an operation that has not completed", func() {
		c.Issue()
		Expect(c.Retire(0)).To(BeFalse())
		Expect(c.PC()).To(Equal(0))
	})

	It("should stall until its own request is done", func() {
		c.Issue()
		c.WaitForBus()
		Expect(c.Stalled()).To(BeTrue())
		Expect(c.Retire(0)).To(BeFalse())
		c.EndCycle()

		c.RequestDone()
		Expect(c.Stalled()).To(BeFalse())
		Expect(c.Retire(1)).To(BeTrue())

		Expect(c.Stats().StallCycles).To(Equal(uint64(1)))
		Expect(c.Stats().BusRequests).To(Equal(uint64(1)))
	})

	It("should stay stalled for its own request after a writeback finishes", func() {
		c.Issue()
		c.WaitForBus()
		c.WritebackStarted()
		c.WritebackDone()

		Expect(c.Stalled()).To(BeTrue())
		Expect(c.WaitingOnRequest()).To(BeTrue())
	})

	It("should stay stalled while a writeback is pending after its fill", func() {
		c.Issue()
		c.WaitForBus()
		c.RequestDone()
		c.WritebackStarted()

		Expect(c.Stalled()).To(BeTrue())
		Expect(c.PendingWritebacks()).To(Equal(1))
		Expect(c.Retire(0)).To(BeFalse())

		c.WritebackDone()
		Expect(c.Retire(1)).To(BeTrue())
	})

	It("should not issue a completed operation twice while stalled", func() {
		c.Issue()
		c.Complete()
		c.WritebackStarted()

		Expect(c.CanIssue()).To(BeFalse())
		Expect(c.Retire(0)).To(BeFalse())

		c.WritebackDone()
		Expect(c.CanIssue()).To(BeFalse())
		Expect(c.Retire(1)).To(BeTrue())
		Expect(c.Stats().Instructions).To(Equal(uint64(1)))
	})

	It("should become inactive after the last operation", func() {
		c.Issue()
		c.Complete()
		c.Retire(0)

		c.Issue()
		c.Complete()
		Expect(c.Retire(1)).To(BeTrue())

		Expect(c.Active()).To(BeFalse())
		Expect(c.FinishCycle()).To(Equal(uint64(2)))
		Expect(c.Stats().Instructions).To(Equal(uint64(2)))
		Expect(c.Stats().Writes).To(Equal(uint64(1)))
		Expect(c.Retire(2)).To(BeFalse())
	})

	It("should panic on an unexpected completion", func() {
		Expect(func() { c.RequestDone() }).To(Panic())
		Expect(func() { c.WritebackDone() }).To(Panic())
	})

	It("should reset", func() {
		c.Issue()
		c.WaitForBus()
		c.Reset()

		Expect(c.Active()).To(BeTrue())
		Expect(c.Stalled()).To(BeFalse())
		Expect(c.PC()).To(Equal(0))
		Expect(c.Stats()).To(Equal(core.Stats{}))
	})
})
