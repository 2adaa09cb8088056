// Package recording stores the bus and coherence events of a simulation run,
// together with its final statistics, for later analysis.
//
// A Recorder is an Akita hook. Attach it to the system with
// system.WithHook and it forwards every event to an EventWriter.
package recording

import (
	"fmt"

	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mesisim/report"
	"github.com/sarchlab/mesisim/timing/bus"
	"github.com/sarchlab/mesisim/timing/coherence"
)

// Event kinds.
const (
	KindRequest       = "request"
	KindTransferStart = "transfer_start"
	KindTransferDone  = "transfer_done"
	KindTransition    = "transition"
)

// Event is one recorded simulator event.
type Event struct {
	RunID   string
	Cycle   uint64
	Kind    string
	Core    int
	Address uint32
	What    string
}

// EventWriter persists events and run summaries.
type EventWriter interface {
	WriteEvent(e Event)
	WriteSummary(runID string, r report.Report) error
	Flush() error
}

// Recorder is a hook that turns simulator events into Events.
type Recorder struct {
	runID  string
	writer EventWriter
	clock  func() uint64
}

// NewRecorder creates a recorder with a fresh run ID.
func NewRecorder(writer EventWriter) *Recorder {
	return &Recorder{
		runID:  xid.New().String(),
		writer: writer,
		clock:  func() uint64 { return 0 },
	}
}

// RunID returns the ID all events of this run are recorded under.
func (r *Recorder) RunID() string {
	return r.runID
}

// SetClock sets the source of the current cycle for events that do not
// carry one.
func (r *Recorder) SetClock(clock func() uint64) {
	r.clock = clock
}

// Func implements sim.Hook.
func (r *Recorder) Func(ctx sim.HookCtx) {
	e, ok := toEvent(ctx, r.clock)
	if !ok {
		return
	}

	e.RunID = r.runID
	r.writer.WriteEvent(e)
}

// Finish writes the run summary and flushes buffered events.
func (r *Recorder) Finish(rep report.Report) error {
	if err := r.writer.WriteSummary(r.runID, rep); err != nil {
		return err
	}
	return r.writer.Flush()
}

func toEvent(ctx sim.HookCtx, clock func() uint64) (Event, bool) {
	switch ctx.Pos {
	case bus.HookPosRequestServiced:
		rec := ctx.Detail.(bus.RequestRecord)
		what := rec.Request.Kind.String()
		if rec.Snoop.Supplier >= 0 {
			what += fmt.Sprintf(" supplier=%d", rec.Snoop.Supplier)
		}

		return Event{
			Cycle:   rec.Now,
			Kind:    KindRequest,
			Core:    rec.Request.CoreID,
			Address: rec.Request.Address,
			What:    what,
		}, true
	case bus.HookPosTransferStarted:
		return transferEvent(KindTransferStart, ctx.Detail.(bus.TransferRecord)), true
	case bus.HookPosTransferCompleted:
		return transferEvent(KindTransferDone, ctx.Detail.(bus.TransferRecord)), true
	case coherence.HookPosTransition:
		t := ctx.Detail.(coherence.Transition)
		return Event{
			Cycle:   clock(),
			Kind:    KindTransition,
			Core:    t.Core,
			Address: t.Addr,
			What:    fmt.Sprintf("%s->%s %s", t.From, t.To, t.Cause),
		}, true
	}

	return Event{}, false
}

func transferEvent(kind string, rec bus.TransferRecord) Event {
	return Event{
		Cycle:   rec.Now,
		Kind:    kind,
		Core:    rec.Transfer.CoreID,
		Address: rec.Transfer.Address,
		What:    transferName(rec.Transfer),
	}
}

func transferName(t bus.Transfer) string {
	switch {
	case t.IsWriteback:
		return "writeback"
	case t.InvalidateOnly:
		return "upgrade"
	case t.FromCache:
		return "fill-cache"
	default:
		return "fill-memory"
	}
}
