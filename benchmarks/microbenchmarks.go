package benchmarks

import (
	"github.com/sarchlab/mesisim/insts"
	"github.com/sarchlab/mesisim/timing/system"
)

// GetMicrobenchmarks returns the standard set of coherence microbenchmarks.
// Each benchmark stresses one sharing pattern.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		privateStreaming(),
		falseSharing(),
		producerConsumer(),
		pingPong(),
		readSharing(),
		conflictEviction(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 benchmarks for quick
// validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		falseSharing(),
		pingPong(),
		readSharing(),
	}
}

// traceBuilder accumulates one trace per core.
type traceBuilder struct {
	traces [][]insts.Instruction
}

func newTraceBuilder() *traceBuilder {
	return &traceBuilder{traces: make([][]insts.Instruction, system.NumCores)}
}

func (b *traceBuilder) read(core int, addr uint32) {
	b.traces[core] = append(b.traces[core], insts.Read(addr))
}

func (b *traceBuilder) write(core int, addr uint32) {
	b.traces[core] = append(b.traces[core], insts.Write(addr))
}

// 1. Private Streaming - every core walks its own region, no sharing
func privateStreaming() Benchmark {
	b := newTraceBuilder()
	for core := 0; core < system.NumCores; core++ {
		base := uint32(0x10000 * (core + 1))
		for i := uint32(0); i < 256; i++ {
			addr := base + i*4
			if i%4 == 3 {
				b.write(core, addr)
			} else {
				b.read(core, addr)
			}
		}
	}

	return Benchmark{
		Name:        "private_streaming",
		Description: "4 cores stream through disjoint regions - baseline miss cost",
		Traces:      b.traces,
	}
}

// 2. False Sharing - cores write different words of one block
func falseSharing() Benchmark {
	const base = uint32(0x1000)

	b := newTraceBuilder()
	for i := 0; i < 32; i++ {
		for core := 0; core < system.NumCores; core++ {
			addr := base + uint32(core)*4
			b.write(core, addr)
			b.read(core, addr)
		}
	}

	return Benchmark{
		Name:        "false_sharing",
		Description: "4 cores update separate words of one block - invalidation storm",
		Traces:      b.traces,
	}
}

// 3. Producer/Consumer - core 0 fills a buffer, the others read it
func producerConsumer() Benchmark {
	const (
		base   = uint32(0x2000)
		blocks = 64
	)

	b := newTraceBuilder()
	for pass := 0; pass < 2; pass++ {
		for i := uint32(0); i < blocks; i++ {
			b.write(0, base+i*32)
		}
		for core := 1; core < system.NumCores; core++ {
			for i := uint32(0); i < blocks; i++ {
				b.read(core, base+i*32)
			}
		}
	}

	return Benchmark{
		Name:        "producer_consumer",
		Description: "core 0 writes a buffer read by 3 consumers - snoop writebacks",
		Traces:      b.traces,
	}
}

// 4. Ping-Pong - two cores write the same word in turn
func pingPong() Benchmark {
	const addr = uint32(0x3000)

	b := newTraceBuilder()
	for i := 0; i < 64; i++ {
		b.write(0, addr)
		b.write(1, addr)
	}

	return Benchmark{
		Name:        "ping_pong",
		Description: "2 cores write one word - ownership migrates on every write",
		Traces:      b.traces,
	}
}

// 5. Read Sharing - every core reads the same table
func readSharing() Benchmark {
	const (
		base   = uint32(0x4000)
		blocks = 32
	)

	b := newTraceBuilder()
	for pass := 0; pass < 4; pass++ {
		for core := 0; core < system.NumCores; core++ {
			for i := uint32(0); i < blocks; i++ {
				b.read(core, base+i*32)
			}
		}
	}

	return Benchmark{
		Name:        "read_sharing",
		Description: "4 cores read one table - cache-to-cache supply, no invalidations",
		Traces:      b.traces,
	}
}

// 6. Conflict Eviction - private writes that map to one set
func conflictEviction() Benchmark {
	// 2048 is the set stride of the default geometry (64 sets of 32 bytes).
	const stride = uint32(2048)

	b := newTraceBuilder()
	for core := 0; core < system.NumCores; core++ {
		base := uint32(0x100000 * (core + 1))
		for pass := 0; pass < 3; pass++ {
			for i := uint32(0); i < 8; i++ {
				b.write(core, base+i*stride)
			}
		}
	}

	return Benchmark{
		Name:        "conflict_eviction",
		Description: "private writes thrash one set - dirty evictions and writebacks",
		Traces:      b.traces,
	}
}
