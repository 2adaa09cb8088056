// Package insts provides memory-access instruction definitions and decoding.
//
// A per-core trace is an ordered list of memory accesses. Each access is a
// read or a write of a 32-bit physical address. This package implements the
// decoding of the textual trace format into structured instructions:
//
//	R 0x1000
//	W 2000
//	# comment lines and blank lines are skipped
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode("W 0x7fff1234")
//	fmt.Printf("Op: %v, Addr: 0x%08x\n", inst.Op, inst.Addr)
package insts
