// Package main points at the mesisim command.
//
// For the full CLI, use: go run ./cmd/mesisim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("mesisim - MESI cache coherence simulator")
	fmt.Println("Four cores, private L1 caches, one snooping bus")
	fmt.Println("")
	fmt.Println("Usage: mesisim -t <tracefile> -s <s> -E <E> -b <b> [-o <outfile>]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -t    Trace prefix (reads <prefix>_proc0.trace .. _proc3.trace)")
	fmt.Println("  -s    Number of set index bits")
	fmt.Println("  -E    Associativity")
	fmt.Println("  -b    Number of block bits")
	fmt.Println("  -o    Output log file (.sqlite3, .csv or text)")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/mesisim --help' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/mesisim' instead.")
	}
}
