// Command mesisim simulates four cores with private MESI caches on a
// snooping bus.
//
// Usage:
//
//	mesisim -t <tracefile> -s <s> -E <E> -b <b> [-o <outfile>]
//
// The traces are read from <tracefile>_proc0.trace .. <tracefile>_proc3.trace.
// A .env file in the working directory may set MESISIM_TIMING_CONFIG to a
// JSON timing configuration used when --config is not given.
//
// Example:
//
//	mesisim -t app1 -s 5 -E 2 -b 5
//	mesisim -t app1 -s 5 -E 2 -b 5 -o app1.sqlite3
//	mesisim sweep -t app1 > sweep.csv
package main

import (
	"github.com/joho/godotenv"
	"github.com/tebeka/atexit"
)

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
