// Package loader reads and writes the per-core memory traces of a parallel
// application.
//
// An application named app is stored as one file per core, app_proc0.trace
// to app_proc3.trace. Every line holds an opcode (R or W) and a hexadecimal
// address. Blank lines and lines starting with '#' are ignored.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/mesisim/insts"
)

// NumTraces is the number of trace files that make up an application.
const NumTraces = 4

// ParseError reports a malformed trace line.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// TracePath returns the trace file of core for the application prefix.
func TracePath(prefix string, core int) string {
	return fmt.Sprintf("%s_proc%d.trace", prefix, core)
}

// Parse decodes a trace from r. The name is used in error messages.
func Parse(r io.Reader, name string) ([]insts.Instruction, error) {
	decoder := insts.NewDecoder()
	scanner := bufio.NewScanner(r)

	var trace []insts.Instruction
	lineNo := 0
	for scanner.Scan() {
		lineNo++

		inst, err := decoder.Decode(scanner.Text())
		if errors.Is(err, insts.ErrSkip) {
			continue
		}
		if err != nil {
			return nil, &ParseError{File: name, Line: lineNo, Err: err}
		}

		trace = append(trace, inst)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	return trace, nil
}

// LoadTrace reads a single trace file.
func LoadTrace(path string) ([]insts.Instruction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f, path)
}

// LoadApp reads the traces of all cores of the application prefix.
func LoadApp(prefix string) ([][]insts.Instruction, error) {
	traces := make([][]insts.Instruction, NumTraces)
	for i := range traces {
		trace, err := LoadTrace(TracePath(prefix, i))
		if err != nil {
			return nil, err
		}
		traces[i] = trace
	}

	return traces, nil
}

// Write encodes a trace to w, one instruction per line.
func Write(w io.Writer, trace []insts.Instruction) error {
	bw := bufio.NewWriter(w)
	for _, inst := range trace {
		if _, err := fmt.Fprintln(bw, inst); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveApp writes one trace file per core for the application prefix.
func SaveApp(prefix string, traces [][]insts.Instruction) error {
	if len(traces) > NumTraces {
		return fmt.Errorf("got %d traces, at most %d are supported",
			len(traces), NumTraces)
	}

	for i := 0; i < NumTraces; i++ {
		var trace []insts.Instruction
		if i < len(traces) {
			trace = traces[i]
		}

		if err := saveTrace(TracePath(prefix, i), trace); err != nil {
			return err
		}
	}

	return nil
}

func saveTrace(path string, trace []insts.Instruction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}

	if err := Write(f, trace); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return f.Close()
}
