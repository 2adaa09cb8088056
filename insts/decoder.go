// Package insts provides memory-access instruction definitions and decoding.
package insts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Op represents a memory-access opcode.
type Op uint8

// Memory-access opcodes.
const (
	OpUnknown Op = iota
	OpRead
	OpWrite
)

// String returns the trace mnemonic of the opcode.
func (o Op) String() string {
	switch o {
	case OpRead:
		return "R"
	case OpWrite:
		return "W"
	default:
		return "?"
	}
}

// Instruction represents one decoded trace entry.
type Instruction struct {
	Op   Op
	Addr uint32
}

// String formats the instruction in trace syntax.
func (i Instruction) String() string {
	return fmt.Sprintf("%s 0x%08x", i.Op, i.Addr)
}

// Read builds a read instruction.
func Read(addr uint32) Instruction {
	return Instruction{Op: OpRead, Addr: addr}
}

// Write builds a write instruction.
func Write(addr uint32) Instruction {
	return Instruction{Op: OpWrite, Addr: addr}
}

// ErrSkip is returned by Decode for lines that carry no instruction, such as
// blank lines and comments.
var ErrSkip = errors.New("line carries no instruction")

// Decoder decodes trace lines into instructions.
type Decoder struct{}

// NewDecoder creates a new trace line decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a single trace line.
//
// The line must hold an opcode (R or W, case-insensitive) followed by a
// hexadecimal address, with or without a 0x prefix. Blank lines and lines
// starting with '#' return ErrSkip.
func (d *Decoder) Decode(line string) (Instruction, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Instruction{}, ErrSkip
	}

	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Instruction{}, fmt.Errorf("expected \"<R|W> <address>\", got %q", line)
	}

	op, err := decodeOp(fields[0])
	if err != nil {
		return Instruction{}, err
	}

	addr, err := decodeAddr(fields[1])
	if err != nil {
		return Instruction{}, err
	}

	return Instruction{Op: op, Addr: addr}, nil
}

func decodeOp(field string) (Op, error) {
	switch strings.ToUpper(field) {
	case "R":
		return OpRead, nil
	case "W":
		return OpWrite, nil
	default:
		return OpUnknown, fmt.Errorf("unknown opcode %q", field)
	}
}

func decodeAddr(field string) (uint32, error) {
	hex := field
	if strings.HasPrefix(hex, "0x") || strings.HasPrefix(hex, "0X") {
		hex = hex[2:]
	}

	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", field, err)
	}

	return uint32(value), nil
}
