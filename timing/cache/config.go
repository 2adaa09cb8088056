package cache

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every geometry validation failure.
var ErrInvalidConfig = errors.New("invalid cache configuration")

// AddressBits is the width of a physical address.
const AddressBits = 32

// Config holds cache geometry parameters.
type Config struct {
	// SetBits is the number of set-index bits (number of sets = 2^SetBits).
	SetBits int `json:"set_bits"`
	// Associativity is the number of ways per set.
	Associativity int `json:"associativity"`
	// BlockBits is the number of block-offset bits (block size = 2^BlockBits).
	BlockBits int `json:"block_bits"`
}

// DefaultConfig returns the default per-core cache geometry:
// 64 sets, 2-way, 32B blocks (4KB per core).
func DefaultConfig() Config {
	return Config{
		SetBits:       6,
		Associativity: 2,
		BlockBits:     5,
	}
}

// NumSets returns the number of sets.
func (c Config) NumSets() int {
	return 1 << c.SetBits
}

// BlockSize returns the block size in bytes.
func (c Config) BlockSize() int {
	return 1 << c.BlockBits
}

// TotalSize returns the cache capacity in bytes.
func (c Config) TotalSize() int {
	return c.NumSets() * c.Associativity * c.BlockSize()
}

// Decoder returns the address decoder for this geometry.
func (c Config) Decoder() Decoder {
	return Decoder{SetBits: c.SetBits, BlockBits: c.BlockBits}
}

// Validate checks that the geometry can be simulated.
func (c Config) Validate() error {
	if c.SetBits < 0 {
		return fmt.Errorf("%w: set_bits must be >= 0, got %d",
			ErrInvalidConfig, c.SetBits)
	}
	if c.BlockBits < 0 {
		return fmt.Errorf("%w: block_bits must be >= 0, got %d",
			ErrInvalidConfig, c.BlockBits)
	}
	if c.Associativity < 1 {
		return fmt.Errorf("%w: associativity must be >= 1, got %d",
			ErrInvalidConfig, c.Associativity)
	}
	if c.SetBits+c.BlockBits > AddressBits {
		return fmt.Errorf("%w: set_bits + block_bits must be <= %d, got %d",
			ErrInvalidConfig, AddressBits, c.SetBits+c.BlockBits)
	}
	return nil
}
