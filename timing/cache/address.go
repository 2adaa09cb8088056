package cache

// Decoder splits a physical address into tag, set index and block offset.
type Decoder struct {
	SetBits   int
	BlockBits int
}

// Index returns the set index of addr.
func (d Decoder) Index(addr uint32) int {
	return int((uint64(addr) >> d.BlockBits) & (1<<d.SetBits - 1))
}

// Tag returns the tag of addr.
func (d Decoder) Tag(addr uint32) uint32 {
	return uint32(uint64(addr) >> (d.SetBits + d.BlockBits))
}

// Offset returns the block offset of addr.
func (d Decoder) Offset(addr uint32) uint32 {
	return uint32(uint64(addr) & (1<<d.BlockBits - 1))
}

// Decode returns the tag, set index and block offset of addr.
func (d Decoder) Decode(addr uint32) (tag uint32, index int, offset uint32) {
	return d.Tag(addr), d.Index(addr), d.Offset(addr)
}

// BlockAddress rebuilds the block-aligned address of a (tag, index) pair.
func (d Decoder) BlockAddress(tag uint32, index int) uint32 {
	return uint32(uint64(tag)<<(d.SetBits+d.BlockBits) |
		uint64(index)<<d.BlockBits)
}

// Align clears the block offset bits of addr.
func (d Decoder) Align(addr uint32) uint32 {
	return addr &^ d.Offset(0xFFFFFFFF)
}
