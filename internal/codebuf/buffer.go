// Package codebuf provides the executable code buffer: a page-aligned
// read+write+execute memory region with a monotonically advancing write
// cursor. There is no reclamation; code is appended until the region is
// exhausted.
package codebuf

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Unemitted bytes hold int3 so that any stray jump into them traps
// immediately instead of running off into adjacent data.
const fillByte = 0xCC

// Buffer is a fixed-size executable mapping plus its write cursor.
type Buffer struct {
	mem []byte
	pos int
}

// New maps size bytes (rounded up to a whole number of pages) of
// anonymous read+write+execute memory, pre-filled with the trap pattern.
func New(size int) (*Buffer, error) {
	pageSize := unix.Getpagesize()
	size = (size + pageSize - 1) / pageSize * pageSize
	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("cannot map %v executable bytes: %w", size, err)
	}
	for i := range mem {
		mem[i] = fillByte
	}
	return &Buffer{mem: mem}, nil
}

// Close unmaps the region; any code previously handed out becomes
// invalid.
func (b *Buffer) Close() error {
	mem := b.mem
	b.mem = nil
	if mem == nil {
		return nil
	}
	return unix.Munmap(mem)
}

// Bytes exposes the mapped region for the emitter to write into.
func (b *Buffer) Bytes() []byte { return b.mem }

// Base returns the address of the first mapped byte.
func (b *Buffer) Base() uintptr { return uintptr(unsafe.Pointer(&b.mem[0])) }

// Size returns the mapped length in bytes.
func (b *Buffer) Size() int { return len(b.mem) }

// Pos returns the write cursor as an offset from Base.
func (b *Buffer) Pos() int { return b.pos }

// Addr returns the absolute address of the next free byte.
func (b *Buffer) Addr() uintptr { return b.Base() + uintptr(b.pos) }

// Remaining returns the number of free bytes past the cursor.
func (b *Buffer) Remaining() int { return len(b.mem) - b.pos }

// Advance moves the cursor to pos. The cursor only moves forward, and
// never past the end of the mapping.
func (b *Buffer) Advance(pos int) error {
	if pos < b.pos {
		return fmt.Errorf("code cursor moved backwards (%v -> %v)", b.pos, pos)
	}
	if pos > len(b.mem) {
		return fmt.Errorf("code buffer exhausted (%v of %v bytes)", pos, len(b.mem))
	}
	b.pos = pos
	return nil
}
