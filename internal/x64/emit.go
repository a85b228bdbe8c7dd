// Package x64 emits the fixed x86-64 instruction sequences the compiler
// strings together. Every operation writes at pos within code and returns
// the advanced cursor; emission is append-only and no operation examines
// prior bytes.
//
// Emitted code follows the parameter-stack convention: the top-of-stack
// pointer lives in RDI on entry to and exit from every emitted function.
// RCX and RSI are scratch.
package x64

import "encoding/binary"

// MaxOpLen bounds the cursor advance of any single operation in this
// package; callers reserve this much buffer space before emitting.
const MaxOpLen = 17

// Prologue adjusts the native stack pointer so that call sites inside the
// function body see a 16-byte aligned RSP.
func Prologue(code []byte, pos int) int {
	return put(code, pos, 0x48, 0x83, 0xEC, 0x08) // subq $8, %rsp
}

// Epilogue undoes Prologue; it must immediately precede the final Ret.
func Epilogue(code []byte, pos int) int {
	return put(code, pos, 0x48, 0x83, 0xC4, 0x08) // addq $8, %rsp
}

// Ret emits a plain return.
func Ret(code []byte, pos int) int {
	return put(code, pos, 0xC3) // retq
}

// Call emits a call to the absolute address target, picking the shortest
// usable encoding: rel32 when target is within ±2 GiB of the next
// instruction, a 32-bit immediate through RCX when the address fits
// unsigned 32 bits, and a 64-bit absolute through RCX otherwise. A zero
// target forces the 64-bit shape so the site can be rewritten by
// PatchCall once the real target is known.
func Call(code []byte, base uintptr, pos int, target uintptr) int {
	if target == 0 {
		return callAbs64(code, pos, target)
	}
	if next := int64(base) + int64(pos) + 5; abs(int64(target)-next) < 0x7fffffe0 {
		pos = put(code, pos, 0xE8) // callq rel32
		binary.LittleEndian.PutUint32(code[pos:], uint32(int64(target)-next))
		return pos + 4
	}
	if uint64(target) <= 0xffffffff {
		pos = put(code, pos, 0xB9) // movl $imm32, %ecx
		binary.LittleEndian.PutUint32(code[pos:], uint32(target))
		return put(code, pos+4, 0xFF, 0xD1) // callq *%rcx
	}
	return callAbs64(code, pos, target)
}

func callAbs64(code []byte, pos int, target uintptr) int {
	pos = put(code, pos, 0x48, 0xB9) // movabsq $imm64, %rcx
	binary.LittleEndian.PutUint64(code[pos:], uint64(target))
	return put(code, pos+8, 0xFF, 0xD1) // callq *%rcx
}

// PatchCall rewrites the target of a 64-bit absolute Call previously
// emitted at site.
func PatchCall(code []byte, site int, target uintptr) {
	binary.LittleEndian.PutUint64(code[site+2:], uint64(target))
}

// Integer emits a literal push: at run time the parameter stack pointer
// moves down one slot and value is stored into the new top slot.
func Integer(code []byte, pos int, value int64) int {
	pos = put(code, pos, 0x48, 0x83, 0xEF, 0x08) // subq $8, %rdi
	pos = put(code, pos, 0x48, 0xB9)             // movabsq $imm64, %rcx
	binary.LittleEndian.PutUint64(code[pos:], uint64(value))
	return put(code, pos+8, 0x48, 0x89, 0x0F) // movq %rcx, (%rdi)
}

// Stub emits the native entry for a registered host function: the
// function's bound index is loaded into ESI and control jumps to the host
// trampoline. A stub honours the same stack-in-RDI convention as any
// emitted function, so call sites need not distinguish host from guest
// targets.
func Stub(code []byte, pos int, index uint32, trampoline uintptr) int {
	pos = put(code, pos, 0xBE) // movl $imm32, %esi
	binary.LittleEndian.PutUint32(code[pos:], index)
	pos = put(code, pos+4, 0x48, 0xB9) // movabsq $imm64, %rcx
	binary.LittleEndian.PutUint64(code[pos:], uint64(trampoline))
	return put(code, pos+8, 0xFF, 0xE1) // jmpq *%rcx
}

func put(code []byte, pos int, bs ...byte) int {
	return pos + copy(code[pos:], bs)
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
