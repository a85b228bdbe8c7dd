package main

import (
	"context"
	"fmt"
	"io"
	"unsafe"

	"github.com/zc1036/simple/internal/bytein"
	"github.com/zc1036/simple/internal/codebuf"
	"github.com/zc1036/simple/internal/guest"
	"github.com/zc1036/simple/internal/x64"
)

const ptrSize = int(unsafe.Sizeof(uintptr(0)))

const (
	defaultCodeSize   = 512 << 10
	defaultStackSlots = 1024

	// native stack headroom for host functions called beneath guest
	// frames; the runtime cannot grow the stack once guest code is on it
	stackReserve = 1 << 20
)

// VM ties the reader, the compiler, and the evaluator together around
// three shared singletons: the symbol table, the active readtable, and
// the code buffer. All data flow between compiled fragments happens on
// the parameter stack, a downward-growing array of machine-word slots
// whose top pointer is the value every guest call receives and returns.
type VM struct {
	logfn func(mess string, args ...interface{})

	symtab symtab
	rdtab  *readtable
	code   *codebuf.Buffer

	stack []uintptr // parameter stack slots
	top   uintptr   // address one past the highest usable slot
	sp    uintptr   // authoritative top-of-stack handle

	// Stream handles are 1-based indices into streams, so guest code can
	// store them through PSET without aliasing host memory.
	streams []*stream

	inCell   *uintptr // *IN*: cell holding the current input stream handle
	outCell  *uintptr // *OUT*
	progCell *uintptr // *PROGRAM*: cell tracking the absolute write cursor

	inputs []io.Reader // top-level inputs, consumed in order

	// Anything whose address may be held by the guest or compiled into
	// the code buffer is retained here for the life of the VM; there is
	// no reclamation.
	objects []*object
	blocks  [][]byte
	cells   []*uintptr

	defaultOut io.Writer
	codeSize   int
	stackSlots int

	closers []io.Closer
}

type stream struct {
	name string
	in   *bytein.Stream
	out  writeFlusher
}

func (vm *VM) logf(mess string, args ...interface{}) {
	if vm.logfn != nil {
		vm.logfn(mess, args...)
	}
}

// halt aborts the run. There is no recovery: a partially written code
// buffer cannot be rewound, so the error unwinds out of Run.
func (vm *VM) halt(err error) {
	// flushing output is best effort on the way out
	func() {
		defer func() { recover() }()
		vm.flushOut()
	}()
	vm.logf("halt error: %v", err)
	panic(haltError{err})
}

func (vm *VM) haltif(err error) {
	if err != nil {
		vm.halt(err)
	}
}

type haltError struct{ error }

func (err haltError) Error() string {
	if err.error != nil {
		return fmt.Sprintf("halted: %v", err.error)
	}
	return "halted"
}

func (err haltError) Unwrap() error { return err.error }

//// Parameter stack

func (vm *VM) initStack() {
	slots := vm.stackSlots
	if slots == 0 {
		slots = defaultStackSlots
	}
	vm.stack = make([]uintptr, slots)
	top := uintptr(unsafe.Pointer(&vm.stack[slots-1]))
	top &^= 15 // 16-byte aligned at guest entry
	vm.top = top
	vm.sp = top
}

// push and pop mirror the guest convention: the stack grows downward and
// the top pointer is the top value's address.
func (vm *VM) push(v uintptr) {
	vm.sp -= uintptr(ptrSize)
	*(*uintptr)(unsafe.Pointer(vm.sp)) = v
}

func (vm *VM) pop() uintptr {
	v := *(*uintptr)(unsafe.Pointer(vm.sp))
	vm.sp += uintptr(ptrSize)
	return v
}

func (vm *VM) peek() uintptr {
	return *(*uintptr)(unsafe.Pointer(vm.sp))
}

// stackValues reads the live parameter stack, bottom first, for
// diagnostics and tests.
func (vm *VM) stackValues() []int64 {
	var vals []int64
	for p := vm.top; p > vm.sp; p -= uintptr(ptrSize) {
		vals = append(vals, int64(*(*uintptr)(unsafe.Pointer(p - uintptr(ptrSize)))))
	}
	return vals
}

//// Retained host memory

func (vm *VM) retain(obj *object) *object {
	vm.objects = append(vm.objects, obj)
	return obj
}

func (vm *VM) retainBytes(b []byte) uintptr {
	vm.blocks = append(vm.blocks, b)
	return uintptr(unsafe.Pointer(&b[0]))
}

func (vm *VM) newCell() *uintptr {
	cell := new(uintptr)
	vm.cells = append(vm.cells, cell)
	return cell
}

func cellAddr(cell *uintptr) uintptr {
	return uintptr(unsafe.Pointer(cell))
}

func objAddr(obj *object) uintptr {
	return uintptr(unsafe.Pointer(obj))
}

func objAt(addr uintptr) *object {
	return (*object)(unsafe.Pointer(addr))
}

// stringAddr returns the address of a string object's NUL-terminated
// backing bytes. The object is retained by the VM, so addresses compiled
// into the code buffer stay valid.
func (vm *VM) stringAddr(obj *object) uintptr {
	return uintptr(unsafe.Pointer(&obj.str[0]))
}

//// Streams

func (vm *VM) addStream(s *stream) uintptr {
	vm.streams = append(vm.streams, s)
	return uintptr(len(vm.streams))
}

func (vm *VM) stream(handle uintptr) *stream {
	if i := int(handle) - 1; i >= 0 && i < len(vm.streams) {
		return vm.streams[i]
	}
	vm.halt(bugError(fmt.Sprintf("bad stream handle %v", handle)))
	return nil
}

func (vm *VM) inStream() *stream  { return vm.stream(*vm.inCell) }
func (vm *VM) outStream() *stream { return vm.stream(*vm.outCell) }

func (vm *VM) flushOut() {
	for _, s := range vm.streams {
		if s.out != nil {
			vm.haltif(s.out.Flush())
		}
	}
}

//// Code buffer

// reserve guarantees room for the next emitter operation.
func (vm *VM) reserve(n int) {
	if vm.code.Remaining() < n {
		vm.halt(allocError{"code buffer",
			fmt.Errorf("exhausted at %v bytes", vm.code.Size())})
	}
}

// advance commits an emitter operation's new cursor and publishes it
// through the *PROGRAM* cell.
func (vm *VM) advance(pos int) {
	if err := vm.code.Advance(pos); err != nil {
		vm.halt(bugError(err.Error()))
	}
	vm.syncProgram()
}

func (vm *VM) syncProgram() {
	*vm.progCell = vm.code.Addr()
}

//// Setup

// setup allocates the run-time singletons and registers the globals and
// intrinsics guest code starts from.
func (vm *VM) setup() {
	guest.GrowStack(stackReserve)

	size := vm.codeSize
	if size == 0 {
		size = defaultCodeSize
	}
	code, err := codebuf.New(size)
	if err != nil {
		vm.halt(allocError{"code buffer", err})
	}
	vm.code = code

	vm.initStack()

	vm.inCell = vm.newCell()
	vm.outCell = vm.newCell()
	vm.progCell = vm.newCell()
	vm.syncProgram()

	out := vm.defaultOut
	if out == nil {
		out = io.Discard
	}
	*vm.outCell = vm.addStream(&stream{name: "output", out: newWriteFlusher(out)})

	vm.symtab.add("*SYMTAB*", uintptr(unsafe.Pointer(&vm.symtab)), symValue)
	vm.symtab.add("*READTAB*", uintptr(unsafe.Pointer(vm.rdtab)), symValue)
	vm.symtab.add("*IN*", cellAddr(vm.inCell), symValue)
	vm.symtab.add("*OUT*", cellAddr(vm.outCell), symValue)
	vm.symtab.add("*PROGRAM*", cellAddr(vm.progCell), symValue)
	vm.symtab.add("PTRSIZE", uintptr(ptrSize), symValue)

	for _, ent := range []struct {
		name string
		fn   func(*VM)
	}{
		{"READ", (*VM).hostRead},
		{"EVAL", (*VM).hostEval},
		{"DUP", (*VM).dup},
		{"SWAP", (*VM).swap},
		{"*", (*VM).mul},
		{"+", (*VM).add},
		{"PGET", (*VM).pget},
		{"PSET", (*VM).pset},
		{"ALLOC", (*VM).alloc},
		{"PRINTI", (*VM).printi},
		{"PRINTS", (*VM).prints},
		{"DEFUN", (*VM).defun},
		{"DEFMACRO", (*VM).defmacro},
		{"DEFVAL", (*VM).defval},
	} {
		vm.bindHost(ent.name, ent.fn)
	}
}

// bindHost registers fn as guest-callable, emits its native stub, and
// enters the stub's address into the symbol table. The wrapper keeps
// vm.sp authoritative on both sides of the crossing.
func (vm *VM) bindHost(name string, fn func(*VM)) {
	index := guest.Bind(func(sp uintptr) uintptr {
		vm.sp = sp
		fn(vm)
		return vm.sp
	})

	vm.reserve(x64.MaxOpLen)
	entry := vm.code.Addr()
	vm.advance(x64.Stub(vm.code.Bytes(), vm.code.Pos(), index, guest.Trampoline()))
	vm.symtab.add(name, entry, symFunction)
	vm.logf("bind %v @%#x", name, entry)
}

//// Top level

// run reads and evaluates every datum of every input, in order.
func (vm *VM) run(ctx context.Context) error {
	for _, input := range vm.inputs {
		in := bytein.New(input)
		*vm.inCell = vm.addStream(&stream{name: in.Loc().Name, in: in})
		vm.logf("input %v", in.Loc().Name)

		for {
			obj := vm.readObject(vm.inStream().in)
			if obj == nil {
				break
			}
			vm.eval(obj)
			vm.flushOut()
			vm.haltif(ctx.Err())
		}

		if cl, ok := input.(io.Closer); ok {
			vm.haltif(cl.Close())
		}
		*vm.inCell = 0
	}
	return nil
}
