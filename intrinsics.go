package main

import (
	"fmt"
	"unsafe"
)

// Host intrinsics. Each runs under the guest convention -- it sees the
// parameter stack the caller saw -- whether reached from compiled code
// through its stub or from the evaluator.

// dup ( a -- a a )
func (vm *VM) dup() {
	vm.push(vm.peek())
}

// swap ( a b -- b a )
func (vm *VM) swap() {
	b, a := vm.pop(), vm.pop()
	vm.push(b)
	vm.push(a)
}

// add ( a b -- a+b )
func (vm *VM) add() {
	b, a := vm.pop(), vm.pop()
	vm.push(a + b)
}

// mul ( a b -- a*b )
func (vm *VM) mul() {
	b, a := vm.pop(), vm.pop()
	vm.push(a * b)
}

// pget ( addr -- *addr )
func (vm *VM) pget() {
	addr := vm.pop()
	vm.push(*(*uintptr)(unsafe.Pointer(addr)))
}

// pset ( value addr -- )
func (vm *VM) pset() {
	addr, value := vm.pop(), vm.pop()
	*(*uintptr)(unsafe.Pointer(addr)) = value
}

// alloc ( size -- addr ) hands out zeroed bytes that live as long as the
// VM does.
func (vm *VM) alloc() {
	size := int(vm.pop())
	if size <= 0 {
		vm.halt(allocError{"guest block", fmt.Errorf("bad size %v", size)})
	}
	vm.push(vm.retainBytes(make([]byte, size)))
}

// printi ( n -- ) writes the signed decimal of the top slot and a
// newline to the current output stream.
func (vm *VM) printi() {
	n := int64(vm.pop())
	_, err := fmt.Fprintf(vm.outStream().out, "%d\n", n)
	vm.haltif(err)
}

// prints ( addr -- ) writes the bytes at addr up to their NUL terminator
// and a newline to the current output stream.
func (vm *VM) prints() {
	addr := vm.pop()
	var buf []byte
	for p := addr; ; p++ {
		c := *(*byte)(unsafe.Pointer(p))
		if c == 0 {
			break
		}
		buf = append(buf, c)
	}
	buf = append(buf, '\n')
	_, err := vm.outStream().out.Write(buf)
	vm.haltif(err)
}

// hostRead ( stream -- obj ) reads one datum from the stream handle and
// pushes the object's address, or zero at end of input.
func (vm *VM) hostRead() {
	s := vm.stream(vm.pop())
	obj := vm.readObject(s.in)
	if obj == nil {
		vm.push(0)
		return
	}
	vm.push(objAddr(obj))
}

// hostEval ( obj -- ? ) evaluates a read-object by address, leaving
// whatever it leaves on the stack.
func (vm *VM) hostEval() {
	addr := vm.pop()
	if addr == 0 {
		vm.halt(bugError("EVAL of a null object"))
	}
	vm.eval(objAt(addr))
}

func (vm *VM) defun()    { vm.define("DEFUN", symFunction) }
func (vm *VM) defmacro() { vm.define("DEFMACRO", symMacro) }
func (vm *VM) defval()   { vm.define("DEFVAL", symValue) }
