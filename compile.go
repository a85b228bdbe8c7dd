package main

import (
	"github.com/zc1036/simple/internal/guest"
	"github.com/zc1036/simple/internal/x64"
)

// eval gives a read-object its immediate meaning: functions and macros
// run now against the current parameter stack, values and literals push.
func (vm *VM) eval(obj *object) {
	switch obj.kind {
	case objSymbol:
		sym := vm.symtab.lookup(obj.name)
		if sym == nil {
			vm.halt(undefinedNameError(obj.name))
		}
		switch sym.kind {
		case symFunction, symMacro:
			vm.logf("eval call %v @%#x", sym.name, sym.value)
			vm.sp = guest.Enter(sym.value, vm.sp)
		case symValue:
			vm.push(sym.value)
		}

	case objInteger:
		vm.push(uintptr(obj.value))

	case objString:
		vm.push(vm.stringAddr(obj))

	default:
		vm.halt(unimplementedError(obj.kind.String() + " evaluation"))
	}
}

// compileObject appends code for a read-object's deferred meaning and
// returns the address of the emitted fragment. Macros are the exception:
// they run immediately in the host, and whatever they emit is theirs.
func (vm *VM) compileObject(obj *object) uintptr {
	at := vm.code.Addr()

	switch obj.kind {
	case objSymbol:
		sym := vm.symtab.lookup(obj.name)
		if sym == nil {
			vm.halt(undefinedNameError(obj.name))
		}
		switch sym.kind {
		case symFunction:
			vm.logf("compile call %v @%#x", sym.name, sym.value)
			vm.emitCall(sym.value)
		case symMacro:
			vm.logf("compile macro %v @%#x", sym.name, sym.value)
			vm.sp = guest.Enter(sym.value, vm.sp)
		case symValue:
			vm.emitInteger(int64(sym.value))
		}

	case objInteger:
		vm.emitInteger(obj.value)

	case objString:
		vm.emitInteger(int64(vm.stringAddr(obj)))

	default:
		vm.halt(unimplementedError(obj.kind.String() + " compilation"))
	}

	return at
}

//// Emitter plumbing

func (vm *VM) emitCall(target uintptr) {
	vm.reserve(x64.MaxOpLen)
	vm.advance(x64.Call(vm.code.Bytes(), vm.code.Base(), vm.code.Pos(), target))
}

func (vm *VM) emitInteger(value int64) {
	vm.reserve(x64.MaxOpLen)
	vm.advance(x64.Integer(vm.code.Bytes(), vm.code.Pos(), value))
}

func (vm *VM) emitPrologue() {
	vm.reserve(x64.MaxOpLen)
	vm.advance(x64.Prologue(vm.code.Bytes(), vm.code.Pos()))
}

func (vm *VM) emitEpilogue() {
	vm.reserve(x64.MaxOpLen)
	vm.advance(x64.Epilogue(vm.code.Bytes(), vm.code.Pos()))
}

func (vm *VM) emitRet() {
	vm.reserve(x64.MaxOpLen)
	vm.advance(x64.Ret(vm.code.Bytes(), vm.code.Pos()))
}

//// Definitions

// The terminator symbol that ends every definition body.
const doneName = "DONE"

// define implements the definition forms. DEFUN and DEFMACRO compile a
// body into a fresh native function; DEFVAL evaluates one and captures
// the resulting stack top. All three read their name and body from the
// current input, stopping at the terminator.
func (vm *VM) define(form string, kind symKind) {
	in := vm.inStream().in

	name := vm.readObject(in)
	if name == nil || name.kind != objSymbol {
		vm.halt(badDefNameError(form))
	}

	entry := vm.code.Addr()
	if kind != symValue {
		// registered up front so the body can call itself
		vm.symtab.add(name.name, entry, kind)
	}
	vm.logf("%v %v @%#x", form, name.name, entry)

	vm.emitPrologue()
	for {
		obj := vm.readObject(in)
		if obj == nil {
			vm.halt(errUnterminatedDefinition)
		}
		if obj.kind == objSymbol && obj.name == doneName {
			break
		}
		if kind == symValue {
			vm.eval(obj)
		} else {
			vm.compileObject(obj)
		}
	}
	vm.emitEpilogue()
	vm.emitRet()

	if kind == symValue {
		vm.symtab.add(name.name, vm.pop(), symValue)
	}
}
