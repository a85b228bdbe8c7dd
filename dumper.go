package main

import (
	"fmt"
	"io"
)

// vmDumper renders the VM's shared state for failing tests: the code
// buffer extent, the live parameter stack, the symbol
// table newest first, and the stream table.
type vmDumper struct {
	vm  *VM
	out io.Writer
}

func (dump vmDumper) dump() {
	vm := dump.vm

	fmt.Fprintf(dump.out, "# VM Dump\n")
	if vm.code != nil {
		fmt.Fprintf(dump.out, "  code: %#x + %v bytes (of %v)\n",
			vm.code.Base(), vm.code.Pos(), vm.code.Size())
		fmt.Fprintf(dump.out, "  stack: %v\n", vm.stackValues())
	}

	fmt.Fprintf(dump.out, "# Symbols (newest first)\n")
	for sym := vm.symtab.head; sym != nil; sym = sym.next {
		fmt.Fprintf(dump.out, "  %-8v %v = %v\n", sym.kind, sym.name, dump.formatValue(sym))
	}

	if len(vm.streams) > 0 {
		fmt.Fprintf(dump.out, "# Streams\n")
		for i, s := range vm.streams {
			handle := uintptr(i + 1)
			mark := ""
			if vm.inCell != nil && *vm.inCell == handle {
				mark = " <-- *IN*"
			}
			if vm.outCell != nil && *vm.outCell == handle {
				mark += " <-- *OUT*"
			}
			fmt.Fprintf(dump.out, "  #%v %v%v\n", handle, s.name, mark)
		}
	}
}

// formatValue renders a symbol's machine word: code-buffer addresses get
// their offset, values print raw.
func (dump vmDumper) formatValue(sym *symbol) string {
	if code := dump.vm.code; code != nil && sym.kind != symValue {
		if off := int64(sym.value) - int64(code.Base()); off >= 0 && off < int64(code.Size()) {
			return fmt.Sprintf("%#x (code+%v)", sym.value, off)
		}
	}
	return fmt.Sprintf("%#x", sym.value)
}
