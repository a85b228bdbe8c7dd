package main

type symKind int

const (
	symFunction symKind = iota
	symMacro
	symValue
)

var symKindNames = [...]string{"function", "macro", "value"}

func (k symKind) String() string { return symKindNames[k] }

// A symbol binds an uppercased name to an opaque machine word: a native
// entry address for functions and macros, a literal for values.
type symbol struct {
	next  *symbol
	name  string
	value uintptr
	kind  symKind
}

// The symbol table is a prepend-only list scanned front to back, so new
// entries shadow old ones and nothing is ever removed.
type symtab struct {
	head *symbol
}

func (st *symtab) add(name string, value uintptr, kind symKind) *symbol {
	sym := &symbol{next: st.head, name: name, value: value, kind: kind}
	st.head = sym
	return sym
}

func (st *symtab) lookup(name string) *symbol {
	for sym := st.head; sym != nil; sym = sym.next {
		if sym.name == name {
			return sym
		}
	}
	return nil
}
