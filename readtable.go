package main

import "github.com/zc1036/simple/internal/bytein"

// Character properties drive datum classification in the reader. A byte
// may carry several properties; classification tests them in a fixed
// order (error, whitespace, macro, number-init, constituent, number).
type charProp uint8

const (
	propConstituent charProp = 1 << iota
	propNumberInit
	propNumber
	propMacro
	propWhitespace
	propError
)

// A readerMacro consumes the rest of a datum whose classifier byte
// carried propMacro, starting from that byte.
type readerMacro func(vm *VM, in *bytein.Stream, c byte) *object

// A readtable classifies every byte value and names the handler for each
// macro character. A macro byte must have a non-nil dispatch slot. The
// default table is fixed; each VM works on its own copy, whose slots may
// be repointed.
type readtable struct {
	props    [256]charProp
	dispatch [256]readerMacro
}

// newReadtable builds a fresh copy of the default readtable.
func newReadtable() *readtable {
	var rt readtable

	set := func(chars string, p charProp) {
		for i := 0; i < len(chars); i++ {
			rt.props[chars[i]] |= p
		}
	}

	for c := 'a'; c <= 'z'; c++ {
		rt.props[c] |= propConstituent
	}
	for c := 'A'; c <= 'Z'; c++ {
		rt.props[c] |= propConstituent
	}
	set("_!@#$%^&*:,.<>=/?", propConstituent)
	set(";", propConstituent) // reserved for a future comment macro

	set("-+", propNumberInit|propConstituent)
	for c := '0'; c <= '9'; c++ {
		rt.props[c] |= propNumberInit | propNumber | propConstituent
	}

	set(`"[(`, propMacro)
	set("])", propError)
	set(" \t\r\n", propWhitespace)

	rt.dispatch['"'] = (*VM).readString
	rt.dispatch['['] = (*VM).readQuote
	rt.dispatch['('] = (*VM).readList

	return &rt
}
