package main

import (
	"fmt"
	"io"

	"github.com/zc1036/simple/internal/bytein"
)

func upper(c byte) byte {
	if 'a' <= c && c <= 'z' {
		c -= 'a' - 'A'
	}
	return c
}

// readObject reads one datum from in, returning nil at a clean end of
// input. Every byte is folded to upper case before property lookup; the
// classifier byte is handed on to the subordinate reader, which consumes
// the rest of the datum and pushes back the first byte past it.
func (vm *VM) readObject(in *bytein.Stream) *object {
	for {
		c, err := in.ReadByte()
		if err == io.EOF {
			return nil
		}
		vm.haltif(err)

		c = upper(c)
		props := vm.rdtab.props[c]

		switch {
		case props&propError != 0:
			vm.halt(illegalCharError{c, in.Loc()})

		case props&propWhitespace != 0:
			continue

		case props&propMacro != 0:
			handler := vm.rdtab.dispatch[c]
			if handler == nil {
				vm.halt(bugError(fmt.Sprintf("macro character %q has no reader", c)))
			}
			return vm.retain(handler(vm, in, c))

		case props&propNumberInit != 0:
			return vm.retain(vm.readInteger(in, c))

		case props&propConstituent != 0:
			return vm.retain(vm.readSymbol(in, c))

		case props&propNumber != 0:
			vm.halt(numberContError{c, in.Loc()})

		default:
			vm.halt(noPropsError{c, in.Loc()})
		}
	}
}

// readSymbol accumulates uppercased constituent bytes starting with the
// classifier byte.
func (vm *VM) readSymbol(in *bytein.Stream, c byte) *object {
	repr := []byte{c}
	for {
		c, err := in.ReadByte()
		if err == io.EOF {
			break
		}
		vm.haltif(err)

		c = upper(c)
		if vm.rdtab.props[c]&propConstituent == 0 {
			vm.haltif(in.UnreadByte())
			break
		}
		repr = append(repr, c)
	}
	return symbolObject(string(repr))
}

// readInteger reads an optionally signed decimal numeral. A sign byte
// followed by no digit is not a numeral; the datum continues as a symbol
// beginning with the sign, so that "+" and "-" can name definitions.
func (vm *VM) readInteger(in *bytein.Stream, c byte) *object {
	sign := c
	negate := false
	var digits []byte
	switch c {
	case '-':
		negate = true
	case '+':
	default:
		digits = append(digits, c)
	}

	for {
		c, err := in.ReadByte()
		if err == io.EOF {
			break
		}
		vm.haltif(err)

		if vm.rdtab.props[c]&propNumber == 0 {
			vm.haltif(in.UnreadByte())
			break
		}
		digits = append(digits, c)
	}

	if len(digits) == 0 {
		return vm.readSymbol(in, sign)
	}

	// right to left, with factors ascending from one
	var value, factor int64 = 0, 1
	for i := len(digits); i > 0; i-- {
		value += int64(digits[i-1]-'0') * factor
		factor *= 10
	}
	if negate {
		value = -value
	}
	return integerObject(value)
}

// readString consumes bytes up to the closing quote, capturing them raw:
// no escapes, no case folding, no embedded quotes.
func (vm *VM) readString(in *bytein.Stream, c byte) *object {
	var contents []byte
	for {
		c, err := in.ReadByte()
		if err == io.EOF {
			vm.halt(errUnterminatedString)
		}
		vm.haltif(err)

		if c == '"' {
			break
		}
		contents = append(contents, c)
	}
	return stringObject(contents)
}

// Quote and list syntax is reserved. The dispatch slots exist so the
// active readtable can be repointed at real handlers.
func (vm *VM) readQuote(in *bytein.Stream, c byte) *object {
	vm.halt(unimplementedError("the quote reader"))
	return nil
}

func (vm *VM) readList(in *bytein.Stream, c byte) *object {
	vm.halt(unimplementedError("the list reader"))
	return nil
}
