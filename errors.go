package main

import (
	"errors"
	"fmt"

	"github.com/zc1036/simple/internal/bytein"
)

// Every failure in the reader, compiler, and evaluator is fatal: a
// partially written code buffer cannot be rewound, so errors halt the VM
// and surface from Run. Character errors name the offending character and
// its input position, and name errors name the offending name or
// definition form; the unterminated-string and unterminated-definition
// errors name neither.

var (
	errUnterminatedString     = errors.New("unterminated string literal")
	errUnterminatedDefinition = errors.New("input ended inside a definition")
)

type illegalCharError struct {
	c   byte
	loc bytein.Location
}

func (err illegalCharError) Error() string {
	return fmt.Sprintf("illegal character %q at %v", err.c, err.loc)
}

type noPropsError struct {
	c   byte
	loc bytein.Location
}

func (err noPropsError) Error() string {
	return fmt.Sprintf("character %q at %v has no syntax properties", err.c, err.loc)
}

type numberContError struct {
	c   byte
	loc bytein.Location
}

func (err numberContError) Error() string {
	return fmt.Sprintf("number continuation %q outside of a number at %v", err.c, err.loc)
}

type undefinedNameError string

func (name undefinedNameError) Error() string {
	return fmt.Sprintf("the name %q is undefined", string(name))
}

// badDefNameError names the definition form that was not followed by a
// symbol.
type badDefNameError string

func (form badDefNameError) Error() string {
	return fmt.Sprintf("%v must be followed by a symbol name", string(form))
}

type unimplementedError string

func (what unimplementedError) Error() string {
	return fmt.Sprintf("%v is not implemented", string(what))
}

type allocError struct {
	what string
	err  error
}

func (err allocError) Error() string {
	return fmt.Sprintf("allocation failed: %v: %v", err.what, err.err)
}

func (err allocError) Unwrap() error { return err.err }

// bugError marks conditions the VM's own invariants rule out.
type bugError string

func (mess bugError) Error() string {
	return fmt.Sprintf("internal bug: %v", string(mess))
}
