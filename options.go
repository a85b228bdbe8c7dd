package main

import "io"

type VMOption interface{ apply(vm *VM) }

var defaultOptions = VMOptions(
	withOutput(io.Discard),
)

// VMOptions combines options into one.
func VMOptions(opts ...VMOption) VMOption { return vmOptions(opts) }

type vmOptions []VMOption

func (opts vmOptions) apply(vm *VM) {
	for _, opt := range opts {
		if opt != nil {
			opt.apply(vm)
		}
	}
}

type withLogfn func(mess string, args ...interface{})

func (logfn withLogfn) apply(vm *VM) {
	vm.logfn = logfn
}

type inputOption struct{ io.Reader }
type outputOption struct{ io.Writer }
type codeSizeOption int
type stackSlotsOption int

func withInput(r io.Reader) inputOption     { return inputOption{r} }
func withOutput(w io.Writer) outputOption   { return outputOption{w} }
func withCodeSize(size int) codeSizeOption  { return codeSizeOption(size) }
func withStackSlots(n int) stackSlotsOption { return stackSlotsOption(n) }

// Inputs accumulate and are read in order.
func (i inputOption) apply(vm *VM) {
	vm.inputs = append(vm.inputs, i.Reader)
}

func (o outputOption) apply(vm *VM) {
	vm.defaultOut = o.Writer
}

func (size codeSizeOption) apply(vm *VM) {
	vm.codeSize = int(size)
}

func (n stackSlotsOption) apply(vm *VM) {
	vm.stackSlots = int(n)
}
