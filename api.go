package main

import (
	"context"
	"errors"
	"io"
	"runtime/debug"

	"github.com/zc1036/simple/internal/panicerr"
)

func New(opts ...VMOption) *VM {
	var vm VM
	defaultOptions.apply(&vm)
	VMOptions(opts...).apply(&vm)
	vm.rdtab = newReadtable()
	return &vm
}

// Run evaluates every input to end of file. It returns nil on a clean
// end and the halting error otherwise; the VM is not reusable after an
// error.
func (vm *VM) Run(ctx context.Context) error {
	// The collector cannot walk a goroutine stack with guest frames on
	// it, so it stays off while guest code may run. Everything the guest
	// can reach is retained for the VM's lifetime regardless.
	old := debug.SetGCPercent(-1)
	defer debug.SetGCPercent(old)

	err := panicerr.Recover("VM", func() error {
		if vm.code == nil {
			vm.setup()
		}
		return vm.run(ctx)
	})
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var halted haltError
	if errors.As(err, &halted) {
		err = halted.error
	}
	return err
}

func (vm *VM) Close() (err error) {
	for i := len(vm.closers) - 1; i >= 0; i-- {
		if cerr := vm.closers[i].Close(); err == nil {
			err = cerr
		}
	}
	if vm.code != nil {
		if cerr := vm.code.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func WithInput(r io.Reader) VMOption  { return withInput(r) }
func WithOutput(w io.Writer) VMOption { return withOutput(w) }
func WithCodeSize(size int) VMOption  { return withCodeSize(size) }
func WithStackSlots(n int) VMOption   { return withStackSlots(n) }

func WithLogf(logfn func(mess string, args ...interface{})) VMOption { return withLogfn(logfn) }
