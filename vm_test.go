package main

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zc1036/simple/internal/bytein"
	"github.com/zc1036/simple/internal/guest"
	"github.com/zc1036/simple/internal/panicerr"
)

type vmTestCases []vmTestCase

func (vmts vmTestCases) run(t *testing.T) {
	for _, vmt := range vmts {
		if !t.Run(vmt.name, vmt.run) {
			return
		}
	}
}

func vmTest(name string) (vmt vmTestCase) {
	vmt.name = name
	return vmt
}

type vmTestCase struct {
	name    string
	opts    []VMOption
	inputs  []string
	stack   []int64
	ops     []func(vm *VM)
	expect  []func(t *testing.T, vm *VM)
	wantErr func(t *testing.T, err error)
	timeout time.Duration
}

func (vmt vmTestCase) withOptions(opts ...VMOption) vmTestCase {
	vmt.opts = append(vmt.opts, opts...)
	return vmt
}

func (vmt vmTestCase) withInput(input string) vmTestCase {
	vmt.inputs = append(vmt.inputs, input)
	return vmt
}

// withStack primes the parameter stack before any do() ops run, pushing
// bottom first.
func (vmt vmTestCase) withStack(values ...int64) vmTestCase {
	vmt.stack = append(vmt.stack, values...)
	return vmt
}

func (vmt vmTestCase) do(ops ...func(vm *VM)) vmTestCase {
	vmt.ops = append(vmt.ops, ops...)
	return vmt
}

func (vmt vmTestCase) withTimeout(timeout time.Duration) vmTestCase {
	vmt.timeout = timeout
	return vmt
}

func (vmt vmTestCase) expectStack(values ...int64) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		if values == nil {
			values = []int64{}
		}
		got := vm.stackValues()
		if got == nil {
			got = []int64{}
		}
		assert.Equal(t, values, got, "expected stack values")
	})
	return vmt
}

func (vmt vmTestCase) expectOutput(output string) vmTestCase {
	var out strings.Builder
	vmt.opts = append(vmt.opts, WithOutput(&out))
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		assert.Equal(t, output, out.String(), "expected output")
	})
	return vmt
}

func (vmt vmTestCase) expectSymbol(name string, kind symKind) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		sym := vm.symtab.lookup(name)
		if assert.NotNil(t, sym, "expected symbol %q", name) {
			assert.Equal(t, kind, sym.kind, "expected %q kind", name)
		}
	})
	return vmt
}

func (vmt vmTestCase) expectValueSymbol(name string, value int64) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, vm *VM) {
		sym := vm.symtab.lookup(name)
		if assert.NotNil(t, sym, "expected symbol %q", name) {
			assert.Equal(t, symValue, sym.kind, "expected %q kind", name)
			assert.Equal(t, value, int64(sym.value), "expected %q value", name)
		}
	})
	return vmt
}

func (vmt vmTestCase) expectError(target error) vmTestCase {
	vmt.wantErr = func(t *testing.T, err error) {
		assert.True(t, errors.Is(err, target), "expected error %v, got: %+v", target, err)
	}
	return vmt
}

func (vmt vmTestCase) expectErrorContains(mess string) vmTestCase {
	vmt.wantErr = func(t *testing.T, err error) {
		if assert.Error(t, err, "expected a VM run error") {
			assert.Contains(t, err.Error(), mess, "expected error text")
		}
	}
	return vmt
}

func (vmt vmTestCase) run(t *testing.T) {
	var opts []VMOption
	for i, input := range vmt.inputs {
		name := fmt.Sprintf("%v/input_%v", t.Name(), i+1)
		opts = append(opts, WithInput(bytein.Named(name, strings.NewReader(input))))
	}
	opts = append(opts, vmt.opts...)

	vm := New(opts...)
	defer vm.Close()

	timeout := vmt.timeout
	if timeout == 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var err error
	if len(vmt.ops) > 0 {
		err = vmt.runOps(vm)
	} else {
		err = vm.Run(ctx)
	}

	if vmt.wantErr != nil {
		vmt.wantErr(t, err)
	} else if !assert.NoError(t, err, "unexpected VM run error") {
		dumpToTest(t, vm)
		return
	}

	for _, expect := range vmt.expect {
		expect(t, vm)
	}
	if t.Failed() {
		dumpToTest(t, vm)
	}
}

// runOps drives individual VM methods instead of the top-level loop.
func (vmt vmTestCase) runOps(vm *VM) error {
	return runIsolated(func() {
		vm.setup()
		for _, v := range vmt.stack {
			vm.push(uintptr(v))
		}
		for _, op := range vmt.ops {
			op(vm)
		}
		vm.flushOut()
	})
}

// runIsolated runs f with the collector off and halts recovered, like
// Run does for the top-level loop.
func runIsolated(f func()) error {
	old := debug.SetGCPercent(-1)
	defer debug.SetGCPercent(old)

	err := panicerr.Recover("vmTestCase", func() error {
		f()
		return nil
	})
	var halted haltError
	if errors.As(err, &halted) {
		err = halted.error
	}
	return err
}

func dumpToTest(t *testing.T, vm *VM) {
	var out strings.Builder
	vmDumper{vm: vm, out: &out}.dump()
	t.Logf("%s", out.String())
}

func Test_scenarios(t *testing.T) {
	vmTestCases{
		vmTest("add").withInput(`3 4 + PRINTI`).expectOutput("7\n"),
		vmTest("mul").withInput(`2 3 * PRINTI`).expectOutput("6\n"),
		vmTest("dup").withInput(`5 DUP * PRINTI`).expectOutput("25\n"),
		vmTest("string").withInput(`"hi" PRINTS`).expectOutput("hi\n"),
		vmTest("defun").withInput(`DEFUN SQUARE DUP * DONE 6 SQUARE PRINTI`).expectOutput("36\n"),
		vmTest("defval").withInput(`DEFVAL TEN 10 DONE TEN TEN + PRINTI`).expectOutput("20\n"),

		vmTest("swap").withInput(`1 5 SWAP PRINTI`).expectOutput("1\n").expectStack(5),
		vmTest("negative literal").withInput(`-12 PRINTI`).expectOutput("-12\n"),
		vmTest("signed positive literal").withInput(`+3 PRINTI`).expectOutput("3\n"),
		vmTest("ptrsize").withInput(`PTRSIZE PRINTI`).expectOutput("8\n"),
		vmTest("lower case input").withInput(`2 3 * printi`).expectOutput("6\n"),

		vmTest("defun keeps composing").
			withInput(`DEFUN SQUARE DUP * DONE DEFUN FOURTH SQUARE SQUARE DONE 2 FOURTH PRINTI`).
			expectOutput("16\n"),

		vmTest("string through a defun").
			withInput(`DEFUN GREET "hello" PRINTS DONE GREET GREET`).
			expectOutput("hello\nhello\n"),

		vmTest("macro runs at compile time").
			withInput(`DEFMACRO NOW 7 PRINTI DONE DEFUN QUIET NOW DONE QUIET`).
			expectOutput("7\n").
			expectSymbol("NOW", symMacro).
			expectSymbol("QUIET", symFunction),

		vmTest("pointer cell").
			withInput(`DEFVAL CELL 8 ALLOC DONE 42 CELL PSET CELL PGET PRINTI`).
			expectOutput("42\n"),

		vmTest("definitions span inputs").
			withInput(`DEFUN SQ DUP * DONE`).
			withInput(`4 SQ PRINTI`).
			expectOutput("16\n"),

		vmTest("defval registers a value").
			withInput(`DEFVAL TEN 10 DONE`).
			expectValueSymbol("TEN", 10).
			expectStack(),

		vmTest("empty input").withInput("   \n\t  ").expectStack(),
	}.run(t)
}

func Test_failures(t *testing.T) {
	vmTestCases{
		vmTest("undefined name").withInput(`NOPE`).
			expectErrorContains(`"NOPE"`),
		vmTest("undefined name in a body").withInput(`DEFUN F NOPE DONE`).
			expectErrorContains(`"NOPE"`),
		vmTest("stray closing paren").withInput(`)`).
			expectErrorContains(`')'`),
		vmTest("stray closing bracket").withInput(`]`).
			expectErrorContains(`']'`),
		vmTest("unterminated string").withInput(`"abc`).
			expectError(errUnterminatedString),
		vmTest("unterminated definition").withInput(`DEFUN F DUP`).
			expectError(errUnterminatedDefinition),
		vmTest("bad definition name").withInput(`DEFUN 5 DUP DONE`).
			expectErrorContains("DEFUN"),
		vmTest("quote syntax is reserved").withInput(`[1 2]`).
			expectErrorContains("quote reader"),
		vmTest("list syntax is reserved").withInput(`(1 2)`).
			expectErrorContains("list reader"),
	}.run(t)
}

func Test_intrinsics(t *testing.T) {
	var (
		dup  = (*VM).dup
		swap = (*VM).swap
		add  = (*VM).add
		mul  = (*VM).mul
	)
	vmTestCases{
		vmTest("dup").withStack(5).do(dup).expectStack(5, 5),
		vmTest("swap").withStack(1, 2).do(swap).expectStack(2, 1),
		vmTest("add").withStack(11, 3, 4).do(add).expectStack(11, 7),
		vmTest("add negative").withStack(3, -4).do(add).expectStack(-1),
		vmTest("mul").withStack(11, 5, 6).do(mul).expectStack(11, 30),

		vmTest("alloc pset pget").do(func(vm *VM) {
			vm.push(16)
			vm.alloc()
			addr := vm.pop()
			vm.push(99)
			vm.push(addr)
			vm.pset()
			vm.push(addr)
			vm.pget()
		}).expectStack(99),

		vmTest("printi").withStack(-7).do((*VM).printi).
			expectOutput("-7\n").expectStack(),
	}.run(t)
}

// Reading then evaluating a literal leaves it on the stack; reading then
// compiling it and calling the fragment does the same.
func Test_literal_roundtrip(t *testing.T) {
	vmTestCases{
		vmTest("eval").withInput(`12345`).expectStack(12345),
		vmTest("eval negative").withInput(`-12345`).expectStack(-12345),

		vmTest("compile and call").do(func(vm *VM) {
			entry := vm.code.Addr()
			vm.emitPrologue()
			vm.compileObject(integerObject(7654321))
			vm.emitEpilogue()
			vm.emitRet()
			vm.sp = guest.Enter(entry, vm.sp)
		}).expectStack(7654321),

		vmTest("compile a call and call it").do(func(vm *VM) {
			vm.push(6)
			entry := vm.code.Addr()
			vm.emitPrologue()
			vm.compileObject(integerObject(7))
			vm.compileObject(symbolObject("*"))
			vm.emitEpilogue()
			vm.emitRet()
			vm.sp = guest.Enter(entry, vm.sp)
		}).expectStack(42),
	}.run(t)
}

func Test_compile_advances_cursor(t *testing.T) {
	vm := New()
	defer vm.Close()
	require.NoError(t, runIsolated(func() {
		vm.setup()
		for _, obj := range []*object{
			integerObject(42),
			symbolObject("DUP"),
			stringObject([]byte("hey")),
		} {
			before := vm.code.Pos()
			at := vm.compileObject(vm.retain(obj))
			if assert.Greater(t, vm.code.Pos(), before, "compiling %v must emit", obj.kind) {
				assert.Equal(t, vm.code.Base()+uintptr(before), at, "fragment address")
			}
		}
	}))
}

func Test_program_cell_tracks_cursor(t *testing.T) {
	vm := New()
	defer vm.Close()
	require.NoError(t, runIsolated(func() {
		vm.setup()
		assert.Equal(t, vm.code.Addr(), *vm.progCell)
		vm.emitInteger(1)
		assert.Equal(t, vm.code.Addr(), *vm.progCell)
	}))
}

func Test_code_buffer_exhaustion(t *testing.T) {
	vmTest("tiny code buffer").
		withOptions(WithCodeSize(1)).
		withInput(strings.Repeat("DEFUN F DUP DUP DUP DONE ", 200)).
		expectErrorContains("code buffer").
		run(t)
}
