/* Package main: simple -- a concatenative language that compiles as it reads

simple is a minimal stack language whose interpreter has no interpreter in
it. Each datum the reader produces is translated immediately into x86-64
machine code appended to an executable buffer; evaluating a program means
calling into that buffer as an ordinary native function whose one argument
is the parameter stack.

The system is a triad. The reader lexes bytes into tagged read-objects
(symbols, integers, strings), driven by a per-character readtable of
property bits and macro handlers. The emitter lowers read-objects into a
handful of fixed instruction sequences -- literal pushes and calls -- under
a calling convention where the parameter-stack top pointer lives in RDI on
both sides of every call. The evaluator glues the two together: at the top
level each datum is given its immediate meaning, and inside a definition
form (DEFUN, DEFMACRO, DEFVAL) data are compiled instead, until the
terminator symbol DONE closes the body and the entry address becomes a new
symbol-table binding.

Words compose because every compiled function and every host intrinsic
honours the same contract: stack pointer in, stack pointer out, native
stack 16-byte aligned at inner call sites. Host intrinsics (DUP, SWAP, +,
*, PGET, PSET, ALLOC, PRINTI, PRINTS, READ, EVAL, and the definition
forms) are reached from compiled code through small emitted stubs, so a
call site never cares whether its target was written by the emitter or by
the Go compiler.

There is no garbage collection, no recovery from errors, and no
portability beyond x86-64: a half-written code buffer cannot be rewound,
so every failure is fatal, and everything the guest can address is
retained for the life of the run.

The reader: see reader.go and readtable.go.

The emitter: see internal/x64 and internal/codebuf.

The boundary between Go and native code: see internal/guest.

The evaluator and the definition protocol: see compile.go.
*/
package main
