package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/zc1036/simple/internal/bytein"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	commonlog.Configure(cfg.Verbosity, nil)
	log := commonlog.GetLogger("simple")

	opts := []VMOption{WithOutput(os.Stdout)}
	if cfg.CodeSize != 0 {
		opts = append(opts, WithCodeSize(cfg.CodeSize))
	}
	if cfg.StackSlots != 0 {
		opts = append(opts, WithStackSlots(cfg.StackSlots))
	}
	if cfg.Verbosity > 1 {
		opts = append(opts, WithLogf(log.Debugf))
	}

	// Positional arguments are input files, processed in order; "-"
	// selects standard input. There are no flags.
	for _, arg := range os.Args[1:] {
		if arg == "-" {
			opts = append(opts, WithInput(bytein.Named("<stdin>", os.Stdin)))
			continue
		}
		f, err := os.Open(arg)
		if err != nil {
			log.Criticalf("cannot open %v: %v", arg, err)
			os.Exit(1)
		}
		opts = append(opts, WithInput(f))
	}

	vm := New(opts...)
	defer vm.Close()
	if err := vm.Run(context.Background()); err != nil {
		log.Criticalf("%v", err)
		os.Exit(1)
	}
}
