package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config carries the tunables of a run, read from an optional
// simple.toml in the working directory (or the file named by
// $SIMPLE_CONFIG). A missing file means defaults.
type Config struct {
	CodeSize   int `toml:"code-size"`
	StackSlots int `toml:"stack-slots"`
	Verbosity  int `toml:"verbosity"`
}

func loadConfig() (Config, error) {
	var cfg Config

	path := os.Getenv("SIMPLE_CONFIG")
	if path == "" {
		path = "simple.toml"
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return cfg, nil
}
