package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/iltext"
)

var (
	colorErr  = color.New(color.FgRed, color.Bold)
	colorWarn = color.New(color.FgYellow)
	colorOK   = color.New(color.FgGreen, color.Bold)
	colorInfo = color.New(color.FgCyan)
)

// loadModule parses path, reporting every parse error in red and
// returning ok=false if any occurred (spec §4.3: "returns every well-typed
// top-level declaration it could recover, plus the accumulated list of
// errors" — a CLI, unlike a library caller, can't do anything useful
// with a partially recovered module, so it stops here).
func loadModule(path string) (*il.Module, bool) {
	src, err := os.ReadFile(path)
	if err != nil {
		colorErr.Fprintf(os.Stderr, "ilc: %v\n", err)
		return nil, false
	}
	m, errs := iltext.Parse(string(src), path)
	for _, e := range errs {
		colorErr.Fprintf(os.Stderr, "parse error: %v\n", e)
	}
	return m, len(errs) == 0
}
