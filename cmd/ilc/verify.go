package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/sig"
	"github.com/splanck/viper-sub008/internal/verify"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file.vl>",
		Short: "parse and run the seven-check verifier over a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := loadModule(args[0])
			if !ok {
				return fmt.Errorf("parse failed")
			}
			return runVerify(m)
		},
	}
}

// runVerify reports every diagnostic in red and returns an error if the
// module failed to verify, for reuse by opt/run (which must verify
// before doing anything else with a module).
func runVerify(m *il.Module) error {
	sink := il.DiagSink{Report: func(d il.Diag) {
		colorErr.Fprintf(os.Stderr, "%s: %s\n", d.Code, d.Message)
	}}
	_, res := verify.Verify(m, sig.Default(), sink)
	if !res.OK() {
		return fmt.Errorf("verification failed: %d diagnostic(s)", len(res.Diagnostics))
	}
	colorOK.Fprintln(os.Stdout, "verified OK")
	return nil
}
