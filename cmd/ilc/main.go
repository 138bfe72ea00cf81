// Command ilc is a thin convenience driver over the IL/verifier/pass/VM
// core: parse, verify, run, opt, disasm (SPEC_FULL §10). It is not a
// front-end compiler — there is no Viper source syntax in this repo,
// only the textual IL itself — it exists so the core is reachable and
// exercisable end to end, mirroring the teacher's own cmd/asm and
// cmd/compile top-level driver packages.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ilc",
		Short:         "ilc parses, verifies, optimizes, and runs Viper IL modules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newParseCmd(), newVerifyCmd(), newOptCmd(), newRunCmd(), newDisasmCmd())
	return root
}
