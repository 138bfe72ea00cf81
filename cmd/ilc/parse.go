package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file.vl>",
		Short: "parse an IL module and report syntax errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := loadModule(args[0])
			if !ok {
				return fmt.Errorf("parse failed")
			}
			colorOK.Fprintf(os.Stdout, "parsed %q: %d functions, %d externs, %d globals\n",
				args[0], len(m.Functions), len(m.Externs), len(m.Globals))
			return nil
		},
	}
}
