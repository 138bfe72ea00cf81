package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splanck/viper-sub008/internal/iltext"
)

func newDisasmCmd() *cobra.Command {
	var fnName string
	cmd := &cobra.Command{
		Use:   "disasm <file.vl>",
		Short: "print a dominator-annotated disassembly listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := loadModule(args[0])
			if !ok {
				return fmt.Errorf("parse failed")
			}
			if fnName != "" {
				fn, ok := m.FuncByName(fnName)
				if !ok {
					return fmt.Errorf("no such function %q", fnName)
				}
				fmt.Print(iltext.DisassembleFunction(fn))
				return nil
			}
			fmt.Print(iltext.Disassemble(m))
			return nil
		},
	}
	cmd.Flags().StringVar(&fnName, "func", "", "disassemble only this function")
	return cmd
}
