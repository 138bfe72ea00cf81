package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/splanck/viper-sub008/internal/iltext"
	"github.com/splanck/viper-sub008/internal/pass"
	"github.com/splanck/viper-sub008/internal/sig"
)

func newOptCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "opt <file.vl>",
		Short: "run the transform pipeline (SCCP, DCE, Mem2Reg, Peephole) and emit the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := loadModule(args[0])
			if !ok {
				return fmt.Errorf("parse failed")
			}
			if err := runVerify(m); err != nil {
				return err
			}
			table := sig.Default()
			p := pass.Default(table)
			p.Debug = debug
			changed, err := p.Run(m)
			if err != nil {
				return fmt.Errorf("pipeline: %w", err)
			}
			colorInfo.Fprintf(os.Stderr, "pipeline changed module: %t\n", changed)
			fmt.Print(iltext.Emit(m))
			return nil
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "re-verify after every pass application that changes the function")
	return cmd
}
