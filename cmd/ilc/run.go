package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/splanck/viper-sub008/internal/hostrt"
	"github.com/splanck/viper-sub008/internal/il"
	"github.com/splanck/viper-sub008/internal/rtffi"
	"github.com/splanck/viper-sub008/internal/rtval"
	"github.com/splanck/viper-sub008/internal/sig"
	"github.com/splanck/viper-sub008/internal/vm"
)

func newRunCmd() *cobra.Command {
	var (
		fnName       string
		argsCSV      string
		rcDebug      bool
		noTailcall   bool
		maxSteps     int64
		maxCallDepth int
		trace        bool
	)
	cmd := &cobra.Command{
		Use:   "run <file.vl>",
		Short: "verify and run a module's entry function to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := loadModule(args[0])
			if !ok {
				return fmt.Errorf("parse failed")
			}
			if err := runVerify(m); err != nil {
				return err
			}

			fn, ok := m.FuncByName(fnName)
			if !ok {
				return fmt.Errorf("no such function %q", fnName)
			}
			callArgs, err := parseScalarArgs(fn, argsCSV)
			if err != nil {
				return err
			}

			opts := vm.DefaultOptions()
			opts.RCDebug = rcDebug
			opts.TailCallOpt = !noTailcall
			opts.MaxSteps = maxSteps
			if maxCallDepth > 0 {
				opts.MaxCallDepth = maxCallDepth
			}

			host := hostrt.New(m, rcDebug)
			bridge := rtffi.New(sig.Default(), host)
			host.Externs = bridge

			var ts vm.TraceSink
			if trace {
				ts = vm.TraceSink{Report: func(e vm.TraceEvent) {
					colorInfo.Fprintf(os.Stderr, "%s/%s:%d %s %v -> %s\n",
						e.Func, e.Block, e.IP, e.Op, e.Operands, e.Result)
				}}
			}

			runner := vm.NewRunner(m, fn, callArgs, opts, bridge)
			runner.Trace = ts
			status := runner.Continue()

			switch status {
			case vm.StatusHalted:
				colorOK.Fprintf(os.Stdout, "halted: result=%s (steps=%d)\n", formatResult(runner.Result()), runner.Steps())
				return nil
			case vm.StatusTrapped:
				colorErr.Fprintln(os.Stderr, runner.Snapshot().String())
				return fmt.Errorf("trapped: %v", runner.Trap())
			default:
				colorWarn.Fprintf(os.Stdout, "stopped: %s (steps=%d)\n", status, runner.Steps())
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&fnName, "fn", "main", "entry function name")
	cmd.Flags().StringVar(&argsCSV, "args", "", "comma-separated scalar arguments")
	cmd.Flags().BoolVar(&rcDebug, "rc-debug", false, "validate heap-object magic on every retain/release (VIPER_RC_DEBUG)")
	cmd.Flags().BoolVar(&noTailcall, "no-tailcall", false, "disable tail-call frame reuse")
	cmd.Flags().Int64Var(&maxSteps, "max-steps", 0, "instruction retirement budget (0 = unlimited)")
	cmd.Flags().IntVar(&maxCallDepth, "max-call-depth", 0, "override the default call-depth cap (0 = default)")
	cmd.Flags().BoolVar(&trace, "trace", false, "print every instruction retirement")
	return cmd
}

// parseScalarArgs binds argsCSV's comma-separated literals to fn's
// declared entry-block parameter types. Only scalar (integer/float/bool)
// parameters are supported from the command line; Str/Array/Ptr/Func
// parameters require a harness, not this CLI.
func parseScalarArgs(fn *il.Function, argsCSV string) ([]rtval.Value, error) {
	params := fn.Entry().Params
	var fields []string
	if argsCSV != "" {
		fields = strings.Split(argsCSV, ",")
	}
	if len(fields) != len(params) {
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", fn.Name, len(params), len(fields))
	}
	out := make([]rtval.Value, len(params))
	for i, p := range params {
		text := strings.TrimSpace(fields[i])
		switch {
		case p.Type.IsFloat():
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			out[i] = rtval.Float(p.Type, f)
		case p.Type.IsInteger():
			n, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			out[i] = rtval.Int(p.Type, n)
		default:
			return nil, fmt.Errorf("argument %d: parameter type %s is not CLI-constructible", i, p.Type)
		}
	}
	return out, nil
}

func formatResult(v rtval.Value) string {
	switch {
	case v.Type.IsInteger():
		return strconv.FormatInt(v.I, 10)
	case v.Type.IsFloat():
		return strconv.FormatFloat(v.F, 'g', 15, 64)
	default:
		return fmt.Sprintf("%+v", v)
	}
}
