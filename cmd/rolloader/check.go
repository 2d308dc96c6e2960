package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rollang/rolloader/internal/fixture"
	"github.com/rollang/rolloader/internal/loader"
)

var checkCommand = &cobra.Command{
	Use:   "check <fixture.yaml>",
	Short: "Load every exported type and function of every assembly in a fixture",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	catalog, err := fixture.Load(args[0])
	if err != nil {
		return err
	}

	l := loader.New(catalog, loader.Config{PointerSize: pointerSize})
	out := cmd.OutOrStdout()

	failures := 0
	for _, name := range catalog.Names() {
		asmb := catalog.Find(name)
		for _, exp := range asmb.ExportTypes {
			if _, err := l.FindExportType(name, exp.ExportName); err != nil {
				fmt.Fprintf(out, "%s %s.%s: %v\n", red("FAIL"), name, exp.ExportName, err)
				failures++
				continue
			}
			fmt.Fprintf(out, "%s %s.%s\n", green("ok"), name, exp.ExportName)
		}
		for _, exp := range asmb.ExportFunctions {
			if _, err := l.FindExportFunction(name, exp.ExportName); err != nil {
				fmt.Fprintf(out, "%s %s.%s(): %v\n", red("FAIL"), name, exp.ExportName, err)
				failures++
				continue
			}
			fmt.Fprintf(out, "%s %s.%s()\n", green("ok"), name, exp.ExportName)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d export(s) failed to load", failures)
	}
	fmt.Fprintf(out, "%s\n", bold(yellow("all exports loaded cleanly")))
	return nil
}
