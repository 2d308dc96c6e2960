package main

import (
	"github.com/spf13/cobra"

	"github.com/rollang/rolloader/internal/fixture"
	"github.com/rollang/rolloader/internal/loader"
	"github.com/rollang/rolloader/internal/shell"
)

var replCommand = &cobra.Command{
	Use:   "repl <fixture.yaml>",
	Short: "Launch an interactive shell over a loaded fixture",
	Args:  cobra.ExactArgs(1),
	RunE:  runRepl,
}

func runRepl(cmd *cobra.Command, args []string) error {
	catalog, err := fixture.Load(args[0])
	if err != nil {
		return err
	}
	l := loader.New(catalog, loader.Config{PointerSize: pointerSize})
	shell.New(l).Run(cmd.OutOrStdout())
	return nil
}
