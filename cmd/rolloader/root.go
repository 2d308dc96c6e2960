package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

var pointerSize int

var rootCommand = &cobra.Command{
	Use:   "rolloader",
	Short: "A generics-aware intermediate-language runtime loader",
	Long:  "rolloader instantiates generic type and function templates from an assembly fixture, laying out fields, resolving references, and checking constraints the way the runtime loader it models does.",
}

func init() {
	rootCommand.PersistentFlags().IntVar(&pointerSize, "pointer-size", 8, "platform pointer width in bytes")
	rootCommand.AddCommand(loadCommand)
	rootCommand.AddCommand(checkCommand)
	rootCommand.AddCommand(replCommand)
}
