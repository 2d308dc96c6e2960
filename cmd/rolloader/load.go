package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rollang/rolloader/internal/fixture"
	"github.com/rollang/rolloader/internal/loader"
)

var loadFunction bool

var loadCommand = &cobra.Command{
	Use:   "load <fixture.yaml> <assembly> <templateId> [arg...]",
	Short: "Load one type or function and print its layout",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runLoad,
}

func init() {
	loadCommand.Flags().BoolVar(&loadFunction, "function", false, "templateId names a function, not a type")
}

// parseArgRef parses an "assembly:id" generic-argument reference into its
// parts; each argument must itself be arity 0 (a concrete, already-closed
// type), which is all a single CLI invocation can express without a
// fixture-level expression grammar.
func parseArgRef(raw string) (assembly string, id int, err error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("argument %q must be of the form assembly:templateId", raw)
	}
	id, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("argument %q: invalid template id: %w", raw, err)
	}
	return parts[0], id, nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	catalog, err := fixture.Load(args[0])
	if err != nil {
		return err
	}
	assembly := args[1]
	id, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid template id %q: %w", args[2], err)
	}

	l := loader.New(catalog, loader.Config{PointerSize: pointerSize})

	var typeArgs []*loader.RuntimeType
	for _, raw := range args[3:] {
		argAsm, argId, err := parseArgRef(raw)
		if err != nil {
			return err
		}
		t, err := l.GetType(argAsm, argId, nil)
		if err != nil {
			return fmt.Errorf("loading argument %q: %w", raw, err)
		}
		typeArgs = append(typeArgs, t)
	}

	out := cmd.OutOrStdout()
	if loadFunction {
		f, err := l.GetFunction(assembly, id, typeArgs)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			return err
		}
		printLoadedFunction(out, f)
		return nil
	}
	t, err := l.GetType(assembly, id, typeArgs)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
		return err
	}
	printLoadedType(out, t)
	return nil
}

func printLoadedType(out io.Writer, t *loader.RuntimeType) {
	fmt.Fprintf(out, "%s id=%s storage=%s size=%d alignment=%d fields=%d\n",
		green("type"), yellow(fmt.Sprint(t.Id)), t.Storage.String(), t.Size, t.Alignment, len(t.Fields))
}

func printLoadedFunction(out io.Writer, f *loader.RuntimeFunction) {
	fmt.Fprintf(out, "%s id=%s parameters=%d\n", green("function"), yellow(fmt.Sprint(f.Id)), len(f.Parameters))
}
