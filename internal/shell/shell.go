// Package shell is an interactive read-eval-print loop over a
// *loader.Loader: a host adapter and demo tool, not part of the
// instantiation core. It is grounded on internal/repl.REPL's use of
// github.com/peterh/liner for line editing/history and
// github.com/fatih/color for colorized output, with the REPL's own
// expression grammar replaced by a small set of loader commands.
package shell

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/rollang/rolloader/internal/loader"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

var commands = []string{":type", ":func", ":byid", ":help", ":quit"}

// Shell is one interactive session over a Loader.
type Shell struct {
	loader *loader.Loader
}

// New builds a Shell over an already-populated Loader.
func New(l *loader.Loader) *Shell {
	return &Shell{loader: l}
}

// Run drives the prompt loop until EOF or :quit.
func (s *Shell) Run(out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(false)

	historyFile := filepath.Join(os.TempDir(), ".rolloader_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	line.SetCompleter(func(l string) (c []string) {
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, l) {
				c = append(c, cmd)
			}
		}
		return
	})

	fmt.Fprintf(out, "%s\n", bold("rolloader shell"))
	fmt.Fprintln(out, dim("Type :help for commands, :quit to exit"))
	fmt.Fprintln(out)

	for {
		input, err := line.Prompt("rolloader> ")
		if err == io.EOF {
			fmt.Fprintln(out, green("Goodbye!"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == ":quit" || input == ":q" || input == ":exit" {
			fmt.Fprintln(out, green("Goodbye!"))
			break
		}
		s.handle(input, out)
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

func (s *Shell) handle(input string, out io.Writer) {
	fields := strings.Fields(input)
	switch fields[0] {
	case ":help":
		s.printHelp(out)
	case ":type":
		s.cmdType(fields[1:], out)
	case ":func":
		s.cmdFunc(fields[1:], out)
	case ":byid":
		s.cmdById(fields[1:], out)
	default:
		fmt.Fprintf(out, "%s: unknown command %q (:help for a list)\n", red("Error"), fields[0])
	}
}

func (s *Shell) printHelp(out io.Writer) {
	fmt.Fprintln(out, bold("Commands:"))
	fmt.Fprintln(out, "  :type <assembly> <templateId> [argTypeId...]  load a type, print its layout")
	fmt.Fprintln(out, "  :func <assembly> <templateId> [argTypeId...]  load a function, print its signature")
	fmt.Fprintln(out, "  :byid <id>                                    print a previously committed type by id")
	fmt.Fprintln(out, "  :quit                                         exit")
}

// resolveArgs turns a list of already-committed type ids into
// *loader.RuntimeType pointers — the shell's substitute for a full
// expression grammar: generic arguments are named by the id the loader
// already printed for them.
func (s *Shell) resolveArgs(raw []string, out io.Writer) ([]*loader.RuntimeType, bool) {
	args := make([]*loader.RuntimeType, 0, len(raw))
	for _, a := range raw {
		id, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			fmt.Fprintf(out, "%s: %q is not a type id\n", red("Error"), a)
			return nil, false
		}
		t := s.loader.GetTypeById(uint32(id))
		if t == nil {
			fmt.Fprintf(out, "%s: no committed type with id %d\n", red("Error"), id)
			return nil, false
		}
		args = append(args, t)
	}
	return args, true
}

func (s *Shell) cmdType(args []string, out io.Writer) {
	if len(args) < 2 {
		fmt.Fprintf(out, "%s: usage: :type <assembly> <templateId> [argTypeId...]\n", red("Error"))
		return
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(out, "%s: invalid template id %q\n", red("Error"), args[1])
		return
	}
	typeArgs, ok := s.resolveArgs(args[2:], out)
	if !ok {
		return
	}
	t, err := s.loader.GetType(args[0], id, typeArgs)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
		return
	}
	printType(t, out)
}

func (s *Shell) cmdFunc(args []string, out io.Writer) {
	if len(args) < 2 {
		fmt.Fprintf(out, "%s: usage: :func <assembly> <templateId> [argTypeId...]\n", red("Error"))
		return
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(out, "%s: invalid template id %q\n", red("Error"), args[1])
		return
	}
	typeArgs, ok := s.resolveArgs(args[2:], out)
	if !ok {
		return
	}
	f, err := s.loader.GetFunction(args[0], id, typeArgs)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
		return
	}
	printFunction(f, out)
}

func (s *Shell) cmdById(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintf(out, "%s: usage: :byid <id>\n", red("Error"))
		return
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(out, "%s: invalid id %q\n", red("Error"), args[0])
		return
	}
	t := s.loader.GetTypeById(uint32(id))
	if t == nil {
		fmt.Fprintf(out, "%s: no committed type with id %d\n", red("Error"), id)
		return
	}
	printType(t, out)
}

func printType(t *loader.RuntimeType, out io.Writer) {
	fmt.Fprintf(out, "%s id=%s storage=%s\n", green("type"), cyan(fmt.Sprint(t.Id)), yellow(t.Storage.String()))
	fmt.Fprintf(out, "  size=%d alignment=%d\n", t.Size, t.Alignment)
	for i, f := range t.Fields {
		fmt.Fprintf(out, "  field[%d] offset=%d length=%d type=%d\n", i, f.Offset, f.Length, f.Type.Id)
	}
	if t.BaseType != nil {
		fmt.Fprintf(out, "  base=%d\n", t.BaseType.Id)
	}
	for _, iface := range t.Interfaces {
		fmt.Fprintf(out, "  interface=%d\n", iface.Type.Id)
	}
}

func printFunction(f *loader.RuntimeFunction, out io.Writer) {
	fmt.Fprintf(out, "%s id=%s\n", green("function"), cyan(fmt.Sprint(f.Id)))
	if f.ReturnValue != nil {
		fmt.Fprintf(out, "  return=%d\n", f.ReturnValue.Id)
	} else {
		fmt.Fprintf(out, "  return=void\n")
	}
	for i, p := range f.Parameters {
		fmt.Fprintf(out, "  param[%d]=%d\n", i, p.Id)
	}
}
