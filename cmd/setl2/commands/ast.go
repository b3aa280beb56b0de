package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"setl2/internal/compiler"
	"setl2/internal/diag"
	"setl2/internal/parser"
	"setl2/internal/value"
)

var astCmd = &cobra.Command{
	Use:   "ast <file>",
	Short: "Dump the post-resolution AST and quadruples of a source file",
	Args:  cobra.ExactArgs(1),
	RunE:  runAst,
}

func runAst(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	inst := compiler.New(instanceOptions())
	code, err := inst.Compile(args[0], string(data))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, cu := range inst.LastUnits() {
		fmt.Fprintf(out, "unit %s (%s)\n", cu.Unit.Name.Text, cu.Unit.Kind)
		if cu.Unit.Body != nil {
			dumpNode(out, cu.Unit.Body, 1)
		}
		for i, blk := range cu.Resolved {
			fmt.Fprintf(out, "procedure %s:\n%s", cu.Code.Procs[i].Proc.Name.Text, blk.Dump())
		}
	}
	printer := diag.NewPrinter(os.Stderr, string(data))
	printer.PrintAll(inst.Messages())
	if code != compiler.ExitOK {
		exitCode = code
	}
	return nil
}

func dumpNode(out io.Writer, n *parser.Node, depth int) {
	for ; n != nil; n = n.Next {
		line := strings.Repeat("  ", depth) + n.Type.String()
		if n.Name != nil {
			line += " " + n.Name.Text
		}
		if n.Sym != nil && n.Sym.Name != nil {
			line += " sym:" + n.Sym.Name.Text
		}
		if n.Lit != nil {
			line += " " + value.String(n.Lit)
		}
		fmt.Fprintln(out, line)
		if n.Child != nil {
			dumpNode(out, n.Child, depth+1)
		}
	}
}
