package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"setl2/internal/compiler"
	"setl2/internal/diag"
	"setl2/internal/lexer"
	"setl2/internal/value"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens <file>",
	Short: "Dump the token stream of a source file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokens,
}

func runTokens(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	inst := compiler.New(instanceOptions())
	toks := inst.Tokens(string(data))
	for _, tok := range toks {
		if tok.Type == lexer.TokenEOF {
			break
		}
		line := fmt.Sprintf("%s %q", tok.Pos, tok.Lexeme)
		if tok.Value != nil {
			line += " = " + value.String(tok.Value)
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	printer := diag.NewPrinter(os.Stderr, string(data))
	printer.PrintAll(inst.Messages())
	return nil
}
