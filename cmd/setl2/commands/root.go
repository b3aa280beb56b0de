// Package commands implements the setl2 command line driver.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	flagTabWidth int
	flagImplicit bool
	flagSpillAST bool
	flagLibrary  string
)

var rootCmd = &cobra.Command{
	Use:           "setl2",
	Short:         "SETL2 compiler front end",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagTabWidth, "tab-width", 8, "tab expansion width for column counting")
	rootCmd.PersistentFlags().BoolVar(&flagImplicit, "implicit-decls", true, "declare identifiers on first use")
	rootCmd.PersistentFlags().BoolVar(&flagSpillAST, "spill-ast", false, "route unit ASTs through the intermediate file")
	rootCmd.PersistentFlags().StringVar(&flagLibrary, "library", "", "output library path (default from SETL2_LIBRARY)")
	rootCmd.AddCommand(compileCmd, tokensCmd, astCmd)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("setl2:", err)
		return 2
	}
	return exitCode
}

// exitCode carries the compile result out of command handlers, since a
// failed compile is not a usage error.
var exitCode int
