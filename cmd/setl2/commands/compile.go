package commands

import (
	"fmt"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"setl2/internal/compiler"
	"setl2/internal/diag"
	"setl2/internal/library"
)

var compileCmd = &cobra.Command{
	Use:   "compile [files...]",
	Short: "Compile SETL2 source files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCompile,
}

type fileResult struct {
	name   string
	source string
	code   int
	msgs   []diag.Message
	quads  int
}

func instanceOptions() compiler.Options {
	opts := compiler.DefaultOptions()
	opts.ImplicitDecls = flagImplicit
	opts.TabWidth = flagTabWidth
	opts.SpillAST = flagSpillAST
	return opts
}

// runCompile compiles each file in its own compiler instance; instances
// share nothing, so the fan-out is safe.
func runCompile(cmd *cobra.Command, args []string) error {
	libPath := flagLibrary
	if libPath == "" && len(args) == 1 {
		libPath = library.DefaultPath()
	}

	var mu sync.Mutex
	results := make([]*fileResult, len(args))
	var g errgroup.Group
	for i, name := range args {
		g.Go(func() error {
			data, err := os.ReadFile(name)
			if err != nil {
				return err
			}
			opts := instanceOptions()
			if len(args) == 1 {
				opts.LibraryPath = libPath
			}
			inst := compiler.New(opts)
			code, err := inst.Compile(name, string(data))
			if err != nil {
				return err
			}
			quadCount := 0
			for _, u := range inst.LastUnits() {
				for _, blk := range u.Resolved {
					quadCount += blk.Len()
				}
			}
			mu.Lock()
			results[i] = &fileResult{
				name:   name,
				source: string(data),
				code:   code,
				msgs:   inst.Messages(),
				quads:  quadCount,
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	totalQuads := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		printer := diag.NewPrinter(os.Stderr, r.source)
		printer.PrintAll(r.msgs)
		if r.code != compiler.ExitOK {
			failed++
		}
		totalQuads += r.quads
	}
	fmt.Fprintf(os.Stderr, "setl2: %d file(s), %s quadruple(s), %d failed\n",
		len(args), humanize.Comma(int64(totalQuads)), failed)
	if libPath != "" && failed == 0 && len(args) == 1 {
		if info, err := os.Stat(libPath); err == nil {
			fmt.Fprintf(os.Stderr, "setl2: library %s (%s)\n", libPath, humanize.IBytes(uint64(info.Size())))
		}
	}
	if failed > 0 {
		exitCode = compiler.ExitError
	}
	return nil
}
