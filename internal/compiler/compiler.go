// Package compiler wires the pipeline: scan, parse, resolve, generate,
// optimize, and store into the unit library. A Compiler owns every table
// and pool it touches, so independent instances can run in parallel.
package compiler

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"setl2/internal/astfile"
	"setl2/internal/codegen"
	"setl2/internal/diag"
	"setl2/internal/lexer"
	"setl2/internal/library"
	"setl2/internal/names"
	"setl2/internal/optimizer"
	"setl2/internal/parser"
	"setl2/internal/quads"
	"setl2/internal/semantics"
	"setl2/internal/symtab"
	"setl2/internal/value"
)

// Exit codes returned by Compile.
const (
	ExitOK    = 0
	ExitError = 1
	ExitFatal = 2
)

// Options configures one compiler instance.
type Options struct {
	// ImplicitDecls enables declaration-on-use; on by default.
	ImplicitDecls bool
	// TabWidth is the scanner's tab expansion.
	TabWidth int
	// SpillAST routes each unit's AST through the intermediate file.
	SpillAST bool
	// LibraryPath names the output library; empty skips library output.
	LibraryPath string
}

// DefaultOptions returns the standard configuration.
func DefaultOptions() Options {
	return Options{ImplicitDecls: true, TabWidth: lexer.DefaultTabWidth}
}

// CompiledUnit is one unit's fully processed result.
type CompiledUnit struct {
	Unit *parser.Unit
	Root *symtab.Procedure
	Code *codegen.UnitCode
	// Resolved holds each procedure's combined, label-resolved stream in
	// the same order as Code.Procs.
	Resolved []*quads.Block
}

// Compiler is one compilation instance.
type Compiler struct {
	opts  Options
	nt    *names.Table
	st    *symtab.Table
	diags *diag.Collector
	pool  *parser.Pool
	msgs  []diag.Message
	last  []*CompiledUnit
}

// New creates a compiler instance.
func New(opts Options) *Compiler {
	if opts.TabWidth <= 0 {
		opts.TabWidth = lexer.DefaultTabWidth
	}
	d := diag.NewCollector()
	return &Compiler{
		opts:  opts,
		nt:    names.NewTable(),
		st:    symtab.NewTable(d),
		diags: d,
		pool:  parser.NewPool(),
	}
}

// Tokens scans source and returns the token slice.
func (c *Compiler) Tokens(source string) []lexer.Token {
	s := lexer.NewScanner(source, c.nt, c.diags)
	s.SetTabWidth(c.opts.TabWidth)
	return s.ScanTokens()
}

// CompileUnits runs the full pipeline over source and returns every
// compiled unit. Diagnostics stay in the collector.
func (c *Compiler) CompileUnits(source string) ([]*CompiledUnit, error) {
	toks := c.Tokens(source)
	p := parser.NewParser(toks, c.nt, c.diags, c.pool)
	units := p.ParseUnits()

	checker := semantics.NewChecker(c.nt, c.st, c.diags, c.pool)
	checker.ImplicitDecls = c.opts.ImplicitDecls

	var out []*CompiledUnit
	for _, u := range units {
		if c.opts.SpillAST && u.Body != nil {
			body, err := c.spillAndReload(u.Body)
			if err != nil {
				return nil, err
			}
			u.Body = body
		}
		root := checker.CheckUnit(u)
		gen := codegen.NewGenerator(c.diags)
		uc := gen.Generate(u, root)
		cu := &CompiledUnit{Unit: u, Root: root, Code: uc}
		for _, pc := range uc.Procs {
			cu.Resolved = append(cu.Resolved, optimizer.Optimize(pc.Proc, pc.Init, pc.Slot, pc.Body))
		}
		out = append(out, cu)
	}
	return out, nil
}

// spillAndReload pushes a subtree through the intermediate AST file and
// reads it back, the path used when memory pressure forces the tree out.
func (c *Compiler) spillAndReload(body *parser.Node) (*parser.Node, error) {
	store := astfile.NewStore()
	path := astfile.ScratchPath()
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "creating ast scratch file")
	}
	defer os.Remove(path)
	if err := store.Write(f, body); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "rewinding ast scratch file")
	}
	reloaded, err := store.Read(f, c.pool)
	f.Close()
	if err != nil {
		return nil, err
	}
	return reloaded, nil
}

// Compile compiles source and returns the exit code: ExitOK when no error
// diagnostics were collected. When a library path is configured, every
// unit lands in it.
func (c *Compiler) Compile(filename, source string) (int, error) {
	errorsBefore := c.diags.FileErrors()
	units, err := c.CompileUnits(source)
	if err != nil {
		return ExitFatal, err
	}
	c.last = units
	c.msgs = append(c.msgs, c.diags.Drain()...)

	if c.diags.FileErrors() > errorsBefore {
		return ExitError, nil
	}
	if c.opts.LibraryPath != "" {
		if err := c.writeLibrary(units); err != nil {
			return ExitFatal, err
		}
	}
	return ExitOK, nil
}

func (c *Compiler) writeLibrary(units []*CompiledUnit) error {
	lib, err := library.Create(c.opts.LibraryPath)
	if err != nil {
		return err
	}
	defer lib.Close()
	for _, cu := range units {
		var body []byte
		for i, blk := range cu.Resolved {
			body = append(body, []byte(fmt.Sprintf("; procedure %s\n", cu.Code.Procs[i].Proc.Name.Text))...)
			body = append(body, []byte(blk.Dump())...)
		}
		u := library.Unit{
			Name: cu.Unit.Name.Text,
			Kind: unitKindName(cu.Unit),
			Body: body,
		}
		if err := lib.PutUnit(u); err != nil {
			return err
		}
	}
	return nil
}

func unitKindName(u *parser.Unit) string {
	kind := u.Kind.String()
	if u.IsBody && u.Kind != symtab.KindProgram {
		kind += "_body"
	}
	return kind
}

// CompileFragment compiles source and returns 0 on success, -1 when any
// error was collected.
func (c *Compiler) CompileFragment(source string) int {
	code, err := c.Compile("<fragment>", source)
	if err != nil || code != ExitOK {
		return -1
	}
	return 0
}

// NumErrors returns how many error-severity diagnostics the instance has
// collected across calls.
func (c *Compiler) NumErrors() int {
	return countErrors(c.msgs)
}

func countErrors(msgs []diag.Message) int {
	count := 0
	for _, m := range msgs {
		if m.Severity == diag.Error {
			count++
		}
	}
	return count
}

// ErrString renders the index'th collected diagnostic, empty when out of
// range.
func (c *Compiler) ErrString(index int) string {
	if index < 0 || index >= len(c.msgs) {
		return ""
	}
	m := c.msgs[index]
	return fmt.Sprintf("%s %s: %s", m.Pos, m.Severity, m.Text)
}

// Messages returns every collected diagnostic.
func (c *Compiler) Messages() []diag.Message {
	return c.msgs
}

// LastUnits returns the units produced by the most recent Compile call.
func (c *Compiler) LastUnits() []*CompiledUnit {
	return c.last
}

// Parse parses source and returns the AST as a tuple tree for native
// callers, or Omega when parsing failed.
func (c *Compiler) Parse(source string) value.Specifier {
	toks := c.Tokens(source)
	p := parser.NewParser(toks, c.nt, c.diags, c.pool)
	units := p.ParseUnits()
	drained := c.diags.Drain()
	c.msgs = append(c.msgs, drained...)
	if countErrors(drained) > 0 || len(units) == 0 {
		return value.Omega{}
	}
	result := value.NewTuple()
	for i, u := range units {
		ut := unitTuple(u)
		result = result.Set(int32(i), ut)
		value.Unmark(ut)
	}
	return result
}

// ParseExpr parses a bare expression by wrapping it in a dummy program.
func (c *Compiler) ParseExpr(source string) value.Specifier {
	wrapped := "program dummy; x := " + source + "; end dummy;"
	toks := c.Tokens(wrapped)
	p := parser.NewParser(toks, c.nt, c.diags, c.pool)
	units := p.ParseUnits()
	drained := c.diags.Drain()
	c.msgs = append(c.msgs, drained...)
	if countErrors(drained) > 0 || len(units) == 0 || units[0].Body == nil {
		return value.Omega{}
	}
	assign := units[0].Body.Child
	if assign == nil || assign.Child == nil || assign.Child.Next == nil {
		return value.Omega{}
	}
	return nodeTuple(assign.Child.Next)
}

// unitTuple encodes a unit header and body as a tuple tree.
func unitTuple(u *parser.Unit) *value.Tuple {
	t := value.NewTuple()
	kind := value.NewString(unitKindName(u))
	t = t.Set(0, kind)
	value.Unmark(kind)
	name := value.NewString(u.Name.Text)
	t = t.Set(1, name)
	value.Unmark(name)
	idx := int32(2)
	if u.Body != nil {
		u.Body.Children(func(stmt *parser.Node) bool {
			st := nodeTuple(stmt)
			t = t.Set(idx, st)
			value.Unmark(st)
			idx++
			return true
		})
	}
	return t
}

// nodeTuple encodes one AST node as [tag, attribute?, child tuples...].
func nodeTuple(n *parser.Node) *value.Tuple {
	t := value.NewTuple()
	tag := value.NewString(n.Type.String())
	t = t.Set(0, tag)
	value.Unmark(tag)
	idx := int32(1)
	if n.Name != nil {
		nm := value.NewString(n.Name.Text)
		t = t.Set(idx, nm)
		value.Unmark(nm)
		idx++
	}
	if n.Lit != nil {
		t = t.Set(idx, n.Lit)
		idx++
	}
	n.Children(func(ch *parser.Node) bool {
		ct := nodeTuple(ch)
		t = t.Set(idx, ct)
		value.Unmark(ct)
		idx++
		return true
	})
	return t
}
