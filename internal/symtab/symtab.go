// Package symtab implements the symbol and procedure tables. Symbols are
// threaded two ways: onto their owning procedure's list, and onto a
// per-name visibility stack that lookup walks newest-first.
package symtab

import (
	"setl2/internal/diag"
	"setl2/internal/names"
	"setl2/internal/value"
)

// Kind classifies a symbol.
type Kind int

const (
	KindID Kind = iota
	KindLabel
	KindSelector
	KindProcedure
	KindMethod
	KindSlot
	KindPackage
	KindClass
	KindProcess
	KindProgram
	KindUse
	KindInherit
	KindInteger
	KindReal
	KindString
)

var kindNames = [...]string{
	"id", "label", "selector", "procedure", "method", "slot", "package",
	"class", "process", "program", "use", "inherit", "integer", "real",
	"string",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Flags carries the symbol attribute bits.
type Flags uint32

const (
	HasLValue Flags = 1 << iota
	HasRValue
	ReadParam
	WriteParam
	IsTemp
	NeedsStored
	IsAlloced
	Initialized
	Hidden
	Declared
	Public
	InSpec
	VisibleSlot
	Global
)

// Has reports whether every bit in f is set.
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}

// Symbol is one declaration.
type Symbol struct {
	Name     *names.Name
	Kind     Kind
	Owner    *Procedure
	Unit     int
	Offset   int32
	SlotNum  int
	LabelNum int
	Pos      diag.Pos
	Flags    Flags

	// Value holds the elaborated constant for literal symbols.
	Value value.Specifier

	// Proc links procedure, method, class and process symbols to their
	// procedure record.
	Proc *Procedure

	visNext   *Symbol
	ownerNext *Symbol
	attached  bool
}

// Procedure is one unit-tree node: a program, package, class, process,
// procedure or method, owning a symbol list and code segment counts.
type Procedure struct {
	Name   *names.Name
	Kind   Kind
	Parent *Procedure
	Child  *Procedure
	Next   *Procedure
	Pos    diag.Pos

	symHead *Symbol
	symTail *Symbol

	Unit        int
	FormalCount int
	VarArgs     bool
	LabelCount  int

	// Quadruple counts per segment, filled in by code generation.
	InitCount int
	SlotCount int
	BodyCount int
}

// AddChild links child under p at the end of the sibling chain.
func (p *Procedure) AddChild(child *Procedure) {
	child.Parent = p
	if p.Child == nil {
		p.Child = child
		return
	}
	last := p.Child
	for last.Next != nil {
		last = last.Next
	}
	last.Next = child
}

// Symbols walks the procedure's symbol thread in declaration order.
func (p *Procedure) Symbols(fn func(*Symbol) bool) {
	for s := p.symHead; s != nil; s = s.ownerNext {
		if !fn(s) {
			return
		}
	}
}

// NextLabel hands out a fresh label number for the procedure.
func (p *Procedure) NextLabel() int {
	n := p.LabelCount
	p.LabelCount++
	return n
}

// Table is the symbol table for one compiler instance.
type Table struct {
	visible map[*names.Name]*Symbol
	diags   *diag.Collector
	units   int
}

// NewTable creates an empty symbol table reporting into diags.
func NewTable(diags *diag.Collector) *Table {
	return &Table{visible: map[*names.Name]*Symbol{}, diags: diags}
}

// NewProcedure allocates a procedure record with a fresh unit number.
func (t *Table) NewProcedure(name *names.Name, kind Kind, pos diag.Pos) *Procedure {
	t.units++
	return &Procedure{Name: name, Kind: kind, Pos: pos, Unit: t.units}
}

// Declare installs a new symbol for name in proc. An identically-named
// symbol already owned by proc is a duplicate declaration: it is reported
// and nil returned.
func (t *Table) Declare(name *names.Name, proc *Procedure, pos diag.Pos) *Symbol {
	for s := t.visible[name]; s != nil; s = s.visNext {
		if s.Owner == proc {
			t.diags.Errorf(pos, diag.MsgDupDeclaration, name.Text)
			return nil
		}
	}
	s := &Symbol{
		Name:  name,
		Kind:  KindID,
		Owner: proc,
		Pos:   pos,
		Flags: Declared,
	}
	t.attach(s)
	if proc.symTail == nil {
		proc.symHead = s
	} else {
		proc.symTail.ownerNext = s
	}
	proc.symTail = s
	return s
}

// attach pushes s onto its name's visibility stack.
func (t *Table) attach(s *Symbol) {
	if s.attached {
		return
	}
	s.visNext = t.visible[s.Name]
	t.visible[s.Name] = s
	s.attached = true
}

// LookupVisible returns the innermost visible, non-hidden symbol bound to
// name, or nil.
func (t *Table) LookupVisible(name *names.Name) *Symbol {
	for s := t.visible[name]; s != nil; s = s.visNext {
		if !s.Flags.Has(Hidden) {
			return s
		}
	}
	return nil
}

// Detach removes every symbol owned by proc from its name's visibility
// list in one pass. The symbols stay on the procedure's own thread.
func (t *Table) Detach(proc *Procedure) {
	proc.Symbols(func(s *Symbol) bool {
		t.detachOne(s)
		return true
	})
}

func (t *Table) detachOne(s *Symbol) {
	if !s.attached {
		return
	}
	head := t.visible[s.Name]
	if head == s {
		t.visible[s.Name] = s.visNext
	} else {
		for prev := head; prev != nil; prev = prev.visNext {
			if prev.visNext == s {
				prev.visNext = s.visNext
				break
			}
		}
	}
	s.visNext = nil
	s.attached = false
}

// MergeScope moves every symbol of from onto to, reattaching them there.
// Iterator scopes use this when they close: bound variables survive into
// the enclosing procedure.
func (t *Table) MergeScope(from, to *Procedure) {
	from.Symbols(func(s *Symbol) bool {
		t.detachOne(s)
		s.Owner = to
		if to.symTail == nil {
			to.symHead = s
		} else {
			to.symTail.ownerNext = s
		}
		to.symTail = s
		t.attach(s)
		return true
	})
	from.symHead = nil
	from.symTail = nil
}

// DropScope detaches from's symbols without merging them anywhere.
func (t *Table) DropScope(from *Procedure) {
	t.Detach(from)
}
