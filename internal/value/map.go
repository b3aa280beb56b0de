package value

import "fmt"

// Maps share the set trie shape. A cell holds one domain element; when a
// second pair arrives for the same domain, the range slot is promoted to a
// nested value-set and the cell turns multi-valued. Cardinality counts
// logical pairs, cell count counts distinct domain elements.

type mapHeader struct {
	useCount    int32
	hash        int32
	cardinality int32 // root only
	cellCount   int32 // root only
	height      int   // root only
	parent      *mapHeader
	childIndex  int
	child       [HashSize]mapChild
}

type mapChild struct {
	header *mapHeader
	cell   *mapCell
}

type mapCell struct {
	next       *mapCell
	hash       int32 // hash of the domain element
	domain     Specifier
	rng        Specifier
	isMultiVal bool
}

// Map is a map specifier.
type Map struct {
	root *mapHeader
}

// NewMap creates an empty map with one owner.
func NewMap() *Map {
	return &Map{root: &mapHeader{useCount: 1}}
}

// Cardinality returns the number of logical pairs.
func (m *Map) Cardinality() int32 {
	return m.root.cardinality
}

// CellCount returns the number of distinct domain elements.
func (m *Map) CellCount() int32 {
	return m.root.cellCount
}

// Height returns the header-tree height.
func (m *Map) Height() int {
	return m.root.height
}

// pairHash folds one (domain, range) pair into the map hash. The rotation
// keeps it asymmetric so {[1,2]} and {[2,1]} hash apart.
func pairHash(dh, rh int32) int32 {
	return dh ^ int32(uint32(rh)<<16|uint32(rh)>>16)
}

func (m *Map) private() *Map {
	if m.root.useCount == 1 {
		return m
	}
	m.root.useCount--
	root := &mapHeader{
		useCount:    1,
		hash:        m.root.hash,
		cardinality: m.root.cardinality,
		cellCount:   m.root.cellCount,
		height:      m.root.height,
	}
	copyMapChildren(m.root, root)
	return &Map{root: root}
}

func copyMapChildren(src, dst *mapHeader) {
	for i := 0; i < HashSize; i++ {
		if ch := src.child[i].header; ch != nil {
			ch.useCount++
			dst.child[i].header = ch
		} else if cl := src.child[i].cell; cl != nil {
			dst.child[i].cell = copyMapCells(cl)
		}
	}
}

func copyMapCells(c *mapCell) *mapCell {
	var head, tail *mapCell
	for ; c != nil; c = c.next {
		nc := &mapCell{
			hash:       c.hash,
			domain:     Mark(c.domain),
			rng:        Mark(c.rng),
			isMultiVal: c.isMultiVal,
		}
		if tail == nil {
			head = nc
		} else {
			tail.next = nc
		}
		tail = nc
	}
	return head
}

func privateMapChild(h *mapHeader, idx int) *mapHeader {
	ch := h.child[idx].header
	if ch == nil {
		ch = &mapHeader{useCount: 1, parent: h, childIndex: idx}
		h.child[idx].header = ch
		return ch
	}
	if ch.useCount == 1 {
		ch.parent = h
		ch.childIndex = idx
		return ch
	}
	ch.useCount--
	clone := &mapHeader{
		useCount:   1,
		hash:       ch.hash,
		parent:     h,
		childIndex: idx,
	}
	copyMapChildren(ch, clone)
	h.child[idx].header = clone
	return clone
}

// findCell walks to the clash list for domain hash hc without copying.
func (m *Map) findCell(hc int32) *mapCell {
	h := m.root
	for depth := 0; depth < m.root.height; depth++ {
		h = h.child[slotAt(hc, depth)].header
		if h == nil {
			return nil
		}
	}
	return h.child[slotAt(hc, m.root.height)].cell
}

// Get returns the range for domain d: the single range value, the nested
// value-set when the cell is multi-valued, or Omega when d is absent.
func (m *Map) Get(d Specifier) Specifier {
	hc := Hash(d)
	for c := m.findCell(hc); c != nil; c = c.next {
		if uint32(c.hash) > uint32(hc) {
			break
		}
		if c.hash == hc && Equal(c.domain, d) {
			return c.rng
		}
	}
	return Omega{}
}

// Has reports whether domain d has a cell, even one whose range is Omega.
func (m *Map) Has(d Specifier) bool {
	hc := Hash(d)
	for c := m.findCell(hc); c != nil; c = c.next {
		if uint32(c.hash) > uint32(hc) {
			break
		}
		if c.hash == hc && Equal(c.domain, d) {
			return true
		}
	}
	return false
}

// Put adds the pair (d, r), promoting the cell to multi-valued when d is
// already bound to a different range. Returns the map holding the pair.
func (m *Map) Put(d, r Specifier) *Map {
	hc := Hash(d)
	m = m.private()
	root := m.root
	h := root
	for depth := 0; depth < root.height; depth++ {
		h = privateMapChild(h, slotAt(hc, depth))
	}
	idx := slotAt(hc, root.height)
	var prev *mapCell
	for c := h.child[idx].cell; c != nil && uint32(c.hash) <= uint32(hc); c = c.next {
		if c.hash == hc && Equal(c.domain, d) {
			if c.isMultiVal {
				vs := c.rng.(*Set)
				if vs.Has(r) {
					return m
				}
				c.rng = vs.Insert(r)
			} else {
				if Equal(c.rng, r) {
					return m
				}
				vs := NewSet().Insert(c.rng)
				Unmark(c.rng)
				c.rng = vs.Insert(r)
				c.isMultiVal = true
			}
			root.cardinality++
			ph := pairHash(hc, Hash(r))
			for hh := h; hh != nil; hh = hh.parent {
				hh.hash ^= ph
			}
			return m
		}
		prev = c
	}
	nc := &mapCell{hash: hc, domain: Mark(d), rng: Mark(r)}
	if prev == nil {
		nc.next = h.child[idx].cell
		h.child[idx].cell = nc
	} else {
		nc.next = prev.next
		prev.next = nc
	}
	root.cardinality++
	root.cellCount++
	ph := pairHash(hc, Hash(r))
	for hh := h; hh != nil; hh = hh.parent {
		hh.hash ^= ph
	}
	if root.cellCount > expansionTrigger(root.height) {
		expandMap(root)
	}
	return m
}

// Less removes the whole cell for domain d, all of its pairs at once.
func (m *Map) Less(d Specifier) *Map {
	hc := Hash(d)
	m = m.private()
	root := m.root
	h := root
	for depth := 0; depth < root.height; depth++ {
		h = privateMapChild(h, slotAt(hc, depth))
	}
	idx := slotAt(hc, root.height)
	var prev *mapCell
	for c := h.child[idx].cell; c != nil && uint32(c.hash) <= uint32(hc); c = c.next {
		if c.hash == hc && Equal(c.domain, d) {
			var removed int32
			var hashOut int32
			if c.isMultiVal {
				vs := c.rng.(*Set)
				it := vs.Iterate()
				for {
					el, ok := it.Next()
					if !ok {
						break
					}
					hashOut ^= pairHash(hc, Hash(el))
					removed++
				}
			} else {
				hashOut = pairHash(hc, Hash(c.rng))
				removed = 1
			}
			if prev == nil {
				h.child[idx].cell = c.next
			} else {
				prev.next = c.next
			}
			Unmark(c.domain)
			Unmark(c.rng)
			root.cardinality -= removed
			root.cellCount--
			for hh := h; hh != nil; hh = hh.parent {
				hh.hash ^= hashOut
			}
			for root.height > 0 && root.cellCount < contractionTrigger(root.height) {
				contractMap(root)
			}
			return m
		}
		prev = c
	}
	return m
}

// LessFrom removes the single pair (d, r). A multi-valued cell that drops
// to one range value is demoted back to single-valued; a cell that loses
// its last pair is removed.
func (m *Map) LessFrom(d, r Specifier) *Map {
	hc := Hash(d)
	m = m.private()
	root := m.root
	h := root
	for depth := 0; depth < root.height; depth++ {
		h = privateMapChild(h, slotAt(hc, depth))
	}
	idx := slotAt(hc, root.height)
	var prev *mapCell
	for c := h.child[idx].cell; c != nil && uint32(c.hash) <= uint32(hc); c = c.next {
		if c.hash == hc && Equal(c.domain, d) {
			if c.isMultiVal {
				vs := c.rng.(*Set)
				if !vs.Has(r) {
					return m
				}
				vs = vs.Delete(r)
				c.rng = vs
				root.cardinality--
				ph := pairHash(hc, Hash(r))
				for hh := h; hh != nil; hh = hh.parent {
					hh.hash ^= ph
				}
				if vs.Cardinality() == 1 {
					it := vs.Iterate()
					only, _ := it.Next()
					c.rng = Mark(only)
					c.isMultiVal = false
					Unmark(vs)
				}
				return m
			}
			if !Equal(c.rng, r) {
				return m
			}
			if prev == nil {
				h.child[idx].cell = c.next
			} else {
				prev.next = c.next
			}
			Unmark(c.domain)
			Unmark(c.rng)
			root.cardinality--
			root.cellCount--
			ph := pairHash(hc, Hash(r))
			for hh := h; hh != nil; hh = hh.parent {
				hh.hash ^= ph
			}
			for root.height > 0 && root.cellCount < contractionTrigger(root.height) {
				contractMap(root)
			}
			return m
		}
		prev = c
	}
	return m
}

func expandMap(r *mapHeader) {
	oldHeight := r.height
	r.height = oldHeight + 1
	splitMapLayer(r, 0, oldHeight)
}

func splitMapLayer(h *mapHeader, depth, oldHeight int) {
	if depth < oldHeight {
		for i := 0; i < HashSize; i++ {
			if h.child[i].header != nil {
				splitMapLayer(privateMapChild(h, i), depth+1, oldHeight)
			}
		}
		return
	}
	for i := 0; i < HashSize; i++ {
		cl := h.child[i].cell
		if cl == nil {
			continue
		}
		nh := &mapHeader{useCount: 1, parent: h, childIndex: i}
		for c := cl; c != nil; {
			next := c.next
			c.next = nil
			slot := slotAt(c.hash, oldHeight+1)
			nh.child[slot].cell = appendMapCell(nh.child[slot].cell, c)
			nh.hash ^= cellPairHash(c)
			c = next
		}
		h.child[i].cell = nil
		h.child[i].header = nh
	}
}

// cellPairHash is the XOR of every logical pair a cell contributes.
func cellPairHash(c *mapCell) int32 {
	if !c.isMultiVal {
		return pairHash(c.hash, Hash(c.rng))
	}
	var out int32
	it := c.rng.(*Set).Iterate()
	for {
		el, ok := it.Next()
		if !ok {
			return out
		}
		out ^= pairHash(c.hash, Hash(el))
	}
}

func appendMapCell(list, c *mapCell) *mapCell {
	if list == nil {
		return c
	}
	tail := list
	for tail.next != nil {
		tail = tail.next
	}
	tail.next = c
	return list
}

func contractMap(r *mapHeader) {
	mergeMapLayer(r, 0, r.height-1)
	r.height--
}

func mergeMapLayer(h *mapHeader, depth, parentDepth int) {
	if depth < parentDepth {
		for i := 0; i < HashSize; i++ {
			if h.child[i].header != nil {
				mergeMapLayer(privateMapChild(h, i), depth+1, parentDepth)
			}
		}
		return
	}
	for i := 0; i < HashSize; i++ {
		lh := h.child[i].header
		if lh == nil {
			continue
		}
		var lists [HashSize]*mapCell
		if lh.useCount == 1 {
			for j := 0; j < HashSize; j++ {
				lists[j] = lh.child[j].cell
			}
		} else {
			lh.useCount--
			for j := 0; j < HashSize; j++ {
				lists[j] = copyMapCells(lh.child[j].cell)
			}
		}
		h.child[i].header = nil
		h.child[i].cell = mergeMapCells(lists)
	}
}

func mergeMapCells(lists [HashSize]*mapCell) *mapCell {
	var head, tail *mapCell
	for {
		best := -1
		for j := 0; j < HashSize; j++ {
			if lists[j] == nil {
				continue
			}
			if best < 0 || uint32(lists[j].hash) < uint32(lists[best].hash) {
				best = j
			}
		}
		if best < 0 {
			return head
		}
		c := lists[best]
		lists[best] = c.next
		c.next = nil
		if tail == nil {
			head = c
		} else {
			tail.next = c
		}
		tail = c
	}
}

func releaseMapHeader(root *mapHeader, stack []Specifier) []Specifier {
	headers := []*mapHeader{root}
	for len(headers) > 0 {
		h := headers[len(headers)-1]
		headers = headers[:len(headers)-1]
		for i := 0; i < HashSize; i++ {
			if ch := h.child[i].header; ch != nil {
				ch.useCount--
				if ch.useCount == 0 {
					headers = append(headers, ch)
				}
			} else {
				for c := h.child[i].cell; c != nil; c = c.next {
					stack = append(stack, c.domain, c.rng)
				}
			}
			h.child[i] = mapChild{}
		}
	}
	return stack
}

func mapEqual(a, b *Map) bool {
	if a.root == b.root {
		return true
	}
	if a.root.cardinality != b.root.cardinality ||
		a.root.cellCount != b.root.cellCount ||
		a.root.hash != b.root.hash {
		return false
	}
	it := a.IterateCells()
	for {
		d, rng, multi, ok := it.NextCell()
		if !ok {
			return true
		}
		other := b.Get(d)
		if multi {
			os, isSet := other.(*Set)
			if !isSet || !setEqual(rng.(*Set), os) {
				return false
			}
		} else if !Equal(rng, other) {
			return false
		}
	}
}

// MapIter iterates logical pairs, expanding multi-valued cells.
type MapIter struct {
	stack   []mapIterFrame
	cell    *mapCell
	valIter *SetIter
	valDom  Specifier
	cells   bool
}

type mapIterFrame struct {
	h    *mapHeader
	slot int
}

// Iterate starts a traversal over logical (domain, range) pairs.
func (m *Map) Iterate() *MapIter {
	return &MapIter{stack: []mapIterFrame{{h: m.root}}}
}

// IterateCells starts a traversal over cells: multi-valued cells come out
// once with their value-set.
func (m *Map) IterateCells() *MapIter {
	return &MapIter{stack: []mapIterFrame{{h: m.root}}, cells: true}
}

// Next returns the next logical pair.
func (it *MapIter) Next() (domain, rng Specifier, ok bool) {
	for {
		if it.valIter != nil {
			el, more := it.valIter.Next()
			if more {
				return it.valDom, el, true
			}
			it.valIter = nil
		}
		c, more := it.nextCell()
		if !more {
			return nil, nil, false
		}
		if c.isMultiVal {
			it.valIter = c.rng.(*Set).Iterate()
			it.valDom = c.domain
			continue
		}
		return c.domain, c.rng, true
	}
}

// NextCell returns the next cell as (domain, range, isMultiVal).
func (it *MapIter) NextCell() (domain, rng Specifier, multi, ok bool) {
	c, more := it.nextCell()
	if !more {
		return nil, nil, false, false
	}
	return c.domain, c.rng, c.isMultiVal, true
}

func (it *MapIter) nextCell() (*mapCell, bool) {
	for {
		if it.cell != nil {
			c := it.cell
			it.cell = c.next
			return c, true
		}
		if len(it.stack) == 0 {
			return nil, false
		}
		top := &it.stack[len(it.stack)-1]
		if top.slot >= HashSize {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		ch := top.h.child[top.slot]
		top.slot++
		if ch.header != nil {
			it.stack = append(it.stack, mapIterFrame{h: ch.header})
		} else if ch.cell != nil {
			it.cell = ch.cell
		}
	}
}

// SetToMap converts a set of pair tuples to a map. Tuples of length 2 give
// (first, second); length 1 gives (first, Omega) when domainOmegaAllowed is
// set. Anything else fails.
func SetToMap(s *Set, domainOmegaAllowed bool) (*Map, error) {
	m := NewMap()
	it := s.Iterate()
	for {
		el, ok := it.Next()
		if !ok {
			return m, nil
		}
		t, isTuple := el.(*Tuple)
		if !isTuple {
			return nil, fmt.Errorf("expected pair, found %T", el)
		}
		switch t.Length() {
		case 2:
			m = m.Put(t.Get(0), t.Get(1))
		case 1:
			if !domainOmegaAllowed {
				return nil, fmt.Errorf("expected pair, found tuple of length 1")
			}
			m = m.Put(t.Get(0), Omega{})
		default:
			return nil, fmt.Errorf("expected pair, found tuple of length %d", t.Length())
		}
	}
}

// MapToSet converts a map to a set of freshly built 2-tuples, one per
// logical pair.
func MapToSet(m *Map) *Set {
	s := NewSet()
	it := m.Iterate()
	for {
		d, r, ok := it.Next()
		if !ok {
			return s
		}
		t := NewTuple()
		t = t.Set(0, d)
		t = t.Set(1, r)
		s = s.Insert(t)
		Unmark(t)
	}
}
