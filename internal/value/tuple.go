package value

// Tuples are positional tries. Index bit groups select children high group
// first, so an in-order walk visits components left to right. Trailing
// Omega components are never stored: the length is the smallest n such that
// every position at or beyond n is Omega.

type tupleHeader struct {
	useCount   int32
	hash       int32
	length     int32 // root only
	height     int   // root only
	parent     *tupleHeader
	childIndex int
	child      [HashSize]tupleChild
}

// tupleChild holds a sub-header on internal levels or one component cell on
// the bottom level.
type tupleChild struct {
	header *tupleHeader
	cell   *tupleCell
}

type tupleCell struct {
	spec Specifier
	hash int32 // position-mixed contribution to the tuple hash
}

// Tuple is a tuple specifier.
type Tuple struct {
	root *tupleHeader
}

// NewTuple creates an empty tuple with one owner.
func NewTuple() *Tuple {
	return &Tuple{root: &tupleHeader{useCount: 1}}
}

// Length returns the logical length: trailing Omegas excluded.
func (t *Tuple) Length() int32 {
	return t.root.length
}

// Height returns the header-tree height.
func (t *Tuple) Height() int {
	return t.root.height
}

// tupleCapacity is the number of positions a tree of the given height can
// address.
func tupleCapacity(height int) int32 {
	return int32(1) << (uint(height+1) * ShiftDist)
}

// tupleSlot picks the child index for position i at the given depth of a
// tree with the given height.
func tupleSlot(i int32, depth, height int) int {
	return int(uint32(i)>>(uint(height-depth)*ShiftDist)) & hashMask
}

// posMix folds a component hash with its position so reordering changes
// the tuple hash.
func posMix(h int32, i int32) int32 {
	return hashInt32(h ^ int32(uint32(i)*0x9e3779b9))
}

// Get returns the component at position i, Omega when off the end or in a
// hole.
func (t *Tuple) Get(i int32) Specifier {
	if i < 0 || i >= t.root.length {
		return Omega{}
	}
	h := t.root
	for depth := 0; depth < t.root.height; depth++ {
		h = h.child[tupleSlot(i, depth, t.root.height)].header
		if h == nil {
			return Omega{}
		}
	}
	c := h.child[tupleSlot(i, t.root.height, t.root.height)].cell
	if c == nil {
		return Omega{}
	}
	return c.spec
}

func (t *Tuple) private() *Tuple {
	if t.root.useCount == 1 {
		return t
	}
	t.root.useCount--
	root := &tupleHeader{
		useCount: 1,
		hash:     t.root.hash,
		length:   t.root.length,
		height:   t.root.height,
	}
	copyTupleChildren(t.root, root)
	return &Tuple{root: root}
}

func copyTupleChildren(src, dst *tupleHeader) {
	for i := 0; i < HashSize; i++ {
		if ch := src.child[i].header; ch != nil {
			ch.useCount++
			dst.child[i].header = ch
		} else if c := src.child[i].cell; c != nil {
			dst.child[i].cell = &tupleCell{spec: Mark(c.spec), hash: c.hash}
		}
	}
}

func privateTupleChild(h *tupleHeader, idx int) *tupleHeader {
	ch := h.child[idx].header
	if ch == nil {
		ch = &tupleHeader{useCount: 1, parent: h, childIndex: idx}
		h.child[idx].header = ch
		return ch
	}
	if ch.useCount == 1 {
		ch.parent = h
		ch.childIndex = idx
		return ch
	}
	ch.useCount--
	clone := &tupleHeader{
		useCount:   1,
		hash:       ch.hash,
		parent:     h,
		childIndex: idx,
	}
	copyTupleChildren(ch, clone)
	h.child[idx].header = clone
	return clone
}

// grow adds one level: the old contents slide under child 0 of the root,
// since every existing position has zero in the new top bit group.
func growTuple(r *tupleHeader) {
	inner := &tupleHeader{
		useCount:   1,
		hash:       r.hash,
		parent:     r,
		childIndex: 0,
		child:      r.child,
	}
	for i := 0; i < HashSize; i++ {
		if ch := inner.child[i].header; ch != nil && ch.useCount == 1 {
			ch.parent = inner
		}
	}
	r.height++
	r.child = [HashSize]tupleChild{}
	r.child[0].header = inner
}

// shrink drops the top level when every stored position fits in the
// smaller tree.
func shrinkTuple(r *tupleHeader) {
	inner := r.child[0].header
	r.height--
	if inner == nil {
		r.child = [HashSize]tupleChild{}
		return
	}
	if inner.useCount > 1 {
		inner.useCount--
		clone := &tupleHeader{useCount: 1, hash: inner.hash}
		copyTupleChildren(inner, clone)
		inner = clone
	}
	r.child = inner.child
	for i := 0; i < HashSize; i++ {
		if ch := r.child[i].header; ch != nil && ch.useCount == 1 {
			ch.parent = r
		}
	}
}

// Set stores el at position i and returns the tuple holding it. Storing
// Omega erases the position; erasing the last position renormalizes the
// length past any newly trailing holes.
func (t *Tuple) Set(i int32, el Specifier) *Tuple {
	if i < 0 {
		return t
	}
	if _, isOmega := el.(Omega); isOmega {
		return t.erase(i)
	}
	t = t.private()
	r := t.root
	for i >= tupleCapacity(r.height) {
		growTuple(r)
	}
	h := r
	for depth := 0; depth < r.height; depth++ {
		h = privateTupleChild(h, tupleSlot(i, depth, r.height))
	}
	idx := tupleSlot(i, r.height, r.height)
	contrib := posMix(Hash(el), i)
	if c := h.child[idx].cell; c != nil {
		old := c.hash
		Unmark(c.spec)
		c.spec = Mark(el)
		c.hash = contrib
		for hh := h; hh != nil; hh = hh.parent {
			hh.hash ^= old ^ contrib
		}
	} else {
		h.child[idx].cell = &tupleCell{spec: Mark(el), hash: contrib}
		for hh := h; hh != nil; hh = hh.parent {
			hh.hash ^= contrib
		}
	}
	if i+1 > r.length {
		r.length = i + 1
	}
	return t
}

func (t *Tuple) erase(i int32) *Tuple {
	if i >= t.root.length {
		return t
	}
	t = t.private()
	r := t.root
	h := r
	for depth := 0; depth < r.height; depth++ {
		h = privateTupleChild(h, tupleSlot(i, depth, r.height))
	}
	idx := tupleSlot(i, r.height, r.height)
	c := h.child[idx].cell
	if c != nil {
		Unmark(c.spec)
		for hh := h; hh != nil; hh = hh.parent {
			hh.hash ^= c.hash
		}
		h.child[idx].cell = nil
	}
	if i == r.length-1 {
		j := i - 1
		for j >= 0 {
			if _, isOmega := t.Get(j).(Omega); !isOmega {
				break
			}
			j--
		}
		r.length = j + 1
		for r.height > 0 && r.length <= tupleCapacity(r.height-1) {
			shrinkTuple(r)
		}
	}
	return t
}

// FromE removes and returns the last component.
func (t *Tuple) FromE() (Specifier, *Tuple) {
	if t.root.length == 0 {
		return Omega{}, t
	}
	last := t.root.length - 1
	el := Mark(t.Get(last))
	return el, t.Set(last, Omega{})
}

// FromB removes and returns the first component, shifting the rest left.
func (t *Tuple) FromB() (Specifier, *Tuple) {
	n := t.root.length
	if n == 0 {
		return Omega{}, t
	}
	el := Mark(t.Get(0))
	nt := NewTuple()
	for i := int32(1); i < n; i++ {
		nt = nt.Set(i-1, t.Get(i))
	}
	Unmark(t)
	return el, nt
}

func releaseTupleHeader(root *tupleHeader, stack []Specifier) []Specifier {
	headers := []*tupleHeader{root}
	for len(headers) > 0 {
		h := headers[len(headers)-1]
		headers = headers[:len(headers)-1]
		for i := 0; i < HashSize; i++ {
			if ch := h.child[i].header; ch != nil {
				ch.useCount--
				if ch.useCount == 0 {
					headers = append(headers, ch)
				}
			} else if c := h.child[i].cell; c != nil {
				stack = append(stack, c.spec)
			}
			h.child[i] = tupleChild{}
		}
	}
	return stack
}

func tupleEqual(a, b *Tuple) bool {
	if a.root == b.root {
		return true
	}
	if a.root.length != b.root.length || a.root.hash != b.root.hash {
		return false
	}
	for i := int32(0); i < a.root.length; i++ {
		if !Equal(a.Get(i), b.Get(i)) {
			return false
		}
	}
	return true
}

// TupleIter walks components left to right, including holes as Omega.
type TupleIter struct {
	t *Tuple
	i int32
}

// Iterate starts a left-to-right traversal.
func (t *Tuple) Iterate() *TupleIter {
	return &TupleIter{t: t}
}

// Next returns the next component.
func (it *TupleIter) Next() (Specifier, bool) {
	if it.i >= it.t.Length() {
		return nil, false
	}
	el := it.t.Get(it.i)
	it.i++
	return el, true
}
