package value

// Sets are hash-partitioned tries. Headers form the internal levels; the
// bottom level holds clash lists of cells sorted by hash code. Successive
// ShiftDist-bit groups of an element's hash pick the child slot at each
// level, root first. Every header carries a use count so container copies
// can share subtrees until a mutation path-copies its way down.

const (
	// HashSize is the fan-out of each header.
	HashSize = 4
	// ShiftDist is log2(HashSize).
	ShiftDist = 2
	// ClashSize is the average clash-list length that triggers expansion.
	ClashSize = 3

	hashMask = HashSize - 1
)

type setHeader struct {
	useCount    int32
	hash        int32
	cardinality int32 // root only
	height      int   // root only
	parent      *setHeader
	childIndex  int
	child       [HashSize]setChild
}

// setChild points at a sub-header on internal levels or a clash list on the
// bottom level. Exactly one of the two is non-nil.
type setChild struct {
	header *setHeader
	cell   *setCell
}

type setCell struct {
	next *setCell
	hash int32
	spec Specifier
}

// Set is a set specifier: a root header plus the trie hanging off it.
type Set struct {
	root *setHeader
}

// NewSet creates an empty set with one owner.
func NewSet() *Set {
	return &Set{root: &setHeader{useCount: 1}}
}

// Cardinality returns the number of elements.
func (s *Set) Cardinality() int32 {
	return s.root.cardinality
}

// Height returns the header-tree height.
func (s *Set) Height() int {
	return s.root.height
}

// expansionTrigger is the cardinality above which a tree of the given
// height splits its bottom layer.
func expansionTrigger(height int) int32 {
	return int32(1<<(uint(height)*ShiftDist)) * ClashSize
}

// contractionTrigger is the occupancy below which the bottom layer merges
// back into its parents.
func contractionTrigger(height int) int32 {
	if height < 1 {
		return 0
	}
	return int32(1 << (uint(height-1) * ShiftDist))
}

// slotAt picks the child index for hash code hc at the given depth.
func slotAt(hc int32, depth int) int {
	return int(uint32(hc)>>(uint(depth)*ShiftDist)) & hashMask
}

// Has reports membership without touching use counts.
func (s *Set) Has(el Specifier) bool {
	hc := Hash(el)
	h := s.root
	for depth := 0; depth < s.root.height; depth++ {
		h = h.child[slotAt(hc, depth)].header
		if h == nil {
			return false
		}
	}
	for c := h.child[slotAt(hc, s.root.height)].cell; c != nil; c = c.next {
		if uint32(c.hash) > uint32(hc) {
			break
		}
		if c.hash == hc && Equal(c.spec, el) {
			return true
		}
	}
	return false
}

// private returns a set whose root this caller owns alone, shallow-cloning
// the root when it is shared. Sub-headers stay shared until a mutation
// reaches them.
func (s *Set) private() *Set {
	if s.root.useCount == 1 {
		return s
	}
	s.root.useCount--
	root := &setHeader{
		useCount:    1,
		hash:        s.root.hash,
		cardinality: s.root.cardinality,
		height:      s.root.height,
	}
	copySetChildren(s.root, root)
	return &Set{root: root}
}

// copySetChildren shares src's children into dst: sub-headers get another
// owner, clash lists are copied cell by cell.
func copySetChildren(src, dst *setHeader) {
	for i := 0; i < HashSize; i++ {
		if ch := src.child[i].header; ch != nil {
			ch.useCount++
			dst.child[i].header = ch
		} else if cl := src.child[i].cell; cl != nil {
			dst.child[i].cell = copySetCells(cl)
		}
	}
}

func copySetCells(c *setCell) *setCell {
	var head, tail *setCell
	for ; c != nil; c = c.next {
		nc := &setCell{hash: c.hash, spec: Mark(c.spec)}
		if tail == nil {
			head = nc
		} else {
			tail.next = nc
		}
		tail = nc
	}
	return head
}

// privateChild returns a child header owned by h alone, cloning a shared
// one. The clone's parent back-pointer lands on h.
func privateSetChild(h *setHeader, idx int) *setHeader {
	ch := h.child[idx].header
	if ch == nil {
		ch = &setHeader{useCount: 1, parent: h, childIndex: idx}
		h.child[idx].header = ch
		return ch
	}
	if ch.useCount == 1 {
		ch.parent = h
		ch.childIndex = idx
		return ch
	}
	ch.useCount--
	clone := &setHeader{
		useCount:   1,
		hash:       ch.hash,
		parent:     h,
		childIndex: idx,
	}
	copySetChildren(ch, clone)
	h.child[idx].header = clone
	return clone
}

// Insert adds el and returns the set holding it, which is the receiver
// unless copy-on-write forced a clone. Duplicates are rejected by comparing
// specifiers on equal hash.
func (s *Set) Insert(el Specifier) *Set {
	hc := Hash(el)
	s = s.private()
	r := s.root
	h := r
	for depth := 0; depth < r.height; depth++ {
		h = privateSetChild(h, slotAt(hc, depth))
	}
	idx := slotAt(hc, r.height)
	var prev *setCell
	for c := h.child[idx].cell; c != nil && uint32(c.hash) <= uint32(hc); c = c.next {
		if c.hash == hc && Equal(c.spec, el) {
			return s
		}
		prev = c
	}
	nc := &setCell{hash: hc, spec: Mark(el)}
	if prev == nil {
		nc.next = h.child[idx].cell
		h.child[idx].cell = nc
	} else {
		nc.next = prev.next
		prev.next = nc
	}
	r.cardinality++
	for hh := h; hh != nil; hh = hh.parent {
		hh.hash ^= hc
	}
	if r.cardinality > expansionTrigger(r.height) {
		expandSet(r)
	}
	return s
}

// Delete removes el if present and returns the set without it.
func (s *Set) Delete(el Specifier) *Set {
	hc := Hash(el)
	s = s.private()
	r := s.root
	h := r
	for depth := 0; depth < r.height; depth++ {
		h = privateSetChild(h, slotAt(hc, depth))
	}
	idx := slotAt(hc, r.height)
	var prev *setCell
	for c := h.child[idx].cell; c != nil && uint32(c.hash) <= uint32(hc); c = c.next {
		if c.hash == hc && Equal(c.spec, el) {
			if prev == nil {
				h.child[idx].cell = c.next
			} else {
				prev.next = c.next
			}
			Unmark(c.spec)
			r.cardinality--
			for hh := h; hh != nil; hh = hh.parent {
				hh.hash ^= hc
			}
			for r.height > 0 && r.cardinality <= expansionTrigger(r.height-1) {
				contractSet(r)
			}
			return s
		}
		prev = c
	}
	return s
}

// expandSet splits the bottom layer: every clash list becomes a fresh
// header whose slots redistribute the cells by the next bit group. The new
// height is written first so back-pointers stay consistent while the layer
// rebuilds.
func expandSet(r *setHeader) {
	oldHeight := r.height
	r.height = oldHeight + 1
	splitSetLayer(r, 0, oldHeight)
}

// splitSetLayer walks to the old leaf layer, privatizing headers on the
// way since the whole bottom is being restructured.
func splitSetLayer(h *setHeader, depth, oldHeight int) {
	if depth < oldHeight {
		for i := 0; i < HashSize; i++ {
			if h.child[i].header != nil {
				splitSetLayer(privateSetChild(h, i), depth+1, oldHeight)
			}
		}
		return
	}
	for i := 0; i < HashSize; i++ {
		cl := h.child[i].cell
		if cl == nil {
			continue
		}
		nh := &setHeader{useCount: 1, parent: h, childIndex: i}
		for c := cl; c != nil; {
			next := c.next
			c.next = nil
			slot := slotAt(c.hash, oldHeight+1)
			nh.child[slot].cell = appendSetCell(nh.child[slot].cell, c)
			nh.hash ^= c.hash
			c = next
		}
		h.child[i].cell = nil
		h.child[i].header = nh
	}
}

// appendSetCell appends c to the end of list; the source list is already
// hash-sorted, so appending in walk order keeps each target list sorted.
func appendSetCell(list, c *setCell) *setCell {
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

// contractSet merges the bottom layer's clash lists into the parents with a
// HashSize-way merge and drops the height by one.
func contractSet(r *setHeader) {
	mergeSetLayer(r, 0, r.height-1)
	r.height--
}

func mergeSetLayer(h *setHeader, depth, parentDepth int) {
	if depth < parentDepth {
		for i := 0; i < HashSize; i++ {
			if h.child[i].header != nil {
				mergeSetLayer(privateSetChild(h, i), depth+1, parentDepth)
			}
		}
		return
	}
	for i := 0; i < HashSize; i++ {
		lh := h.child[i].header
		if lh == nil {
			continue
		}
		var lists [HashSize]*setCell
		if lh.useCount == 1 {
			for j := 0; j < HashSize; j++ {
				lists[j] = lh.child[j].cell
			}
		} else {
			lh.useCount--
			for j := 0; j < HashSize; j++ {
				lists[j] = copySetCells(lh.child[j].cell)
			}
		}
		h.child[i].header = nil
		h.child[i].cell = mergeSetCells(lists)
	}
}

// mergeSetCells merges hash-sorted clash lists into one sorted list.
func mergeSetCells(lists [HashSize]*setCell) *setCell {
	var head, tail *setCell
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

// releaseSetHeader frees a header tree whose root count reached zero,
// pushing contained specifiers onto the caller's deletion stack.
func releaseSetHeader(root *setHeader, stack []Specifier) []Specifier {
	headers := []*setHeader{root}
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
					stack = append(stack, c.spec)
				}
			}
			h.child[i] = setChild{}
		}
	}
	return stack
}

// setEqual compares two sets structurally.
func setEqual(a, b *Set) bool {
	if a.root == b.root {
		return true
	}
	if a.root.cardinality != b.root.cardinality || a.root.hash != b.root.hash {
		return false
	}
	it := a.Iterate()
	for {
		el, ok := it.Next()
		if !ok {
			return true
		}
		if !b.Has(el) {
			return false
		}
	}
}

// SetIter iterates a set with an explicit stack, so aborting an iteration
// leaves no state behind in the tree and concurrent traversals of a shared
// subtree are safe.
type SetIter struct {
	stack []setIterFrame
	cell  *setCell
}

type setIterFrame struct {
	h    *setHeader
	slot int
}

// Iterate starts a traversal. Elements come out in trie order, which is
// arbitrary but stable for an unmodified set.
func (s *Set) Iterate() *SetIter {
	return &SetIter{stack: []setIterFrame{{h: s.root}}}
}

// Next returns the next element, or ok == false at the end.
func (it *SetIter) Next() (Specifier, bool) {
	for {
		if it.cell != nil {
			c := it.cell
			it.cell = c.next
			return c.spec, true
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
			it.stack = append(it.stack, setIterFrame{h: ch.header})
		} else if ch.cell != nil {
			it.cell = ch.cell
		}
	}
}
