package suffixtree

import "errors"

var errEmptyString = errors.New("suffix tree strings must be non-empty")

// Match follows pattern from the root as far as it matches and returns the
// node and edge position where matching stopped plus the number of
// characters matched.
func (t *Tree) Match(pattern []byte) (*Node, int, int) {
	return t.Walk(t.root, 0, pattern)
}

// Walk continues a match from a node and edge position. It returns the
// landing node, the position along its edge, and how many pattern
// characters matched.
func (t *Tree) Walk(node *Node, pos int, pattern []byte) (*Node, int, int) {
	matched := 0
	for matched < len(pattern) {
		if pos == node.edgeLen || node == t.root {
			child := t.FindChild(node, pattern[matched])
			if child == nil {
				return node, pos, matched
			}
			node = child
			pos = 0
			continue
		}
		if t.edgeChar(node, pos) == pattern[matched] {
			pos++
			matched++
			continue
		}
		return node, pos, matched
	}
	return node, pos, matched
}

// LabelLen returns the length of the path label from the root to node.
func (t *Tree) LabelLen(node *Node) int {
	length := 0
	for n := node; n != nil && n != t.root; n = n.parent {
		length += n.edgeLen
	}
	return length
}

// Label reconstructs the raw path label from the root to node into buf and
// returns the filled prefix. A short buffer keeps the label's tail: the
// characters nearest the node.
func (t *Tree) Label(node *Node, buf []byte) []byte {
	length := t.LabelLen(node)
	if length > len(buf) {
		length = len(buf)
	}
	out := buf[:length]
	i := length
	for n := node; n != nil && n != t.root && i > 0; n = n.parent {
		edge := t.rawStrings[n.slot][n.edgeStart : n.edgeStart+n.edgeLen]
		for j := len(edge) - 1; j >= 0 && i > 0; j-- {
			i--
			out[i] = edge[j]
		}
	}
	return out
}

// Leaf is one suffix ending reported by GetLeaf.
type Leaf struct {
	Seq      []byte
	Pos      int
	StringID int
}

// NumLeaves returns the number of suffixes ending at node or below it:
// structural leaves and internal leaves both count.
func (t *Tree) NumLeaves(node *Node) int {
	count := 0
	t.TraverseSubtree(node, func(n *Node) bool {
		if n.isLeaf {
			count++
		} else {
			for il := n.intleaves; il != nil; il = il.next {
				count++
			}
		}
		return true
	}, nil)
	return count
}

// GetLeaf returns the leafIndex'th (1-based) suffix ending at or below
// node: the node's own intleaves first, then the subtree in traversal
// order.
func (t *Tree) GetLeaf(node *Node, leafIndex int) (Leaf, bool) {
	var out Leaf
	found := false
	i := 0
	t.TraverseSubtree(node, func(n *Node) bool {
		if n.isLeaf {
			i++
			if i == leafIndex {
				out = Leaf{Seq: t.rawStrings[n.leafSlot], Pos: n.leafPos, StringID: t.ids[n.leafSlot]}
				found = true
				return false
			}
			return true
		}
		for il := n.intleaves; il != nil; il = il.next {
			i++
			if i == leafIndex {
				out = Leaf{Seq: t.rawStrings[il.slot], Pos: il.pos, StringID: t.ids[il.slot]}
				found = true
				return false
			}
		}
		return true
	}, nil)
	return out, found
}

// Traverse walks the whole tree. pre runs before a node's subtree and post
// after; either may be nil. A pre returning false prunes that subtree; a
// post returning false stops the traversal.
func (t *Tree) Traverse(pre, post func(*Node) bool) {
	t.TraverseSubtree(t.root, pre, post)
}

// TraverseSubtree walks the subtree under node with an explicit stack, so
// several traversals of one tree can run at the same time.
func (t *Tree) TraverseSubtree(node *Node, pre, post func(*Node) bool) {
	type frame struct {
		n        *Node
		children []*Node
		next     int
		entered  bool
	}
	stack := []frame{{n: node}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if !f.entered {
			f.entered = true
			if pre != nil && !pre(f.n) {
				stack = stack[:len(stack)-1]
				continue
			}
			f.children = t.Children(f.n)
		}
		if f.next < len(f.children) {
			child := f.children[f.next]
			f.next++
			stack = append(stack, frame{n: child})
			continue
		}
		if post != nil && !post(f.n) {
			return
		}
		stack = stack[:len(stack)-1]
	}
}

// SetIdents assigns stable depth-first identifiers to every node. The
// walk keeps its own stack; nothing transient is stored in the nodes, so
// concurrent traversals stay safe.
func (t *Tree) SetIdents() {
	id := 0
	t.Traverse(func(n *Node) bool {
		n.id = id
		id++
		return true
	}, nil)
	t.identsDirty = false
}

// Ident returns a node's depth-first identifier, refreshing the numbering
// if the tree changed since it was last computed.
func (t *Tree) Ident(n *Node) int {
	if t.identsDirty {
		t.SetIdents()
	}
	return n.id
}
