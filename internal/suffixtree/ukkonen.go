package suffixtree

// AddString inserts a string into the tree with Ukkonen's algorithm,
// generalized for multiple strings: construction starts at the root with
// the normal extension rules so a first character that is already present
// is handled, and the terminator phase attaches internal leaves instead of
// inserting a sentinel symbol.
//
// seq is the mapped sequence (values below the alphabet size), raw the
// display form (nil to reuse seq), id the external string identifier.
// It returns false when the string cannot be inserted.
func (t *Tree) AddString(seq, raw []byte, length, id int) bool {
	slot := t.insertString(seq, raw, length, id)
	if slot < 0 {
		return false
	}
	S := t.strings[slot]
	M := length
	root := t.root

	node := root
	lastNode := root
	g := 0
	edgeLen := 0

	for i, j := 0, 0; i <= M; i++ {
		for ; j <= i && j < M; j++ {
			// Extend S[j..i-1] to S[j..i]. Either g == 0 and node == root
			// with i == j, or S[j..i-1] ends at the g'th character of
			// node's edge.
			if g == 0 || g == edgeLen {
				if i < M {
					if child := t.FindChild(node, S[i]); child != nil {
						node = child
						g = 1
						edgeLen = node.edgeLen
						break
					}
					leaf := t.newLeaf(slot, i, j)
					node = t.connect(node, leaf)
				} else {
					// phase M: the suffix ends inside the tree
					if node.isLeaf {
						node = t.convertLeafNode(node)
					}
					t.addIntLeaf(node, slot, j)
				}
				if lastNode != root && lastNode.suffixLink == nil {
					lastNode.suffixLink = node
				}
				lastNode = node
			} else {
				// mid-edge: extend down the edge or split it
				if i < M && S[i] == t.edgeChar(node, g) {
					g++
					break
				}
				node = t.edgeSplit(node, g)
				edgeLen = node.edgeLen
				if i < M {
					leaf := t.newLeaf(slot, i, j)
					node = t.connect(node, leaf)
				} else {
					if node.isLeaf {
						node = t.convertLeafNode(node)
					}
					t.addIntLeaf(node, slot, j)
				}
				if lastNode != root && lastNode.suffixLink == nil {
					lastNode.suffixLink = node
				}
				lastNode = node
			}

			// Rule 2 applied; find where S[j+1..i-1] ends for the next
			// extension by following the suffix link, skip-counting g
			// characters down by edge length alone.
			if node == root {
				// nothing to do
			} else if g == edgeLen && node.suffixLink != nil {
				node = node.suffixLink
				edgeLen = node.edgeLen
				g = edgeLen
				continue
			} else {
				parent := node.parent
				if parent != t.root {
					node = parent.suffixLink
				} else {
					node = root
					g--
				}
				edgeLen = node.edgeLen

				h := i - g
				for g > 0 {
					node = t.FindChild(node, S[h])
					gprime := node.edgeLen
					if gprime > g {
						break
					}
					g -= gprime
					h += gprime
				}
				edgeLen = node.edgeLen

				// When the walk lands exactly on a node, the pending
				// suffix link can be set now unless the landing spot is a
				// leaf: links may only point at internal nodes, so a
				// mid-edge or leaf landing defers the assignment until a
				// node-valued target exists.
				if g == 0 {
					if lastNode != root && !node.isLeaf && lastNode.suffixLink == nil {
						lastNode.suffixLink = node
						lastNode = node
					}
					if node != root {
						g = edgeLen
					}
				}
			}
		}
	}
	return true
}

// Build constructs a tree over a single string.
func Build(seq []byte, alphaSize int, policy BuildPolicy, threshold int) (*Tree, error) {
	t, err := New(alphaSize, true, policy, threshold)
	if err != nil {
		return nil, err
	}
	if !t.AddString(seq, nil, len(seq), 1) {
		return nil, errEmptyString
	}
	return t, nil
}

// BuildGeneralized constructs a tree over multiple strings with ids
// 1..len(seqs).
func BuildGeneralized(seqs [][]byte, alphaSize int, policy BuildPolicy, threshold int) (*Tree, error) {
	t, err := New(alphaSize, false, policy, threshold)
	if err != nil {
		return nil, err
	}
	for i, s := range seqs {
		if !t.AddString(s, nil, len(s), i+1) {
			return nil, errEmptyString
		}
	}
	return t, nil
}
