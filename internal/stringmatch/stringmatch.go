// Package stringmatch drives exact multi-pattern matching over the suffix
// tree package, the way the native string-matching bridge exposes it to
// the runtime: the text is inserted into a suffix tree and each pattern's
// occurrences fall out of the leaves below its match point.
package stringmatch

import (
	"fmt"
	"sort"

	"setl2/internal/suffixtree"
)

// Match is one occurrence of a pattern in the text.
type Match struct {
	PatternID int
	Offset    int
}

// Matcher holds a pattern set.
type Matcher struct {
	patterns [][]byte
	ids      []int
}

// NewMatcher creates an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// AddPattern registers a pattern under an external id.
func (m *Matcher) AddPattern(p []byte, id int) error {
	if len(p) == 0 {
		return fmt.Errorf("empty pattern")
	}
	for _, c := range p {
		if int(c) >= suffixtree.MaxAlphaSize {
			return fmt.Errorf("pattern byte %d outside alphabet", c)
		}
	}
	m.patterns = append(m.patterns, p)
	m.ids = append(m.ids, id)
	return nil
}

// FindAll reports every occurrence of every registered pattern in text,
// sorted by (pattern id, offset) ascending.
func (m *Matcher) FindAll(text []byte) ([]Match, error) {
	if len(text) == 0 || len(m.patterns) == 0 {
		return nil, nil
	}
	tree, err := suffixtree.Build(text, suffixtree.MaxAlphaSize, suffixtree.SortedList, 0)
	if err != nil {
		return nil, err
	}
	var out []Match
	for pi, p := range m.patterns {
		node, _, matched := tree.Match(p)
		if matched < len(p) {
			continue
		}
		count := tree.NumLeaves(node)
		for i := 1; i <= count; i++ {
			leaf, ok := tree.GetLeaf(node, i)
			if !ok {
				break
			}
			out = append(out, Match{PatternID: m.ids[pi], Offset: leaf.Pos})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PatternID != out[j].PatternID {
			return out[i].PatternID < out[j].PatternID
		}
		return out[i].Offset < out[j].Offset
	})
	return out, nil
}
