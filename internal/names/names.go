// Package names implements the compiler's name table. Every identifier and
// string literal the lexer sees is interned here exactly once; the rest of
// the compiler passes *Name handles around instead of strings.
package names

// MethodCode identifies the built-in method a name maps onto when it is used
// as an operator on a class instance. User names carry MethodUser.
type MethodCode int

const (
	MethodAdd MethodCode = iota
	MethodSub
	MethodMult
	MethodDiv
	MethodExp
	MethodMod
	MethodMin
	MethodMax
	MethodWith
	MethodLess
	MethodLessF
	MethodNpow
	MethodPow
	MethodUminus
	MethodDomain
	MethodRange
	MethodArb
	MethodNelt
	MethodFrom
	MethodFromB
	MethodFromE
	MethodOf
	MethodOfA
	MethodSlice
	MethodSliceEnd
	MethodLt
	MethodLe
	MethodIn
	MethodCreate
	MethodInitObj
	MethodUser
)

// NoToken marks a name with no lexical identity of its own: a plain
// identifier.
const NoToken = -1

// Name is one interned identifier. TokenType holds the scanner's token code
// for reserved words and operator names, NoToken otherwise. The symbol
// table keeps the visibility list for each name on its side.
type Name struct {
	Text       string
	TokenType  int
	Method     MethodCode
	bucketNext *Name
}

// IsKeyword reports whether the name was installed with a token code.
func (n *Name) IsKeyword() bool {
	return n.TokenType != NoToken
}

// Table interns names for one compiler instance. The bucket array is open
// hashed the way the original table was; string storage rides on Go strings
// and is append-only for the life of the instance.
type Table struct {
	buckets [nameBuckets]*Name
	count   int
}

const nameBuckets = 1021

// NewTable creates an empty name table. The scanner installs reserved words
// and operator names before the first token is read.
func NewTable() *Table {
	return &Table{}
}

// Count returns the number of interned names.
func (t *Table) Count() int {
	return t.count
}

// Intern returns the unique Name for text, installing it as a plain
// identifier if it has not been seen before.
func (t *Table) Intern(text string) *Name {
	h := pjw(text) % nameBuckets
	for n := t.buckets[h]; n != nil; n = n.bucketNext {
		if n.Text == text {
			return n
		}
	}
	n := &Name{
		Text:      text,
		TokenType: NoToken,
		Method:    MethodUser,
	}
	n.bucketNext = t.buckets[h]
	t.buckets[h] = n
	t.count++
	return n
}

// Lookup returns the Name for text or nil if it was never interned. The
// scanner uses this for composite operator folding, where a synthesized
// spelling that was never installed must fail rather than intern garbage.
func (t *Table) Lookup(text string) *Name {
	h := pjw(text) % nameBuckets
	for n := t.buckets[h]; n != nil; n = n.bucketNext {
		if n.Text == text {
			return n
		}
	}
	return nil
}

// Install interns text and stamps its token code and method code.
func (t *Table) Install(text string, tokenType int, method MethodCode) *Name {
	n := t.Intern(text)
	n.TokenType = tokenType
	n.Method = method
	return n
}

// pjw is the Weinberger hash the original name table used.
func pjw(s string) uint32 {
	var h, g uint32
	for i := 0; i < len(s); i++ {
		h = (h << 4) + uint32(s[i])
		if g = h & 0xf0000000; g != 0 {
			h ^= g >> 24
			h &^= g
		}
	}
	return h
}
