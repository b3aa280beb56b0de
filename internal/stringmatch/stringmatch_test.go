package stringmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindAllSingle(t *testing.T) {
	m := NewMatcher()
	require.NoError(t, m.AddPattern([]byte("ana"), 1))
	got, err := m.FindAll([]byte("banana"))
	require.NoError(t, err)
	assert.Equal(t, []Match{{1, 1}, {1, 3}}, got)
}

func TestFindAllMultiPattern(t *testing.T) {
	m := NewMatcher()
	require.NoError(t, m.AddPattern([]byte("ab"), 2))
	require.NoError(t, m.AddPattern([]byte("bra"), 1))
	got, err := m.FindAll([]byte("abracadabra"))
	require.NoError(t, err)
	// sorted by pattern id then offset
	assert.Equal(t, []Match{{1, 1}, {1, 8}, {2, 0}, {2, 7}}, got)
}

func TestFindAllNoMatch(t *testing.T) {
	m := NewMatcher()
	require.NoError(t, m.AddPattern([]byte("xyz"), 1))
	got, err := m.FindAll([]byte("banana"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPatternAtEnds(t *testing.T) {
	m := NewMatcher()
	require.NoError(t, m.AddPattern([]byte("ab"), 1))
	got, err := m.FindAll([]byte("abab"))
	require.NoError(t, err)
	assert.Equal(t, []Match{{1, 0}, {1, 2}}, got)
}

func TestWholeTextPattern(t *testing.T) {
	m := NewMatcher()
	require.NoError(t, m.AddPattern([]byte("banana"), 7))
	got, err := m.FindAll([]byte("banana"))
	require.NoError(t, err)
	assert.Equal(t, []Match{{7, 0}}, got)
}

func TestRejectsEmptyPattern(t *testing.T) {
	m := NewMatcher()
	assert.Error(t, m.AddPattern(nil, 1))
}
