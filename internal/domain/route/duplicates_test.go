package route

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDuplicates_None(t *testing.T) {
	m, err := NewManifest(set("m1", "a.b", "x"), set("m2", "a.c", "y"))
	require.NoError(t, err)
	require.Empty(t, m.Duplicates())
}

func TestDuplicates_SelfAndCross(t *testing.T) {
	m, err := NewManifest(
		set("m1", "a.b", "x", "a.self", "p", "a.self", "q"),
		set("m2", "a.b", "y"),
	)
	require.NoError(t, err)

	dups := m.Duplicates()
	require.Len(t, dups, 2)

	// Ordered by first declaration: a.b comes before a.self
	require.Equal(t, "a.b", dups[0].Path)
	require.Equal(t, DuplicateCross, dups[0].Kind)
	require.Equal(t, []Declaration{{ModuleID: "m1", Method: "x"}, {ModuleID: "m2", Method: "y"}}, dups[0].Declarations)

	require.Equal(t, "a.self", dups[1].Path)
	require.Equal(t, DuplicateSelf, dups[1].Kind)
	require.Len(t, dups[1].Declarations, 2)
}

func TestDuplicates_SelfThenCrossIsCross(t *testing.T) {
	m, err := NewManifest(
		set("m1", "a.b", "x", "a.b", "x"),
		set("m2", "a.b", "y"),
	)
	require.NoError(t, err)

	dups := m.Duplicates()
	require.Len(t, dups, 1)
	require.Equal(t, DuplicateCross, dups[0].Kind)
	require.Len(t, dups[0].Declarations, 3)
}
