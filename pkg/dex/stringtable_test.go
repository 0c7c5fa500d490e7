package dex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringTable(t *testing.T) {
	table := NewStringTable([]string{"a", "b", "a"}, []string{"I"})

	s, err := table.ResolveString(1)
	require.NoError(t, err)
	require.Equal(t, "b", s)

	_, err = table.ResolveString(3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	require.ErrorContains(t, err, "string_ids[3] (size 3)")

	typ, err := table.ResolveType(0)
	require.NoError(t, err)
	require.Equal(t, "I", typ)

	_, err = table.ResolveType(0xffffffff)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	idx, ok := table.StringIndex("a")
	require.True(t, ok)
	require.Equal(t, uint32(0), idx)
	_, ok = table.StringIndex("c")
	require.False(t, ok)

	idx, ok = table.TypeIndex("I")
	require.True(t, ok)
	require.Equal(t, uint32(0), idx)

	strings, types := table.Len()
	require.Equal(t, 3, strings)
	require.Equal(t, 1, types)
}
