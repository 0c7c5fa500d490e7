// Package dex holds the parts of the dex file model the debug info
// translation needs.
package dex

import (
	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// StringTable is an in-memory view of a dex file's string_ids and
// type_ids. Types are stored as their descriptor strings.
type StringTable struct {
	strings []string
	types   []string

	stringIndex *swiss.Map[string, uint32]
	typeIndex   *swiss.Map[string, uint32]
}

func NewStringTable(strings, types []string) *StringTable {
	return &StringTable{
		strings:     strings,
		types:       types,
		stringIndex: buildIndex(strings),
		typeIndex:   buildIndex(types),
	}
}

func buildIndex(values []string) *swiss.Map[string, uint32] {
	m := swiss.NewMap[string, uint32](uint32(len(values)))
	for i, v := range values {
		// The first occurrence wins so indices stay stable.
		if !m.Has(v) {
			m.Put(v, uint32(i))
		}
	}
	return m
}

func (t *StringTable) ResolveString(idx uint32) (string, error) {
	if int64(idx) >= int64(len(t.strings)) {
		return "", errors.Wrapf(ErrIndexOutOfRange, "string_ids[%d] (size %d)", idx, len(t.strings))
	}
	return t.strings[idx], nil
}

func (t *StringTable) ResolveType(idx uint32) (string, error) {
	if int64(idx) >= int64(len(t.types)) {
		return "", errors.Wrapf(ErrIndexOutOfRange, "type_ids[%d] (size %d)", idx, len(t.types))
	}
	return t.types[idx], nil
}

func (t *StringTable) StringIndex(s string) (uint32, bool) { return t.stringIndex.Get(s) }

func (t *StringTable) TypeIndex(s string) (uint32, bool) { return t.typeIndex.Get(s) }

func (t *StringTable) Len() (strings, types int) { return len(t.strings), len(t.types) }
