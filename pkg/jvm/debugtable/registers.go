package debugtable

import (
	"slices"

	"github.com/samber/lo"
)

// RegisterKey identifies one JVM local produced for a dex register. The
// instruction translator splits a register into several locals when it
// holds values of incompatible types; Discriminator tells them apart.
type RegisterKey struct {
	Register      uint32
	Discriminator string
}

// RegisterMap binds dex registers to JVM local variable slots.
type RegisterMap struct {
	bindings map[RegisterKey]uint16
	slots    map[uint32][]uint16
}

func NewRegisterMap(bindings map[RegisterKey]uint16) *RegisterMap {
	byRegister := lo.GroupBy(lo.Entries(bindings), func(e lo.Entry[RegisterKey, uint16]) uint32 {
		return e.Key.Register
	})
	slots := lo.MapValues(byRegister, func(entries []lo.Entry[RegisterKey, uint16], _ uint32) []uint16 {
		s := lo.Uniq(lo.Map(entries, func(e lo.Entry[RegisterKey, uint16], _ int) uint16 { return e.Value }))
		slices.Sort(s)
		return s
	})
	return &RegisterMap{bindings: bindings, slots: slots}
}

// Slots returns the slots bound to reg in ascending order. The returned
// slice must not be modified.
func (m *RegisterMap) Slots(reg uint32) []uint16 {
	if m == nil {
		return nil
	}
	return m.slots[reg]
}

// Slot returns the slot bound to key.
func (m *RegisterMap) Slot(key RegisterKey) (uint16, bool) {
	if m == nil {
		return 0, false
	}
	s, ok := m.bindings[key]
	return s, ok
}

// Len returns the number of bindings.
func (m *RegisterMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.bindings)
}
