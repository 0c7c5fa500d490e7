package debugtable

// PositionMap maps dex instruction offsets to JVM bytecode offsets. It is
// produced by the instruction translator.
type PositionMap struct {
	// Targets holds the JVM offset of every dex code unit offset.
	Targets []uint32
	// CodeLength is the length of the translated bytecode.
	CodeLength uint32
}

// Translate returns the JVM offset of the dex offset addr. Offsets past the
// end of the map belong to instructions the optimizer removed; they map to
// the last known target and ok is false.
func (m PositionMap) Translate(addr uint32) (target uint32, ok bool) {
	if uint64(addr) < uint64(len(m.Targets)) {
		return m.Targets[addr], true
	}
	if len(m.Targets) == 0 {
		return 0, false
	}
	return m.Targets[len(m.Targets)-1], false
}

// remaining returns the provisional length of a variable opened at addr.
func (m PositionMap) remaining(addr uint32) uint32 {
	if addr >= m.CodeLength {
		return 0
	}
	return m.CodeLength - addr
}
