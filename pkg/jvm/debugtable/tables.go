// Package debugtable rebuilds JVM debug tables (LineNumberTable,
// LocalVariableTable and LocalVariableTypeTable) from a decoded dex debug
// info program.
package debugtable

// LineNumberEntry is one row of a LineNumberTable.
type LineNumberEntry struct {
	StartPC uint32
	Line    uint32
}

// VariableEntry is one row of a LocalVariableTable or a
// LocalVariableTypeTable. Descriptor holds the field descriptor for the
// former and the generic signature for the latter.
//
// While a variable is open its Length runs to the end of the method; it is
// shortened when the variable is closed.
type VariableEntry struct {
	StartPC    uint32
	Length     uint32
	Name       string
	Descriptor string
	Slot       uint16
}

func (e VariableEntry) End() uint32 { return e.StartPC + e.Length }

// contains reports whether addr lies in the closed interval
// [StartPC, StartPC+Length].
func (e VariableEntry) contains(addr uint32) bool {
	return e.StartPC <= addr && addr <= e.End()
}

// Tables are the debug tables of one method. A nil table is absent and no
// attribute is emitted for it.
type Tables struct {
	LineNumbers        []LineNumberEntry
	LocalVariables     []VariableEntry
	LocalVariableTypes []VariableEntry
}

// Count returns the number of present tables.
func (t Tables) Count() int {
	n := 0
	if t.LineNumbers != nil {
		n++
	}
	if t.LocalVariables != nil {
		n++
	}
	if t.LocalVariableTypes != nil {
		n++
	}
	return n
}

// Empty reports whether no table is present.
func (t Tables) Empty() bool { return t.Count() == 0 }
