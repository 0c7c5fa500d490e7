package debuginfo

import "fmt"

// OptString is a string resolved from the string or type pool that may be
// absent (encoded as NO_INDEX in the stream).
type OptString struct {
	Value string
	Valid bool
}

// None is the absent OptString.
var None = OptString{}

func Some(s string) OptString { return OptString{Value: s, Valid: true} }

func (s OptString) String() string {
	if !s.Valid {
		return "<none>"
	}
	return s.Value
}

// Event is one decoded instruction of the debug state machine program.
// The set of implementations is closed; consumers switch on the concrete
// type.
type Event interface {
	Opcode() Opcode
	event()
}

type EndSequence struct{}

type AdvancePC struct {
	Delta uint32
}

type AdvanceLine struct {
	Delta int32
}

type StartLocal struct {
	Register uint32
	Name     OptString
	Type     OptString
}

type StartLocalExtended struct {
	Register  uint32
	Name      OptString
	Type      OptString
	Signature OptString
}

type EndLocal struct {
	Register uint32
}

type RestartLocal struct {
	Register uint32
}

type SetPrologueEnd struct{}

type SetEpilogueBegin struct{}

type SetFile struct {
	Name OptString
}

// Special is a combined address and line advance that also emits a
// position entry.
type Special struct {
	Op Opcode
}

// NewSpecial returns the special opcode that advances the address by
// addrDelta and the line by lineDelta. It reports false when the pair
// cannot be expressed by a single special opcode.
func NewSpecial(addrDelta uint32, lineDelta int32) (Special, bool) {
	if lineDelta < LineBase || lineDelta >= LineBase+LineRange {
		return Special{}, false
	}
	adjusted := uint64(lineDelta-LineBase) + uint64(addrDelta)*LineRange
	if adjusted > 0xff-uint64(FirstSpecial) {
		return Special{}, false
	}
	return Special{Op: FirstSpecial + Opcode(adjusted)}, true
}

func (s Special) adjusted() uint32 { return uint32(s.Op - FirstSpecial) }

// AddressDelta is the number of code units the address register advances.
func (s Special) AddressDelta() uint32 { return s.adjusted() / LineRange }

// LineDelta is the signed change applied to the line register.
func (s Special) LineDelta() int32 { return int32(s.adjusted()%LineRange) + LineBase }

func (EndSequence) Opcode() Opcode        { return OpEndSequence }
func (AdvancePC) Opcode() Opcode          { return OpAdvancePC }
func (AdvanceLine) Opcode() Opcode        { return OpAdvanceLine }
func (StartLocal) Opcode() Opcode         { return OpStartLocal }
func (StartLocalExtended) Opcode() Opcode { return OpStartLocalExt }
func (EndLocal) Opcode() Opcode           { return OpEndLocal }
func (RestartLocal) Opcode() Opcode       { return OpRestartLocal }
func (SetPrologueEnd) Opcode() Opcode     { return OpSetPrologueEnd }
func (SetEpilogueBegin) Opcode() Opcode   { return OpSetEpilogueBegin }
func (SetFile) Opcode() Opcode            { return OpSetFile }
func (s Special) Opcode() Opcode          { return s.Op }

func (EndSequence) event()        {}
func (AdvancePC) event()          {}
func (AdvanceLine) event()        {}
func (StartLocal) event()         {}
func (StartLocalExtended) event() {}
func (EndLocal) event()           {}
func (RestartLocal) event()       {}
func (SetPrologueEnd) event()     {}
func (SetEpilogueBegin) event()   {}
func (SetFile) event()            {}
func (Special) event()            {}

// Format renders an event the way the CLI prints it.
func Format(e Event) string {
	switch e := e.(type) {
	case AdvancePC:
		return fmt.Sprintf("%s +%d", e.Opcode(), e.Delta)
	case AdvanceLine:
		return fmt.Sprintf("%s %+d", e.Opcode(), e.Delta)
	case StartLocal:
		return fmt.Sprintf("%s v%d %s %s", e.Opcode(), e.Register, e.Name, e.Type)
	case StartLocalExtended:
		return fmt.Sprintf("%s v%d %s %s %s", e.Opcode(), e.Register, e.Name, e.Type, e.Signature)
	case EndLocal:
		return fmt.Sprintf("%s v%d", e.Opcode(), e.Register)
	case RestartLocal:
		return fmt.Sprintf("%s v%d", e.Opcode(), e.Register)
	case SetFile:
		return fmt.Sprintf("%s %s", e.Opcode(), e.Name)
	case Special:
		return fmt.Sprintf("%s addr+%d line%+d", e.Opcode(), e.AddressDelta(), e.LineDelta())
	default:
		return e.Opcode().String()
	}
}
