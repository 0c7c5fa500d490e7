package debugtable

import (
	"fmt"
	"math"

	"github.com/grafana/dexdebug/pkg/dex/debuginfo"
)

// registerInfo is what a register held when its local was last started, so
// DBG_RESTART_LOCAL can reopen it.
type registerInfo struct {
	name debuginfo.OptString
	typ  debuginfo.OptString
	sig  debuginfo.OptString
}

// Builder replays the debug program of a single method. It is not safe for
// concurrent use; create one per method.
type Builder struct {
	method    string
	positions PositionMap
	registers *RegisterMap
	sink      DiagnosticSink

	address uint32
	line    int64
	done    bool

	lines      []LineNumberEntry
	locals     []VariableEntry
	localTypes []VariableEntry
	lastLocal  map[uint32]registerInfo
}

// NewBuilder returns a builder for method starting at lineStart. A nil sink
// discards diagnostics.
func NewBuilder(method string, lineStart uint32, positions PositionMap, registers *RegisterMap, sink DiagnosticSink) *Builder {
	if sink == nil {
		sink = NopSink()
	}
	return &Builder{
		method:    method,
		positions: positions,
		registers: registers,
		sink:      sink,
		line:      int64(lineStart),
		lastLocal: make(map[uint32]registerInfo),
	}
}

// Build replays events and returns the resulting tables.
func Build(method string, lineStart uint32, events []debuginfo.Event, positions PositionMap, registers *RegisterMap, sink DiagnosticSink) Tables {
	b := NewBuilder(method, lineStart, positions, registers, sink)
	for _, e := range events {
		if !b.Apply(e) {
			break
		}
	}
	return b.Tables()
}

// Apply advances the state machine by one event. It returns false once the
// program has ended; further events are ignored.
func (b *Builder) Apply(e debuginfo.Event) bool {
	if b.done {
		return false
	}
	switch e := e.(type) {
	case debuginfo.EndSequence:
		b.done = true
		return false

	case debuginfo.AdvancePC:
		b.address += e.Delta

	case debuginfo.AdvanceLine:
		b.line += int64(e.Delta)

	case debuginfo.StartLocal:
		info := registerInfo{name: e.Name, typ: e.Type}
		b.startLocal(e.Register, info, true)
		b.lastLocal[e.Register] = info

	case debuginfo.StartLocalExtended:
		info := registerInfo{name: e.Name, typ: e.Type, sig: e.Signature}
		b.startLocal(e.Register, info, true)
		b.lastLocal[e.Register] = info

	case debuginfo.EndLocal:
		addr := b.translate()
		for _, slot := range b.registers.Slots(e.Register) {
			b.endAt(slot, addr)
		}

	case debuginfo.RestartLocal:
		if info, ok := b.lastLocal[e.Register]; ok {
			b.startLocal(e.Register, info, false)
		}

	case debuginfo.SetFile:
		b.report(SeverityInfo, KindSetFileDropped,
			fmt.Sprintf("can't translate DBG_SET_FILE %s: no JVM equivalent", e.Name))

	case debuginfo.Special:
		b.line += int64(e.LineDelta())
		b.address += e.AddressDelta()
		b.lines = append(b.lines, LineNumberEntry{StartPC: b.translate(), Line: b.lineNumber()})

	case debuginfo.SetPrologueEnd, debuginfo.SetEpilogueBegin:
	}
	return true
}

// Tables returns the tables built so far. Empty tables are absent.
func (b *Builder) Tables() Tables {
	var t Tables
	if len(b.lines) > 0 {
		t.LineNumbers = b.lines
	}
	if len(b.locals) > 0 {
		t.LocalVariables = b.locals
	}
	if len(b.localTypes) > 0 {
		t.LocalVariableTypes = b.localTypes
	}
	return t
}

// Address and Line expose the state machine registers.
func (b *Builder) Address() uint32 { return b.address }
func (b *Builder) Line() int64     { return b.line }

func (b *Builder) startLocal(reg uint32, info registerInfo, warnUnbound bool) {
	addr := b.translate()
	slots := b.registers.Slots(reg)
	if len(slots) == 0 && warnUnbound {
		b.report(SeverityWarning, KindUnboundRegister,
			fmt.Sprintf("register %d doesn't exist but had local variable info: name=%s type=%s signature=%s target=%d",
				reg, info.name, info.typ, info.sig, addr))
	}
	for _, slot := range slots {
		b.endAt(slot, addr)
		b.open(slot, addr, info)
	}
}

func (b *Builder) open(slot uint16, addr uint32, info registerInfo) {
	length := b.positions.remaining(addr)
	if info.typ.Valid || !info.sig.Valid {
		b.locals = append(b.locals, VariableEntry{
			StartPC:    addr,
			Length:     length,
			Name:       info.name.Value,
			Descriptor: info.typ.Value,
			Slot:       slot,
		})
	}
	if info.sig.Valid {
		b.localTypes = append(b.localTypes, VariableEntry{
			StartPC:    addr,
			Length:     length,
			Name:       info.name.Value,
			Descriptor: info.sig.Value,
			Slot:       slot,
		})
	}
}

// endAt closes every entry of slot whose interval contains addr, in both
// tables, and returns how many were closed.
func (b *Builder) endAt(slot uint16, addr uint32) int {
	found := 0
	for _, table := range [][]VariableEntry{b.locals, b.localTypes} {
		for i := range table {
			if e := &table[i]; e.Slot == slot && e.contains(addr) {
				e.Length = addr - e.StartPC
				found++
			}
		}
	}
	return found
}

func (b *Builder) translate() uint32 {
	target, ok := b.positions.Translate(b.address)
	if !ok {
		b.report(SeverityDebug, KindAddressFallback,
			fmt.Sprintf("debug info referenced dex instruction %d which was removed during optimization, using target %d instead", b.address, target))
	}
	return target
}

func (b *Builder) lineNumber() uint32 {
	switch {
	case b.line < 0:
		b.report(SeverityWarning, KindLineOutOfRange, fmt.Sprintf("line %d is negative, clamped to 0", b.line))
		return 0
	case b.line > math.MaxUint32:
		b.report(SeverityWarning, KindLineOutOfRange, fmt.Sprintf("line %d overflows, clamped to %d", b.line, uint32(math.MaxUint32)))
		return math.MaxUint32
	}
	return uint32(b.line)
}

func (b *Builder) report(severity Severity, kind DiagnosticKind, msg string) {
	b.sink.Report(Diagnostic{
		Severity: severity,
		Kind:     kind,
		Method:   b.method,
		Address:  b.address,
		Message:  msg,
	})
}
