package debuginfo

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// StringIndexer is the inverse of StringResolver.
type StringIndexer interface {
	StringIndex(s string) (uint32, bool)
	TypeIndex(s string) (uint32, bool)
}

var ErrNotIndexed = errors.New("string is not present in the pool")

// Encoder writes events in the debug_info_item wire format.
type Encoder struct {
	buf     []byte
	strings StringIndexer
}

func NewEncoder(strings StringIndexer) *Encoder {
	return &Encoder{strings: strings}
}

func (e *Encoder) Bytes() []byte { return e.buf }

func (e *Encoder) Reset() { e.buf = e.buf[:0] }

func (e *Encoder) Encode(ev Event) error {
	e.buf = append(e.buf, byte(ev.Opcode()))
	switch ev := ev.(type) {
	case EndSequence, SetPrologueEnd, SetEpilogueBegin, Special:
		return nil
	case AdvancePC:
		e.uleb128(ev.Delta)
	case AdvanceLine:
		e.sleb128(ev.Delta)
	case StartLocal:
		e.uleb128(ev.Register)
		if err := e.index(ev.Name, e.strings.StringIndex); err != nil {
			return err
		}
		return e.index(ev.Type, e.strings.TypeIndex)
	case StartLocalExtended:
		e.uleb128(ev.Register)
		if err := e.index(ev.Name, e.strings.StringIndex); err != nil {
			return err
		}
		if err := e.index(ev.Type, e.strings.TypeIndex); err != nil {
			return err
		}
		return e.index(ev.Signature, e.strings.StringIndex)
	case EndLocal:
		e.uleb128(ev.Register)
	case RestartLocal:
		e.uleb128(ev.Register)
	case SetFile:
		return e.index(ev.Name, e.strings.StringIndex)
	default:
		return errors.Errorf("unknown debug event %T", ev)
	}
	return nil
}

// EncodeInfo writes a complete debug_info_item. The event list is written
// as is; callers are expected to terminate it with EndSequence.
func (e *Encoder) EncodeInfo(info *Info) error {
	e.uleb128(info.LineStart)
	e.uleb128(uint32(len(info.ParameterNames)))
	for _, name := range info.ParameterNames {
		if err := e.index(name, e.strings.StringIndex); err != nil {
			return err
		}
	}
	for _, ev := range info.Events {
		if err := e.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

// EncodeEvents encodes events into a new byte slice.
func EncodeEvents(events []Event, strings StringIndexer) ([]byte, error) {
	e := NewEncoder(strings)
	for _, ev := range events {
		if err := e.Encode(ev); err != nil {
			return nil, err
		}
	}
	return e.Bytes(), nil
}

func (e *Encoder) index(s OptString, lookup func(string) (uint32, bool)) error {
	if !s.Valid {
		e.uleb128(0)
		return nil
	}
	idx, ok := lookup(s.Value)
	if !ok {
		return errors.Wrapf(ErrNotIndexed, "%q", s.Value)
	}
	e.uleb128(idx + 1)
	return nil
}

func (e *Encoder) uleb128(v uint32) {
	e.buf = binary.AppendUvarint(e.buf, uint64(v))
}

func (e *Encoder) sleb128(v int32) {
	x := int64(v)
	for {
		b := byte(x & 0x7f)
		x >>= 7
		if (x == 0 && b&0x40 == 0) || (x == -1 && b&0x40 != 0) {
			e.buf = append(e.buf, b)
			return
		}
		e.buf = append(e.buf, b|0x80)
	}
}
