package debuginfo

import (
	"io"
	"iter"

	"github.com/pkg/errors"
)

// StringResolver resolves string_ids and type_ids indices of the dex file
// the debug info belongs to.
type StringResolver interface {
	ResolveString(idx uint32) (string, error)
	ResolveType(idx uint32) (string, error)
}

// Decoder reads debug events one at a time. It stops after the first
// EndSequence event.
type Decoder struct {
	c       *Cursor
	strings StringResolver
	done    bool
}

func NewDecoder(c *Cursor, strings StringResolver) *Decoder {
	return &Decoder{c: c, strings: strings}
}

// Offset returns the offset of the next opcode byte.
func (d *Decoder) Offset() int { return d.c.Offset() }

// Next returns the next event. After EndSequence has been returned every
// subsequent call returns io.EOF.
func (d *Decoder) Next() (Event, error) {
	if d.done {
		return nil, io.EOF
	}
	b, err := d.c.U8()
	if err != nil {
		return nil, err
	}
	op := Opcode(b)
	switch op {
	case OpEndSequence:
		d.done = true
		return EndSequence{}, nil

	case OpAdvancePC:
		delta, err := d.c.ULEB128()
		if err != nil {
			return nil, err
		}
		return AdvancePC{Delta: delta}, nil

	case OpAdvanceLine:
		delta, err := d.c.SLEB128()
		if err != nil {
			return nil, err
		}
		return AdvanceLine{Delta: delta}, nil

	case OpStartLocal:
		reg, err := d.c.ULEB128()
		if err != nil {
			return nil, err
		}
		name, err := d.resolve("resolve local name", d.strings.ResolveString)
		if err != nil {
			return nil, err
		}
		typ, err := d.resolve("resolve local type", d.strings.ResolveType)
		if err != nil {
			return nil, err
		}
		return StartLocal{Register: reg, Name: name, Type: typ}, nil

	case OpStartLocalExt:
		reg, err := d.c.ULEB128()
		if err != nil {
			return nil, err
		}
		name, err := d.resolve("resolve local name", d.strings.ResolveString)
		if err != nil {
			return nil, err
		}
		typ, err := d.resolve("resolve local type", d.strings.ResolveType)
		if err != nil {
			return nil, err
		}
		sig, err := d.resolve("resolve local signature", d.strings.ResolveString)
		if err != nil {
			return nil, err
		}
		return StartLocalExtended{Register: reg, Name: name, Type: typ, Signature: sig}, nil

	case OpEndLocal:
		reg, err := d.c.ULEB128()
		if err != nil {
			return nil, err
		}
		return EndLocal{Register: reg}, nil

	case OpRestartLocal:
		reg, err := d.c.ULEB128()
		if err != nil {
			return nil, err
		}
		return RestartLocal{Register: reg}, nil

	case OpSetPrologueEnd:
		return SetPrologueEnd{}, nil

	case OpSetEpilogueBegin:
		return SetEpilogueBegin{}, nil

	case OpSetFile:
		name, err := d.resolve("resolve source file", d.strings.ResolveString)
		if err != nil {
			return nil, err
		}
		return SetFile{Name: name}, nil

	default:
		return Special{Op: op}, nil
	}
}

func (d *Decoder) resolve(op string, fn func(uint32) (string, error)) (OptString, error) {
	offset := d.c.Offset()
	idx, ok, err := d.c.ULEB128p1()
	if err != nil || !ok {
		return None, err
	}
	s, err := fn(idx)
	if err != nil {
		return None, &DecodeError{Offset: offset, Op: op, Err: errors.Wrapf(ErrUnresolvable, "index %d: %v", idx, err)}
	}
	return Some(s), nil
}

// Events yields the remaining events in stream order. Iteration stops
// after EndSequence or at the first error, which is yielded with a nil
// event.
func (d *Decoder) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			e, err := d.Next()
			if err == io.EOF {
				return
			}
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}

// Decode decodes a complete event stream, including the terminating
// EndSequence.
func Decode(data []byte, strings StringResolver) ([]Event, error) {
	return decodeEvents(NewDecoder(NewCursor(data), strings))
}

func decodeEvents(d *Decoder) ([]Event, error) {
	events := make([]Event, 0, 16)
	for e, err := range d.Events() {
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// Info is a decoded debug_info_item.
type Info struct {
	LineStart      uint32
	ParameterNames []OptString
	Events         []Event
}

// ParseInfo decodes a complete debug_info_item: the header followed by the
// event stream.
func ParseInfo(data []byte, strings StringResolver) (*Info, error) {
	c := NewCursor(data)
	lineStart, err := c.ULEB128()
	if err != nil {
		return nil, err
	}
	n, err := c.ULEB128()
	if err != nil {
		return nil, err
	}
	if int(n) > c.Remaining() {
		// Every parameter name takes at least one byte.
		return nil, &DecodeError{Offset: c.Offset(), Op: "read parameters_size", Err: ErrTruncated}
	}
	d := NewDecoder(c, strings)
	info := &Info{
		LineStart:      lineStart,
		ParameterNames: make([]OptString, 0, n),
	}
	for i := uint32(0); i < n; i++ {
		name, err := d.resolve("resolve parameter name", strings.ResolveString)
		if err != nil {
			return nil, err
		}
		info.ParameterNames = append(info.ParameterNames, name)
	}
	if info.Events, err = decodeEvents(d); err != nil {
		return nil, err
	}
	return info, nil
}
