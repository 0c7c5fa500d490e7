package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/grafana/dexdebug/pkg/dex"
	"github.com/grafana/dexdebug/pkg/dex/debuginfo"
	"github.com/grafana/dexdebug/pkg/jvm/debugtable"
	"github.com/grafana/dexdebug/pkg/translate"
)

// Fixture describes the methods of one dex file together with the
// position and register maps produced by the instruction translator.
type Fixture struct {
	Strings []string        `yaml:"strings"`
	Types   []string        `yaml:"types"`
	Methods []MethodFixture `yaml:"methods"`
}

type MethodFixture struct {
	Name      string `yaml:"name"`
	LineStart uint32 `yaml:"line_start"`
	// Exactly one of DebugInfo (event stream only), DebugInfoItem (header
	// and stream) and Events is set.
	DebugInfo       string            `yaml:"debug_info,omitempty"`
	DebugInfoItem   string            `yaml:"debug_info_item,omitempty"`
	Events          []EventFixture    `yaml:"events,omitempty"`
	DebugInfoOffset uint32            `yaml:"debug_info_offset,omitempty"`
	Positions       []uint32          `yaml:"positions,omitempty"`
	CodeLength      *uint32           `yaml:"code_length,omitempty"`
	Registers       []RegisterFixture `yaml:"registers,omitempty"`
}

type RegisterFixture struct {
	Register      uint32 `yaml:"register"`
	Discriminator string `yaml:"discriminator,omitempty"`
	Slot          uint16 `yaml:"slot"`
}

// EventFixture is a symbolic debug event, e.g.
//
//	- {op: start_local, register: 1, name: x, type: I}
//	- {op: special, addr: 3, line: 1}
type EventFixture struct {
	Op        string  `yaml:"op"`
	Delta     int64   `yaml:"delta,omitempty"`
	Register  uint32  `yaml:"register,omitempty"`
	Name      *string `yaml:"name,omitempty"`
	Type      *string `yaml:"type,omitempty"`
	Signature *string `yaml:"signature,omitempty"`
	Addr      uint32  `yaml:"addr,omitempty"`
	Line      int32   `yaml:"line,omitempty"`
}

func loadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFixture(data)
}

func parseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse fixture")
	}
	for i, m := range f.Methods {
		if err := m.Validate(); err != nil {
			return nil, errors.Wrapf(err, "methods[%d]", i)
		}
	}
	return &f, nil
}

func (m *MethodFixture) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	set := 0
	for _, present := range []bool{m.DebugInfo != "", m.DebugInfoItem != "", len(m.Events) > 0} {
		if present {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("%s: only one of debug_info, debug_info_item and events may be set", m.Name)
	}
	if m.CodeLength != nil && len(m.Positions) > 0 && int(*m.CodeLength) < len(m.Positions) {
		return fmt.Errorf("%s: code_length %d is shorter than positions", m.Name, *m.CodeLength)
	}
	return nil
}

func (f *Fixture) stringTable() *dex.StringTable {
	return dex.NewStringTable(f.Strings, f.Types)
}

// Item returns the complete debug_info_item of the method, or nil if the
// method has no debug info.
func (m *MethodFixture) Item(table *dex.StringTable) ([]byte, error) {
	switch {
	case m.DebugInfoItem != "":
		return decodeHex(m.DebugInfoItem)
	case m.DebugInfo != "":
		stream, err := decodeHex(m.DebugInfo)
		if err != nil {
			return nil, err
		}
		enc := debuginfo.NewEncoder(table)
		if err := enc.EncodeInfo(&debuginfo.Info{LineStart: m.LineStart}); err != nil {
			return nil, err
		}
		return append(enc.Bytes(), stream...), nil
	case len(m.Events) > 0:
		events, err := m.DebugEvents()
		if err != nil {
			return nil, err
		}
		enc := debuginfo.NewEncoder(table)
		if err := enc.EncodeInfo(&debuginfo.Info{LineStart: m.LineStart, Events: events}); err != nil {
			return nil, errors.Wrapf(err, "encoding %s", m.Name)
		}
		return enc.Bytes(), nil
	}
	return nil, nil
}

func (m *MethodFixture) DebugEvents() ([]debuginfo.Event, error) {
	events := make([]debuginfo.Event, 0, len(m.Events))
	for i, e := range m.Events {
		ev, err := e.Event()
		if err != nil {
			return nil, errors.Wrapf(err, "%s: events[%d]", m.Name, i)
		}
		events = append(events, ev)
	}
	return events, nil
}

func (m *MethodFixture) Method(table *dex.StringTable) (translate.Method, error) {
	item, err := m.Item(table)
	if err != nil {
		return translate.Method{}, errors.Wrapf(err, "method %s", m.Name)
	}
	positions := debugtable.PositionMap{Targets: m.Positions}
	switch {
	case m.CodeLength != nil:
		positions.CodeLength = *m.CodeLength
	default:
		positions.CodeLength = uint32(len(m.Positions))
	}
	if len(positions.Targets) == 0 {
		// Without an instruction translator every code unit maps to itself.
		positions.Targets = make([]uint32, positions.CodeLength)
		for i := range positions.Targets {
			positions.Targets[i] = uint32(i)
		}
	}
	bindings := make(map[debugtable.RegisterKey]uint16, len(m.Registers))
	for _, r := range m.Registers {
		bindings[debugtable.RegisterKey{Register: r.Register, Discriminator: r.Discriminator}] = r.Slot
	}
	return translate.Method{
		Name:            m.Name,
		DebugInfoOffset: m.DebugInfoOffset,
		DebugInfo:       item,
		Positions:       positions,
		Registers:       debugtable.NewRegisterMap(bindings),
	}, nil
}

func optString(s *string) debuginfo.OptString {
	if s == nil {
		return debuginfo.None
	}
	return debuginfo.Some(*s)
}

func (e EventFixture) Event() (debuginfo.Event, error) {
	switch strings.ToLower(e.Op) {
	case "end_sequence":
		return debuginfo.EndSequence{}, nil
	case "advance_pc":
		if e.Delta < 0 {
			return nil, fmt.Errorf("advance_pc delta %d is negative", e.Delta)
		}
		return debuginfo.AdvancePC{Delta: uint32(e.Delta)}, nil
	case "advance_line":
		return debuginfo.AdvanceLine{Delta: int32(e.Delta)}, nil
	case "start_local":
		return debuginfo.StartLocal{Register: e.Register, Name: optString(e.Name), Type: optString(e.Type)}, nil
	case "start_local_extended":
		return debuginfo.StartLocalExtended{
			Register:  e.Register,
			Name:      optString(e.Name),
			Type:      optString(e.Type),
			Signature: optString(e.Signature),
		}, nil
	case "end_local":
		return debuginfo.EndLocal{Register: e.Register}, nil
	case "restart_local":
		return debuginfo.RestartLocal{Register: e.Register}, nil
	case "set_prologue_end":
		return debuginfo.SetPrologueEnd{}, nil
	case "set_epilogue_begin":
		return debuginfo.SetEpilogueBegin{}, nil
	case "set_file":
		return debuginfo.SetFile{Name: optString(e.Name)}, nil
	case "special":
		s, ok := debuginfo.NewSpecial(e.Addr, e.Line)
		if !ok {
			return nil, fmt.Errorf("special addr+%d line%+d is not encodable", e.Addr, e.Line)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown op %q", e.Op)
}

func decodeHex(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "invalid hex")
	}
	return b, nil
}
