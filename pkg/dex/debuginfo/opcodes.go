// Package debuginfo decodes and encodes the per-method debug_info_item
// state machine program of a dex file.
//
// The program is a sequence of one-byte opcodes, some followed by LEB128
// operands. Opcodes at or above FirstSpecial are "special": a single byte
// that advances both the address and line registers and emits a position
// entry.
package debuginfo

import "fmt"

type Opcode uint8

const (
	OpEndSequence      Opcode = 0x00
	OpAdvancePC        Opcode = 0x01
	OpAdvanceLine      Opcode = 0x02
	OpStartLocal       Opcode = 0x03
	OpStartLocalExt    Opcode = 0x04
	OpEndLocal         Opcode = 0x05
	OpRestartLocal     Opcode = 0x06
	OpSetPrologueEnd   Opcode = 0x07
	OpSetEpilogueBegin Opcode = 0x08
	OpSetFile          Opcode = 0x09

	// FirstSpecial is the smallest special opcode.
	FirstSpecial Opcode = 0x0a
)

// Special opcode parameters: adjusted = op - FirstSpecial,
// line += LineBase + adjusted%LineRange, address += adjusted/LineRange.
const (
	LineBase  = -4
	LineRange = 15
)

var opcodeNames = [...]string{
	OpEndSequence:      "DBG_END_SEQUENCE",
	OpAdvancePC:        "DBG_ADVANCE_PC",
	OpAdvanceLine:      "DBG_ADVANCE_LINE",
	OpStartLocal:       "DBG_START_LOCAL",
	OpStartLocalExt:    "DBG_START_LOCAL_EXTENDED",
	OpEndLocal:         "DBG_END_LOCAL",
	OpRestartLocal:     "DBG_RESTART_LOCAL",
	OpSetPrologueEnd:   "DBG_SET_PROLOGUE_END",
	OpSetEpilogueBegin: "DBG_SET_EPILOGUE_BEGIN",
	OpSetFile:          "DBG_SET_FILE",
}

func (o Opcode) IsSpecial() bool { return o >= FirstSpecial }

func (o Opcode) String() string {
	if o.IsSpecial() {
		return fmt.Sprintf("DBG_SPECIAL(0x%02x)", uint8(o))
	}
	return opcodeNames[o]
}
