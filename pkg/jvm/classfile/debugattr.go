package classfile

import (
	"math"

	"github.com/pkg/errors"

	"github.com/grafana/dexdebug/pkg/jvm/debugtable"
)

const (
	AttrLineNumberTable        = "LineNumberTable"
	AttrLocalVariableTable     = "LocalVariableTable"
	AttrLocalVariableTypeTable = "LocalVariableTypeTable"
)

// Row sizes in bytes.
const (
	lineNumberRowSize = 4
	variableRowSize   = 10
)

var ErrValueOutOfRange = errors.New("value does not fit in u2")

// WriteDebugAttributes serializes every present table as an attribute_info
// structure. It returns the number of attributes written and their
// concatenated bytes; a method without debug tables yields zero attributes
// and no bytes.
func WriteDebugAttributes(pool ConstantPool, t debugtable.Tables) (int, []byte, error) {
	w := NewWriter()
	defer w.Release()

	count := 0
	if t.LineNumbers != nil {
		if err := writeLineNumberTable(w, pool, t.LineNumbers); err != nil {
			return 0, nil, err
		}
		count++
	}
	if t.LocalVariables != nil {
		if err := writeVariableTable(w, pool, AttrLocalVariableTable, t.LocalVariables); err != nil {
			return 0, nil, err
		}
		count++
	}
	if t.LocalVariableTypes != nil {
		if err := writeVariableTable(w, pool, AttrLocalVariableTypeTable, t.LocalVariableTypes); err != nil {
			return 0, nil, err
		}
		count++
	}
	if count == 0 {
		return 0, nil, nil
	}
	return count, w.Bytes(), nil
}

func writeHeader(w *Writer, pool ConstantPool, name string, rows, rowSize int) error {
	nameIdx, err := pool.UTF8(name)
	if err != nil {
		return errors.Wrapf(err, "interning attribute name %s", name)
	}
	if rows > math.MaxUint16 {
		return errors.Wrapf(ErrValueOutOfRange, "%s has %d entries", name, rows)
	}
	w.U16(nameIdx)
	w.U32(uint32(2 + rows*rowSize))
	w.U16(uint16(rows))
	return nil
}

func writeLineNumberTable(w *Writer, pool ConstantPool, rows []debugtable.LineNumberEntry) error {
	if err := writeHeader(w, pool, AttrLineNumberTable, len(rows), lineNumberRowSize); err != nil {
		return err
	}
	for i, e := range rows {
		if err := u2(w, e.StartPC, AttrLineNumberTable, i, "start_pc"); err != nil {
			return err
		}
		if err := u2(w, e.Line, AttrLineNumberTable, i, "line_number"); err != nil {
			return err
		}
	}
	return nil
}

func writeVariableTable(w *Writer, pool ConstantPool, attr string, rows []debugtable.VariableEntry) error {
	if err := writeHeader(w, pool, attr, len(rows), variableRowSize); err != nil {
		return err
	}
	for i, e := range rows {
		if err := u2(w, e.StartPC, attr, i, "start_pc"); err != nil {
			return err
		}
		if err := u2(w, e.Length, attr, i, "length"); err != nil {
			return err
		}
		nameIdx, err := pool.UTF8(e.Name)
		if err != nil {
			return errors.Wrapf(err, "%s[%d]: interning name", attr, i)
		}
		descIdx, err := pool.UTF8(e.Descriptor)
		if err != nil {
			return errors.Wrapf(err, "%s[%d]: interning descriptor", attr, i)
		}
		w.U16(nameIdx)
		w.U16(descIdx)
		w.U16(e.Slot)
	}
	return nil
}

func u2(w *Writer, v uint32, attr string, row int, field string) error {
	if v > math.MaxUint16 {
		return errors.Wrapf(ErrValueOutOfRange, "%s[%d].%s = %d", attr, row, field, v)
	}
	w.U16(uint16(v))
	return nil
}
