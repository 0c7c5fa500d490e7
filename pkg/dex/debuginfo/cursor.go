package debuginfo

import (
	"math"

	"github.com/dennwc/varint"
)

// Cursor reads the primitive value encodings used by debug_info_item.
// All reads advance the cursor; failed reads leave it unchanged.
type Cursor struct {
	data []byte
	pos  int
}

func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

func (c *Cursor) Offset() int    { return c.pos }
func (c *Cursor) Remaining() int { return len(c.data) - c.pos }

func (c *Cursor) U8() (uint8, error) {
	if c.pos >= len(c.data) {
		return 0, c.fail("read u8", ErrTruncated)
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

// ULEB128 reads an unsigned LEB128 value of at most five bytes.
func (c *Cursor) ULEB128() (uint32, error) {
	v, n := varint.Uvarint(c.data[c.pos:])
	switch {
	case n == 0:
		return 0, c.fail("read uleb128", ErrTruncated)
	case n < 0, n > varint.MaxLen32, v > math.MaxUint32:
		return 0, c.fail("read uleb128", ErrOverflow)
	}
	c.pos += n
	return uint32(v), nil
}

// SLEB128 reads a sign-extended LEB128 value of at most five bytes.
func (c *Cursor) SLEB128() (int32, error) {
	var (
		v     int64
		shift uint
	)
	for i := c.pos; i < len(c.data); i++ {
		b := c.data[i]
		v |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 != 0 {
			if i-c.pos+1 >= varint.MaxLen32 {
				return 0, c.fail("read sleb128", ErrOverflow)
			}
			continue
		}
		if shift < 64 && b&0x40 != 0 {
			v |= -1 << shift
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, c.fail("read sleb128", ErrOverflow)
		}
		c.pos = i + 1
		return int32(v), nil
	}
	return 0, c.fail("read sleb128", ErrTruncated)
}

// ULEB128p1 reads an index biased by one. ok is false for the reserved
// NO_INDEX value.
func (c *Cursor) ULEB128p1() (idx uint32, ok bool, err error) {
	v, err := c.ULEB128()
	if err != nil {
		return 0, false, err
	}
	if v == 0 {
		return 0, false, nil
	}
	return v - 1, true, nil
}

func (c *Cursor) fail(op string, err error) error {
	return &DecodeError{Offset: c.pos, Op: op, Err: err}
}
