package debuginfo

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrTruncated    = errors.New("unexpected end of debug info")
	ErrOverflow     = errors.New("leb128 value overflows 32 bits")
	ErrUnresolvable = errors.New("unresolvable pool index")
)

// DecodeError is returned for any malformed debug info stream. The stream
// cannot be resynchronised after one, so it is always fatal for the
// method being decoded.
type DecodeError struct {
	// Offset is the byte offset of the value that failed to decode.
	Offset int
	Op     string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("debug info: %s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
