package classfile

import (
	"sync"

	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
)

var (
	ErrPoolFull      = errors.New("constant pool is full")
	ErrStringTooLong = errors.New("string exceeds CONSTANT_Utf8 length limit")
)

// maxPoolIndex is the largest usable index: constant_pool_count is a u2 and
// entry indices start at 1.
const maxPoolIndex = 0xfffe

// ConstantPool interns strings as CONSTANT_Utf8 entries.
type ConstantPool interface {
	UTF8(s string) (uint16, error)
}

// Pool is an in-memory ConstantPool holding only CONSTANT_Utf8 entries.
// It is safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	entries []string
	index   *swiss.Map[string, uint16]
}

func NewPool() *Pool {
	return &Pool{index: swiss.NewMap[string, uint16](64)}
}

func (p *Pool) UTF8(s string) (uint16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx, ok := p.index.Get(s); ok {
		return idx, nil
	}
	if n := modifiedUTF8Len(s); n > 0xffff {
		return 0, errors.Wrapf(ErrStringTooLong, "%d bytes", n)
	}
	if len(p.entries) >= maxPoolIndex {
		return 0, ErrPoolFull
	}
	p.entries = append(p.entries, s)
	idx := uint16(len(p.entries))
	p.index.Put(s, idx)
	return idx, nil
}

// Lookup returns the string at a 1-based pool index.
func (p *Pool) Lookup(idx uint16) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx == 0 || int(idx) > len(p.entries) {
		return "", false
	}
	return p.entries[idx-1], true
}

// Len returns the number of entries.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// modifiedUTF8Len returns the length of s in the class file's modified
// UTF-8: NUL takes two bytes and supplementary characters are written as
// surrogate pairs of three bytes each.
func modifiedUTF8Len(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r == 0:
			n += 2
		case r < 0x80:
			n++
		case r < 0x800:
			n += 2
		case r < 0x10000:
			n += 3
		default:
			n += 6
		}
	}
	return n
}
