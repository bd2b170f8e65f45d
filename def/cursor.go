package def

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Cursor is a bounds-checked reader over an in-memory buffer.
//
// The buffer is never copied or modified; ReadBytes returns subslices of it.
// Reads past the end of the buffer fail with ErrTruncatedInput and leave the
// position untouched.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor returns a cursor positioned at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current absolute position.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the size of the underlying buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining returns the number of bytes left after the current position.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// Seek moves the cursor to the absolute position pos. Seeking exactly to the
// end of the buffer is allowed.
func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.buf) {
		return errors.Wrapf(ErrTruncatedInput, "seek to %d in %d byte buffer", pos, len(c.buf))
	}
	c.pos = pos
	return nil
}

func (c *Cursor) need(n int, what string) error {
	if n < 0 || n > c.Remaining() {
		return errors.Wrapf(ErrTruncatedInput, "reading %s (%d bytes) at %d; %d bytes left", what, n, c.pos, c.Remaining())
	}
	return nil
}

// ReadU8 reads a single byte.
func (c *Cursor) ReadU8() (uint8, error) {
	if err := c.need(1, "u8"); err != nil {
		return 0, err
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// ReadU16 reads a little-endian uint16.
func (c *Cursor) ReadU16() (uint16, error) {
	if err := c.need(2, "u16"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

// ReadU32 reads a little-endian uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	if err := c.need(4, "u32"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

// ReadI32 reads a little-endian int32.
func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

// ReadBytes returns the next n bytes as a subslice of the buffer.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if err := c.need(n, "bytes"); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n : c.pos+n]
	c.pos += n
	return b, nil
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int) error {
	if err := c.need(n, "padding"); err != nil {
		return err
	}
	c.pos += n
	return nil
}
