package def

import (
	"bytes"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// NameSize is the width of the NUL-padded frame name field.
const NameSize = 13

const (
	groupHeaderSize = 4 * 4
	frameRefSize    = NameSize + 4
)

// Group is one animation: an ordered list of frames. Order is playback order.
type Group struct {
	ID     uint32
	Frames []FrameRef
}

// FrameRef names a frame and locates its header in the file.
type FrameRef struct {
	Name   string
	Offset uint32
}

// DecodeName turns a fixed-width name field into a string, stopping at the
// first NUL. The game stores names in the Windows-1252 code page, in DEF
// group tables and LOD entry tables alike.
func DecodeName(b []byte) string {
	if i := bytes.IndexByte(b, 0); i != -1 {
		b = b[:i]
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// ParseGroups reads the group count and every group that follows.
//
// Any failure, including running off the end of the buffer, is reported as
// ErrInvalidGroupTable: the resource cannot be used without its table.
func ParseGroups(c *Cursor) ([]Group, error) {
	count, err := c.ReadU32()
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidGroupTable, "reading group count: %v", err)
	}
	if int64(count)*groupHeaderSize > int64(c.Remaining()) {
		return nil, errors.Wrapf(ErrInvalidGroupTable, "%d groups declared, only %d bytes left", count, c.Remaining())
	}

	groups := make([]Group, count)
	for i := range groups {
		if err := parseGroup(c, &groups[i]); err != nil {
			return nil, errors.Wrapf(err, "group %d", i)
		}
		glog.V(2).Infof("def: group %d: id=%d frames=%d", i, groups[i].ID, len(groups[i].Frames))
	}
	return groups, nil
}

func parseGroup(c *Cursor, g *Group) error {
	var hdr [4]uint32 // id, frame count, two reserved words
	for i := range hdr {
		v, err := c.ReadU32()
		if err != nil {
			return errors.Wrapf(ErrInvalidGroupTable, "reading group header: %v", err)
		}
		hdr[i] = v
	}
	g.ID = hdr[0]
	n := hdr[1]

	if int64(n)*frameRefSize > int64(c.Remaining()) {
		return errors.Wrapf(ErrInvalidGroupTable, "%d frames declared, only %d bytes left", n, c.Remaining())
	}

	names, err := c.ReadBytes(int(n) * NameSize)
	if err != nil {
		return errors.Wrapf(ErrInvalidGroupTable, "reading frame names: %v", err)
	}
	g.Frames = make([]FrameRef, n)
	for i := range g.Frames {
		g.Frames[i].Name = DecodeName(names[i*NameSize : (i+1)*NameSize])
	}
	for i := range g.Frames {
		off, err := c.ReadU32()
		if err != nil {
			return errors.Wrapf(ErrInvalidGroupTable, "reading frame offsets: %v", err)
		}
		g.Frames[i].Offset = off
	}
	return nil
}
