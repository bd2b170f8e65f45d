// Package lod reads LOD archives, the containers Heroes of Might and Magic
// III keeps its DEF files and other resources in.
//
// Entries are either stored as-is or zlib-compressed. The archive is read
// through an io.ReaderAt, so only the entry table is loaded by Open; entry
// data is read on demand.
package lod

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-homm3/def"
)

// Magic starts every LOD archive.
var Magic = [4]byte{'L', 'O', 'D', 0}

var ErrBadMagic = errors.New("lod: bad magic")

const (
	headerSize = 92
	entrySize  = 32
	nameSize   = 16

	// MaxEntries bounds the entry table. The shipped archives hold a few
	// thousand entries.
	MaxEntries = 1 << 16

	// MaxEntrySize bounds the uncompressed size of a single entry.
	MaxEntrySize = 1 << 28
)

type header struct {
	Magic   [4]byte
	Kind    uint32
	Count   uint32
	Padding [80]byte
}

type rawEntry struct {
	Name           [nameSize]byte
	Offset         uint32
	Size           uint32
	Kind           uint32
	CompressedSize uint32
}

// Entry describes one file in the archive.
type Entry struct {
	Name           string
	Offset         uint32
	Size           uint32 // uncompressed size
	Kind           uint32
	CompressedSize uint32 // 0 when the entry is stored uncompressed
}

// Compressed reports whether the entry is zlib-compressed.
func (e Entry) Compressed() bool { return e.CompressedSize != 0 }

// Archive is an opened LOD archive.
type Archive struct {
	r       io.ReaderAt
	size    int64
	kind    uint32
	entries []Entry
	byName  map[string]int
}

// Open reads the header and entry table of a LOD archive of the given size.
func Open(r io.ReaderAt, size int64) (*Archive, error) {
	var h header
	if err := binary.Read(io.NewSectionReader(r, 0, size), binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrap(err, "lod: reading header")
	}
	if h.Magic != Magic {
		return nil, errors.Wrapf(ErrBadMagic, "got %q", h.Magic[:])
	}
	if h.Count > MaxEntries || headerSize+int64(h.Count)*entrySize > size {
		return nil, errors.Errorf("lod: %d entries do not fit in %d bytes", h.Count, size)
	}

	raw := make([]rawEntry, h.Count)
	if err := binary.Read(io.NewSectionReader(r, headerSize, int64(h.Count)*entrySize), binary.LittleEndian, raw); err != nil {
		return nil, errors.Wrap(err, "lod: reading entry table")
	}

	a := &Archive{
		r:       r,
		size:    size,
		kind:    h.Kind,
		entries: make([]Entry, 0, len(raw)),
		byName:  make(map[string]int, len(raw)),
	}
	for _, e := range raw {
		name := def.DecodeName(e.Name[:])
		if name == "" {
			continue
		}
		a.byName[strings.ToLower(name)] = len(a.entries)
		a.entries = append(a.entries, Entry{
			Name:           name,
			Offset:         e.Offset,
			Size:           e.Size,
			Kind:           e.Kind,
			CompressedSize: e.CompressedSize,
		})
	}
	glog.V(1).Infof("lod: opened archive kind=%d with %d entries", h.Kind, len(a.entries))
	return a, nil
}

// Kind returns the archive kind from the header.
func (a *Archive) Kind() uint32 { return a.kind }

// Entries returns all entries in table order.
func (a *Archive) Entries() []Entry { return a.entries }

// Names returns entry names sorted alphabetically.
func (a *Archive) Names() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.Name
	}
	sort.Strings(names)
	return names
}

// Lookup finds an entry by name, ignoring case.
func (a *Archive) Lookup(name string) (Entry, bool) {
	i, ok := a.byName[strings.ToLower(name)]
	if !ok {
		return Entry{}, false
	}
	return a.entries[i], true
}

// ReadFile returns the uncompressed contents of the named entry. Missing
// entries yield an error wrapping fs.ErrNotExist.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	e, ok := a.Lookup(name)
	if !ok {
		return nil, errors.Wrapf(fs.ErrNotExist, "lod: %q", name)
	}

	if e.Size > MaxEntrySize {
		return nil, errors.Errorf("lod: %q declares %d bytes, more than %d", e.Name, e.Size, MaxEntrySize)
	}
	stored := int64(e.Size)
	if e.Compressed() {
		stored = int64(e.CompressedSize)
	}
	if int64(e.Offset)+stored > a.size {
		return nil, errors.Errorf("lod: %q at %d+%d extends past end of archive (%d)", e.Name, e.Offset, stored, a.size)
	}
	sr := io.NewSectionReader(a.r, int64(e.Offset), stored)

	if !e.Compressed() {
		buf := make([]byte, e.Size)
		if _, err := io.ReadFull(sr, buf); err != nil {
			return nil, errors.Wrapf(err, "lod: reading %q", e.Name)
		}
		return buf, nil
	}

	zr, err := zlib.NewReader(sr)
	if err != nil {
		return nil, errors.Wrapf(err, "lod: inflating %q", e.Name)
	}
	defer zr.Close()

	// Read at most one byte past the declared size. A stream that ends
	// before that has had its checksum verified.
	var b bytes.Buffer
	if _, err := b.ReadFrom(io.LimitReader(zr, int64(e.Size)+1)); err != nil {
		return nil, errors.Wrapf(err, "lod: inflating %q", e.Name)
	}
	switch {
	case b.Len() < int(e.Size):
		return nil, errors.Errorf("lod: %q inflates to %d bytes, want %d", e.Name, b.Len(), e.Size)
	case b.Len() > int(e.Size):
		return nil, errors.Errorf("lod: %q inflates to more than %d bytes", e.Name, e.Size)
	}
	buf := b.Bytes()
	glog.V(2).Infof("lod: inflated %q: %d -> %d bytes", e.Name, e.CompressedSize, e.Size)
	return buf, nil
}
