// Package deftest assembles DEF files in memory for tests.
//
// Frame payloads are written as given; the package lays out the container
// around them and does not compress anything.
package deftest

import (
	"bytes"
	"encoding/binary"

	"badc0de.net/pkg/go-homm3/def"
)

// Frame describes one frame block.
type Frame struct {
	Name          string
	Compression   def.Compression
	Width, Height uint32
	Left, Top     int32
	Payload       []byte

	// Size overrides the declared block size when non-zero.
	Size uint32
}

// Group describes one animation group.
type Group struct {
	ID     uint32
	Frames []Frame
}

// File describes a whole DEF file.
type File struct {
	Type          def.ResourceType
	Width, Height uint32
	FrameCount    uint32
	Palette       def.Palette
	Groups        []Group
}

// Bytes lays out the file. Frame blocks follow the group table in table
// order.
func (f *File) Bytes() []byte {
	var b bytes.Buffer
	put := func(v interface{}) { binary.Write(&b, binary.LittleEndian, v) }

	put([]uint32{uint32(f.Type), f.Width, f.Height, f.FrameCount})
	for _, c := range f.Palette {
		b.Write([]byte{c.R, c.G, c.B})
	}

	// The table's size is known up front, so frame offsets can be computed
	// before anything is written.
	tableEnd := b.Len() + 4
	for _, g := range f.Groups {
		tableEnd += 16 + len(g.Frames)*(def.NameSize+4)
	}
	var offsets [][]uint32
	next := uint32(tableEnd)
	for _, g := range f.Groups {
		var offs []uint32
		for _, fr := range g.Frames {
			offs = append(offs, next)
			next += def.FrameHeaderSize + uint32(len(fr.Payload))
		}
		offsets = append(offsets, offs)
	}

	put(uint32(len(f.Groups)))
	for gi, g := range f.Groups {
		put([]uint32{g.ID, uint32(len(g.Frames)), 0, 0})
		for _, fr := range g.Frames {
			var name [def.NameSize]byte
			copy(name[:], fr.Name)
			b.Write(name[:])
		}
		put(offsets[gi])
	}

	for _, g := range f.Groups {
		for _, fr := range g.Frames {
			b.Write(FrameBlock(fr))
		}
	}
	return b.Bytes()
}

// FrameBlock returns a single frame header followed by its payload.
func FrameBlock(fr Frame) []byte {
	var b bytes.Buffer
	size := fr.Size
	if size == 0 {
		size = def.FrameHeaderSize + uint32(len(fr.Payload))
	}
	binary.Write(&b, binary.LittleEndian, []uint32{size, uint32(fr.Compression), fr.Width, fr.Height})
	binary.Write(&b, binary.LittleEndian, []int32{fr.Left, fr.Top})
	b.Write(fr.Payload)
	return b.Bytes()
}

// Fill returns n copies of v.
func Fill(v byte, n int) []byte {
	return bytes.Repeat([]byte{v}, n)
}

// Simple returns a creature resource of one group holding one raw w×h frame
// filled with v.
func Simple(w, h uint32, v byte) *File {
	return &File{
		Type:       def.TypeCreature,
		Width:      w,
		Height:     h,
		FrameCount: 1,
		Groups: []Group{{
			ID: 0,
			Frames: []Frame{{
				Name:        "frame0.pcx",
				Compression: def.CompressionRaw,
				Width:       w,
				Height:      h,
				Payload:     Fill(v, int(w*h)),
			}},
		}},
	}
}
