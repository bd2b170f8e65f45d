package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bradfitz/iter"
	"github.com/dustin/go-humanize"

	"badc0de.net/pkg/go-homm3/def"
	"badc0de.net/pkg/go-homm3/lod"
)

func dumpHeader(w io.Writer, res *def.Resource) {
	h := res.Header()
	fmt.Fprintf(w, "type=%s (0x%02x)\n", h.Type, uint32(h.Type))
	fmt.Fprintf(w, "width=%d\n", h.Width)
	fmt.Fprintf(w, "height=%d\n", h.Height)
	fmt.Fprintf(w, "frames=%d\n", h.FrameCount)
	pal := res.Palette()
	for i := range iter.N(def.PaletteSize) {
		fmt.Fprintf(w, "palette[%d]=%d,%d,%d\n", i, pal[i].R, pal[i].G, pal[i].B)
	}
}

// frameSize returns the declared size of a frame block, or 0 if its header
// cannot be read.
func frameSize(res *def.Resource, ref def.FrameRef) uint64 {
	c := def.NewCursor(res.Bytes())
	if err := c.Seek(int(ref.Offset)); err != nil {
		return 0
	}
	fh, err := def.ParseFrameHeader(c)
	if err != nil {
		return 0
	}
	return uint64(fh.Size)
}

func listGroups(w io.Writer, res *def.Resource) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	for gi, g := range res.Groups() {
		fmt.Fprintf(tw, "group %d\tid %d\t%d frames\t\n", gi, g.ID, len(g.Frames))
		for fi, ref := range g.Frames {
			fmt.Fprintf(tw, "  %d\t%s\t@%d\t%s\n", fi, ref.Name, ref.Offset, humanize.Bytes(frameSize(res, ref)))
		}
	}
}

func listArchive(w io.Writer, a *lod.Archive) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	for _, e := range a.Entries() {
		packed := "stored"
		if e.Compressed() {
			packed = humanize.Bytes(uint64(e.CompressedSize))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", e.Name, humanize.Bytes(uint64(e.Size)), packed)
	}
}
