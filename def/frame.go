package def

import (
	"image"
	"image/color"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// FrameHeaderSize is the size of the header in front of every frame's pixel
// data. FrameHeader.Size counts it.
const FrameHeaderSize = 6 * 4

// FrameHeader precedes each frame's compressed pixels.
type FrameHeader struct {
	Size          uint32 // whole frame block, header included
	Compression   Compression
	Width, Height uint32
	Left, Top     int32 // position of the frame on the canvas
}

// Frame is a decoded frame: Width*Height palette indices, row after row.
type Frame struct {
	Width, Height int
	Left, Top     int
	Compression   Compression
	Pix           []byte
}

// ParseFrameHeader reads a frame header at the cursor's position.
func ParseFrameHeader(c *Cursor) (FrameHeader, error) {
	var fh FrameHeader
	var raw [4]uint32
	for i := range raw {
		v, err := c.ReadU32()
		if err != nil {
			return fh, errors.Wrapf(ErrTruncatedFrame, "reading frame header: %v", err)
		}
		raw[i] = v
	}
	left, err := c.ReadI32()
	if err != nil {
		return fh, errors.Wrapf(ErrTruncatedFrame, "reading frame margins: %v", err)
	}
	top, err := c.ReadI32()
	if err != nil {
		return fh, errors.Wrapf(ErrTruncatedFrame, "reading frame margins: %v", err)
	}
	fh = FrameHeader{
		Size:        raw[0],
		Compression: Compression(raw[1]),
		Width:       raw[2],
		Height:      raw[3],
		Left:        left,
		Top:         top,
	}
	return fh, nil
}

// DecodeFrame decodes the frame ref points at within buf.
func DecodeFrame(buf []byte, ref FrameRef) (*Frame, error) {
	c := NewCursor(buf)
	if err := c.Seek(int(ref.Offset)); err != nil {
		return nil, errors.Wrapf(ErrTruncatedFrame, "frame %q at %d: %v", ref.Name, ref.Offset, err)
	}
	fh, err := ParseFrameHeader(c)
	if err != nil {
		return nil, errors.Wrapf(err, "frame %q", ref.Name)
	}
	if !fh.Compression.Valid() {
		return nil, errors.Wrapf(ErrUnknownCompression, "frame %q: variant %d", ref.Name, uint32(fh.Compression))
	}
	if fh.Size < FrameHeaderSize {
		return nil, errors.Wrapf(ErrTruncatedFrame, "frame %q: declared size %d is smaller than its header", ref.Name, fh.Size)
	}
	payload, err := c.ReadBytes(int(fh.Size - FrameHeaderSize))
	if err != nil {
		return nil, errors.Wrapf(ErrTruncatedFrame, "frame %q: %v", ref.Name, err)
	}

	glog.V(3).Infof("def: frame %q: %s %dx%d at (%d,%d), %d payload bytes", ref.Name, fh.Compression, fh.Width, fh.Height, fh.Left, fh.Top, len(payload))

	if uint64(fh.Width)*uint64(fh.Height) > MaxFramePixels {
		return nil, errors.Wrapf(ErrDecompressionOverrun, "frame %q: %dx%d exceeds %d pixels", ref.Name, fh.Width, fh.Height, MaxFramePixels)
	}
	pix, err := Decompress(fh.Compression, payload, int(fh.Width), int(fh.Height))
	if err != nil {
		return nil, errors.Wrapf(err, "frame %q", ref.Name)
	}
	return &Frame{
		Width:       int(fh.Width),
		Height:      int(fh.Height),
		Left:        int(fh.Left),
		Top:         int(fh.Top),
		Compression: fh.Compression,
		Pix:         pix,
	}, nil
}

// Bounds returns the rectangle the frame covers on the canvas.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(f.Left, f.Top, f.Left+f.Width, f.Top+f.Height)
}

// Paletted wraps the frame's pixels as an image with its own origin at (0, 0).
// The pixel buffer is shared, not copied.
func (f *Frame) Paletted(pal color.Palette) *image.Paletted {
	return &image.Paletted{
		Pix:     f.Pix,
		Stride:  f.Width,
		Rect:    image.Rect(0, 0, f.Width, f.Height),
		Palette: pal,
	}
}

// Canvas draws the frame at its margins onto a fresh canvas of the size given
// in h. Pixels outside the frame are index 0; parts of the frame falling
// outside the canvas are clipped. Canvases larger than MaxFramePixels fail
// with ErrDecompressionOverrun.
func (f *Frame) Canvas(h Header, pal color.Palette) (*image.Paletted, error) {
	if uint64(h.Width)*uint64(h.Height) > MaxFramePixels {
		return nil, errors.Wrapf(ErrDecompressionOverrun, "canvas %dx%d exceeds %d pixels", h.Width, h.Height, MaxFramePixels)
	}
	canvas := image.NewPaletted(image.Rect(0, 0, int(h.Width), int(h.Height)), pal)
	r := f.Bounds().Intersect(canvas.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := f.Pix[(y-f.Top)*f.Width+(r.Min.X-f.Left) : (y-f.Top)*f.Width+(r.Max.X-f.Left)]
		copy(canvas.Pix[canvas.PixOffset(r.Min.X, y):], src)
	}
	return canvas, nil
}
