package def

import (
	"fmt"

	"github.com/pkg/errors"
)

// Compression selects how a frame's pixels are packed.
type Compression uint32

const (
	CompressionRaw      Compression = 0 // w*h bytes, row after row
	CompressionRowTable Compression = 1 // per-row (code, count) pairs
	CompressionSegments Compression = 2 // marker list, then marker runs and literals
	CompressionLines    Compression = 3 // marker list, then length-prefixed rows
)

func (c Compression) String() string {
	switch c {
	case CompressionRaw:
		return "raw"
	case CompressionRowTable:
		return "row table"
	case CompressionSegments:
		return "segments"
	case CompressionLines:
		return "lines"
	}
	return fmt.Sprintf("unknown(%d)", uint32(c))
}

// Valid reports whether c is one of the four defined variants.
func (c Compression) Valid() bool { return c <= CompressionLines }

// LiteralCode marks a literal run in CompressionRowTable rows.
const LiteralCode = 0xFF

// MaxFramePixels bounds the output of a single frame.
const MaxFramePixels = 1 << 24

// Decompress unpacks payload into exactly width*height palette indices.
//
// No variant ever produces more than width*height bytes; input that would
// make it do so fails with ErrDecompressionOverrun.
func Decompress(variant Compression, payload []byte, width, height int) ([]byte, error) {
	if width < 0 || height < 0 {
		return nil, errors.Wrapf(ErrDecompressionOverrun, "negative size %dx%d", width, height)
	}
	if int64(width)*int64(height) > MaxFramePixels {
		return nil, errors.Wrapf(ErrDecompressionOverrun, "frame %dx%d exceeds %d pixels", width, height, MaxFramePixels)
	}

	switch variant {
	case CompressionRaw:
		return decompressRaw(payload, width, height)
	case CompressionRowTable:
		return decompressRowTable(payload, width, height)
	case CompressionSegments:
		return decompressSegments(payload, width, height)
	case CompressionLines:
		return decompressLines(payload, width, height)
	}
	return nil, errors.Wrapf(ErrUnknownCompression, "variant %d", uint32(variant))
}

func decompressRaw(payload []byte, width, height int) ([]byte, error) {
	n := width * height
	switch {
	case len(payload) < n:
		return nil, errors.Wrapf(ErrTruncatedFrame, "raw payload is %d bytes, want %d", len(payload), n)
	case len(payload) > n:
		return nil, errors.Wrapf(ErrDecompressionOverrun, "raw payload is %d bytes, want %d", len(payload), n)
	}
	pix := make([]byte, n)
	copy(pix, payload)
	return pix, nil
}

// rowWriter fills a fixed-size pixel buffer one row at a time.
type rowWriter struct {
	pix   []byte
	width int
	row   int // start of the current row
	x     int // pixels written in the current row
}

func newRowWriter(width, height int) *rowWriter {
	return &rowWriter{pix: make([]byte, width*height), width: width}
}

func (w *rowWriter) space() int { return w.width - w.x }

func (w *rowWriter) fill(v byte, n int) {
	s := w.pix[w.row+w.x : w.row+w.x+n]
	for i := range s {
		s[i] = v
	}
	w.x += n
}

func (w *rowWriter) copy(b []byte) {
	w.x += copy(w.pix[w.row+w.x:w.row+w.width], b)
}

// nextRow moves to the following row. Unwritten pixels of the finished row
// keep index 0.
func (w *rowWriter) nextRow() {
	w.row += w.width
	w.x = 0
}

func decompressRowTable(payload []byte, width, height int) ([]byte, error) {
	c := NewCursor(payload)
	w := newRowWriter(width, height)

	for y := 0; y < height; y++ {
		for w.space() > 0 {
			code, err := c.ReadU8()
			if err != nil {
				return nil, errors.Wrapf(ErrTruncatedFrame, "row %d: reading code at x=%d", y, w.x)
			}
			cnt, err := c.ReadU8()
			if err != nil {
				return nil, errors.Wrapf(ErrTruncatedFrame, "row %d: reading count at x=%d", y, w.x)
			}
			n := int(cnt)
			if code == LiteralCode {
				raw, err := c.ReadBytes(n)
				if err != nil {
					return nil, errors.Wrapf(ErrTruncatedFrame, "row %d: literal of %d bytes at x=%d", y, n, w.x)
				}
				w.copy(raw)
				continue
			}
			if n > w.space() {
				n = w.space()
			}
			w.fill(code, n)
		}
		w.nextRow()
	}
	return w.pix, nil
}

// readMarkers reads the marker list that opens CompressionSegments and
// CompressionLines payloads.
func readMarkers(c *Cursor) (*[256]bool, error) {
	n, err := c.ReadU8()
	if err != nil {
		return nil, errors.Wrap(ErrTruncatedFrame, "reading marker count")
	}
	list, err := c.ReadBytes(int(n))
	if err != nil {
		return nil, errors.Wrapf(ErrTruncatedFrame, "reading %d markers", n)
	}
	var markers [256]bool
	for _, m := range list {
		markers[m] = true
	}
	return &markers, nil
}

func decompressSegments(payload []byte, width, height int) ([]byte, error) {
	c := NewCursor(payload)
	markers, err := readMarkers(c)
	if err != nil {
		return nil, err
	}

	pix := make([]byte, width*height)
	out := 0
	for out < len(pix) {
		b, err := c.ReadU8()
		if err != nil {
			return nil, errors.Wrapf(ErrTruncatedFrame, "payload ended after %d of %d pixels", out, len(pix))
		}
		if !markers[b] {
			pix[out] = b
			out++
			continue
		}
		cnt, err := c.ReadU8()
		if err != nil {
			return nil, errors.Wrapf(ErrTruncatedFrame, "marker 0x%02x without count at pixel %d", b, out)
		}
		n := int(cnt)
		if n > len(pix)-out {
			return nil, errors.Wrapf(ErrDecompressionOverrun, "run of %d at pixel %d exceeds %d", n, out, len(pix))
		}
		for i := 0; i < n; i++ {
			pix[out+i] = b
		}
		out += n
	}
	return pix, nil
}

func decompressLines(payload []byte, width, height int) ([]byte, error) {
	c := NewCursor(payload)
	markers, err := readMarkers(c)
	if err != nil {
		return nil, err
	}

	w := newRowWriter(width, height)
	for y := 0; y < height; y++ {
		size, err := c.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(ErrTruncatedFrame, "row %d: reading line length", y)
		}
		line, err := c.ReadBytes(int(size))
		if err != nil {
			return nil, errors.Wrapf(ErrTruncatedFrame, "row %d: line of %d bytes", y, size)
		}
		if err := decodeLine(w, line, markers); err != nil {
			return nil, errors.Wrapf(err, "row %d", y)
		}
		w.nextRow()
	}
	return w.pix, nil
}

// decodeLine decodes one row's runs. Anything that would spill into the next
// row is an overrun; a short row is left padded with index 0.
func decodeLine(w *rowWriter, line []byte, markers *[256]bool) error {
	for i := 0; i < len(line); i++ {
		b := line[i]
		n := 1
		if markers[b] {
			if i+1 >= len(line) {
				return errors.Wrapf(ErrTruncatedFrame, "marker 0x%02x without count at x=%d", b, w.x)
			}
			i++
			n = int(line[i])
		}
		if n > w.space() {
			return errors.Wrapf(ErrDecompressionOverrun, "run of %d at x=%d exceeds width %d", n, w.x, w.width)
		}
		w.fill(b, n)
	}
	return nil
}
