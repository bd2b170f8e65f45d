package def

// This file adapts the package to the image package's decoding interface.
// DEF files have no fixed signature, so the format is not registered with
// image.RegisterFormat; callers use Decode and DecodeConfig directly.

import (
	"image"
	"io"

	"github.com/pkg/errors"
)

func readResource(r io.Reader) (*Resource, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "def: reading input")
	}
	return Open(buf)
}

func firstFrame(res *Resource) (FrameRef, error) {
	for _, g := range res.groups {
		if len(g.Frames) > 0 {
			return g.Frames[0], nil
		}
	}
	return FrameRef{}, errors.Wrap(ErrNoSuchFrame, "def: resource has no frames")
}

// DecodeConfig returns the canvas size and palette of a DEF file.
func DecodeConfig(r io.Reader) (image.Config, error) {
	res, err := readResource(r)
	if err != nil {
		return image.Config{}, err
	}
	h := res.Header()
	pal := res.Palette()
	return image.Config{
		ColorModel: pal.ColorPalette(true),
		Width:      int(h.Width),
		Height:     int(h.Height),
	}, nil
}

// Decode returns the first frame of the first non-empty group, drawn on the
// full canvas with the game's transparency applied.
func Decode(r io.Reader) (image.Image, error) {
	res, err := readResource(r)
	if err != nil {
		return nil, err
	}
	ref, err := firstFrame(res)
	if err != nil {
		return nil, err
	}
	f, err := DecodeFrame(res.buf, ref)
	if err != nil {
		return nil, err
	}
	pal := res.Palette()
	return f.Canvas(res.Header(), pal.ColorPalette(true))
}
