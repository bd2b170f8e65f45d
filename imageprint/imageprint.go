// Package imageprint prints decoded frames on a terminal. UNSUPPORTED debug package.
//
// This package has an API with no stability guarantees.
package imageprint

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	ic "image/color"
	"image/png"
	"io"

	"github.com/gookit/color"
	"github.com/pkg/errors"
)

// Mode selects how pixels are drawn.
type Mode int

const (
	NoColor   Mode = iota // ascii shades only
	Color256              // gookit/color, downsampled by the terminal
	TrueColor             // 24 bit background escapes
	ITerm                 // iTerm2 inline image
	RasTerm               // kitty, iTerm or sixel, whichever the terminal speaks
)

// Printer draws images to W.
type Printer struct {
	W    io.Writer
	Mode Mode
	// Blanks draws colored blanks instead of ascii shades.
	Blanks bool
}

// Print draws img.
func (p *Printer) Print(img image.Image) error {
	switch p.Mode {
	case ITerm:
		return p.printITerm(img, "frame.png")
	case RasTerm:
		return printRasTerm(p.W, img)
	}

	w := bufio.NewWriter(p.W)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			p.shade(w, img.At(x, y))
		}
		if p.Mode != NoColor {
			w.WriteString("\x1b[0m")
		}
		w.WriteString("\n")
	}
	return w.Flush()
}

func (p *Printer) shade(w io.Writer, col ic.Color) {
	cR, cG, cB, cA := col.RGBA()
	if cA == 0 {
		if p.Mode != NoColor {
			io.WriteString(w, "\x1b[0m")
		}
		io.WriteString(w, "  ")
		return
	}

	s := "  "
	if !p.Blanks {
		a := ((cR + cG + cB) / 3) >> 8
		switch {
		case a < 32:
			s = ".."
		case a < 64:
			s = "--"
		case a < 128:
			s = "=="
		default:
			s = "##"
		}
	}

	r, g, b := uint8(cR>>8), uint8(cG>>8), uint8(cB>>8)
	switch p.Mode {
	case TrueColor:
		fmt.Fprintf(w, "\x1b[48;2;%d;%d;%dm%s\x1b[0m", r, g, b, s)
	case Color256:
		io.WriteString(w, color.RGB(r, g, b, true).Sprint(s))
	default:
		io.WriteString(w, s)
	}
}

// printITerm draws an image using iTerm2's escape sequences.
//
// https://www.iterm2.com/documentation-images.html
func (p *Printer) printITerm(i image.Image, fn string) error {
	name := base64.StdEncoding.EncodeToString([]byte(fn))
	b := &bytes.Buffer{}
	bEnc := base64.NewEncoder(base64.StdEncoding, b)
	if err := png.Encode(bEnc, i); err != nil {
		return errors.Wrap(err, "encoding png for iterm")
	}
	bEnc.Close()
	_, err := fmt.Fprintf(p.W, "\n\033]1337;File=name=%s;inline=1;size=%d,width=%dpx;height=%dpx:%s\a\n", name, b.Len(), i.Bounds().Dx(), i.Bounds().Dy(), b.String())
	return err
}
