package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/golang/glog"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/vincent-petithory/dataurl"

	"badc0de.net/pkg/go-homm3/def"
	"badc0de.net/pkg/go-homm3/imageprint"
)

var (
	col      *bool
	col256   *bool
	iterm    *bool
	rasterm  *bool
	blanks   *bool
	downsize *bool
)

func setupOutputFlags() {
	col = flag.Bool("col", true, "whether to use color at all")
	col256 = flag.Bool("col256", false, "whether to use 256 col instead of 24 bit")
	iterm = flag.Bool("iterm", false, "whether to print with iterm escape code instead of 24 bit")
	rasterm = flag.Bool("rasterm", false, "whether to print with kitty, iterm or sixel graphics, whichever the terminal supports")
	blanks = flag.Bool("blanks", true, "whether to just use colored blanks instead of some bad ascii art")
	downsize = flag.Bool("downsize", true, "whether to shrink frames that do not fit the terminal")
}

// frameImage decodes a frame into an image with the game's transparency.
func frameImage(res *def.Resource, g, f int) (*image.Paletted, error) {
	fr, err := res.Frame(g, f)
	if err != nil {
		return nil, err
	}
	pal := res.Palette()
	if *canvas {
		return fr.Canvas(res.Header(), pal.ColorPalette(true))
	}
	return fr.Paletted(pal.ColorPalette(true)), nil
}

func showFrame(res *def.Resource, g, f int) error {
	img, err := frameImage(res, g, f)
	if err != nil {
		return err
	}

	if *pngOut != "" {
		return writePNG(*pngOut, img)
	}
	if *dataURL {
		var b bytes.Buffer
		if err := png.Encode(&b, img); err != nil {
			return errors.Wrap(err, "encoding png")
		}
		fmt.Println(dataurl.New(b.Bytes(), "image/png").String())
		return nil
	}
	return out(img)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %q", path)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encoding %q", path)
	}
	return errors.Wrapf(f.Close(), "closing %q", path)
}

func out(img image.Image) error {
	if *downsize {
		termSize, err := GetTermSize()
		if err == nil {
			if (termSize.WSXPixel != 0 && termSize.WSYPixel != 0) && (*rasterm || *iterm) {
				// Prefer printing out in native size if there's a chance we print out an image rather than pixels.
				img = resize.Thumbnail(termSize.WSXPixel/2, termSize.WSYPixel/2, img, resize.Lanczos3)
			} else if termSize.WSCol != 0 {
				// Each pixel takes two columns.
				img = resize.Thumbnail(termSize.WSCol/2, termSize.WSRow, img, resize.NearestNeighbor)
			}
		} else {
			glog.V(1).Infof("defprint: no terminal size: %v", err)
		}
	}

	p := &imageprint.Printer{W: os.Stdout, Blanks: *blanks}
	switch {
	case *rasterm:
		p.Mode = imageprint.RasTerm
	case !*col:
		p.Mode = imageprint.NoColor
	case *iterm:
		p.Mode = imageprint.ITerm
	case *col256:
		p.Mode = imageprint.Color256
	default:
		p.Mode = imageprint.TrueColor
	}
	return p.Print(img)
}
