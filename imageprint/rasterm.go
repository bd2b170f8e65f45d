//go:build !windows

package imageprint

import (
	"fmt"
	"image"
	"io"

	"github.com/BourgeoisBear/rasterm"
	"github.com/andybons/gogif"
	"github.com/pkg/errors"
)

// printRasTerm draws an image using the RasTerm library.
//
// This should enable drawing in Kitty terminal. Sixel output needs a paletted
// image; decoded frames already are one, anything else is quantized first.
func printRasTerm(w io.Writer, i image.Image) error {
	if rasterm.IsTermKitty() {
		if err := (rasterm.Settings{}).KittyWriteImage(w, i); err != nil {
			return errors.Wrap(err, "kitty")
		}
		fmt.Fprintln(w)
		return nil
	}
	if rasterm.IsTermItermWez() {
		if err := (rasterm.Settings{}).ItermWriteImage(w, i); err != nil {
			return errors.Wrap(err, "iterm")
		}
		fmt.Fprintln(w)
		return nil
	}
	if capable, err := rasterm.IsSixelCapable(); capable && err == nil {
		palettedImage, ok := i.(*image.Paletted)
		if !ok {
			palettedImage = image.NewPaletted(i.Bounds(), nil)
			quantizer := gogif.MedianCutQuantizer{NumColor: 64}
			quantizer.Quantize(palettedImage, i.Bounds(), i, i.Bounds().Min)
		}
		if err := (rasterm.Settings{}).SixelWriteImage(w, palettedImage); err != nil {
			return errors.Wrap(err, "sixel")
		}
		fmt.Fprintln(w)
		return nil
	}
	return errors.New("imageprint: terminal supports neither kitty, iterm nor sixel images")
}
