package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-homm3/def"
)

// exportName builds a file name for a frame. Frame names repeat across
// groups, so group and frame indices are always included.
func exportName(g, f int, ref def.FrameRef) string {
	base := strings.TrimSuffix(ref.Name, filepath.Ext(ref.Name))
	base = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, base)
	return fmt.Sprintf("%02d_%03d_%s.png", g, f, base)
}

// exportAll decodes every frame concurrently and writes each one as a PNG.
func exportAll(ctx context.Context, res *def.Resource, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %q", dir)
	}
	all, err := res.DecodeAll(ctx)
	if err != nil {
		return errors.Wrap(err, "decoding frames")
	}

	pal := res.Palette()
	cp := pal.ColorPalette(true)
	n := 0
	for gi, frames := range all {
		for fi, fr := range frames {
			img := fr.Paletted(cp)
			if *canvas {
				if img, err = fr.Canvas(res.Header(), cp); err != nil {
					return errors.Wrapf(err, "group %d frame %d", gi, fi)
				}
			}
			name := exportName(gi, fi, res.Groups()[gi].Frames[fi])
			if err := writePNG(filepath.Join(dir, name), img); err != nil {
				return err
			}
			n++
		}
	}
	glog.Infof("defprint: exported %d frames to %s", n, dir)
	return nil
}
