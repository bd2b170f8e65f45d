// Command defprint inspects DEF files: it dumps headers and palettes, lists
// animation groups, prints frames on the terminal and exports them as PNG.
//
// The DEF file is read either directly (-def) or from a LOD archive
// (-lod_path and -name).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-homm3/def"
	"badc0de.net/pkg/go-homm3/lod"
	"badc0de.net/pkg/go-homm3/paths"
)

var (
	defPath   = flag.String("def", "", "path to a DEF file to read directly")
	entryName = flag.String("name", "", "name of the DEF entry inside the LOD archive")

	dump    = flag.Bool("dump", false, "dump header and palette")
	groups  = flag.Bool("groups", false, "list animation groups and their frames")
	listLOD = flag.Bool("list_lod", false, "list the entries of the LOD archive")
	check   = flag.Bool("check", false, "check that the file is well formed")

	group   = flag.Int("group", -1, "group of the frame to print or export")
	frame   = flag.Int("frame", 0, "frame to print or export")
	canvas  = flag.Bool("canvas", true, "draw the frame on the full canvas rather than alone")
	pngOut  = flag.String("png", "", "write the frame to this PNG file instead of printing it")
	dataURL = flag.Bool("dataurl", false, "print the frame as a data: URL instead of drawing it")

	exportDir = flag.String("export_dir", "", "export every frame as PNG into this directory")

	lodPath string
)

// load reads the raw DEF bytes from wherever the flags say.
func load() ([]byte, error) {
	if *defPath != "" {
		buf, err := os.ReadFile(*defPath)
		return buf, errors.Wrap(err, "reading def file")
	}
	if *entryName == "" {
		return nil, errors.New("need -def, or -name with -lod_path")
	}
	if lodPath == "" {
		buf, err := paths.ReadFile(*entryName)
		return buf, errors.Wrap(err, "finding def file")
	}
	a, err := openLOD()
	if err != nil {
		return nil, err
	}
	buf, err := a.ReadFile(*entryName)
	return buf, errors.Wrap(err, "reading from lod archive")
}

func openLOD() (*lod.Archive, error) {
	f, err := os.Open(lodPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening lod archive")
	}
	// The archive reads lazily through f, which stays open until exit.
	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "opening lod archive")
	}
	return lod.Open(f, st.Size())
}

func run() error {
	if *listLOD {
		a, err := openLOD()
		if err != nil {
			return err
		}
		listArchive(os.Stdout, a)
		if *entryName == "" && *defPath == "" {
			return nil
		}
	}

	buf, err := load()
	if err != nil {
		return err
	}
	res, err := def.Open(buf)
	if err != nil {
		return errors.Wrap(err, "opening def")
	}

	if *dump {
		dumpHeader(os.Stdout, res)
	}
	if *groups {
		listGroups(os.Stdout, res)
	}
	if *check {
		if err := res.Validate(); err != nil {
			return err
		}
		if _, err := res.DecodeAll(context.Background()); err != nil {
			return err
		}
		fmt.Println("ok")
	}
	if *exportDir != "" {
		if err := exportAll(context.Background(), res, *exportDir); err != nil {
			return err
		}
	}
	if *group >= 0 {
		return showFrame(res, *group, *frame)
	}
	return nil
}

func main() {
	paths.SetupFilePathFlag("H3sprite.lod", "lod_path", &lodPath)
	setupOutputFlags()
	flagutil.Parse()
	flag.Set("logtostderr", "true")

	if err := run(); err != nil {
		glog.Errorf("defprint: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}
