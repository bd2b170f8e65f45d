// Package paths locates game data files (DEF files, LOD archives) on disk.
package paths

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// EnvDataDir names the environment variable pointing at the game's Data
// directory. It is searched before the built-in locations.
const EnvDataDir = "HOMM3_DATA"

// Dirs returns the directories searched by Find, in order.
func Dirs() []string {
	var dirs []string
	if d := os.Getenv(EnvDataDir); d != "" {
		dirs = append(dirs, d)
	}
	return append(dirs,
		"Data",
		"datafiles",
		os.Args[0]+".runfiles/go_homm3/datafiles",
	)
}

// Find locates the passed datafile shortname and returns a path to it, or
// an empty string if it is not found.
//
// Game installs are inconsistent about the case of file names, so each
// directory is first checked for an exact match and then scanned for a
// case-insensitive one. For example, for "h3sprite.lod" it may return
// "Data/H3sprite.lod".
func Find(fileName string) string {
	for _, dir := range Dirs() {
		if p := findIn(dir, fileName); p != "" {
			glog.Infof("paths.Find(%q)=%s", fileName, p)
			return p
		}
	}
	return ""
}

func findIn(dir, fileName string) string {
	p := filepath.Join(dir, fileName)
	if st, err := os.Stat(p); err == nil && !st.IsDir() {
		return p
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), fileName) {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}

// Open locates the passed file in the same locations that Find would look, and
// opens it. If Find returns an empty string, an error wrapping
// os.ErrNotExist is returned.
func Open(fileName string) (interface {
	io.ReadCloser
	io.Seeker
	io.ReaderAt
}, error) {
	p := Find(fileName)
	if p == "" {
		return nil, errors.Wrapf(os.ErrNotExist, "paths.Open(%q): not found in %v", fileName, Dirs())
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.Wrapf(err, "paths.Open(%q)", fileName)
	}
	return f, nil
}

// ReadFile locates the passed file like Find and returns its contents.
func ReadFile(fileName string) ([]byte, error) {
	p := Find(fileName)
	if p == "" {
		return nil, errors.Wrapf(os.ErrNotExist, "paths.ReadFile(%q): not found in %v", fileName, Dirs())
	}
	buf, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Wrapf(err, "paths.ReadFile(%q)", fileName)
	}
	return buf, nil
}
