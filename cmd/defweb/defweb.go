// Command defweb serves DEF files over HTTP: JSON summaries, single frames as
// PNG and whole animation groups as GIF.
//
// Files come from a LOD archive (-lod_path) or, failing that, a directory
// (-data_dir).
package main

import (
	"flag"
	"net/http"
	"os"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/common-nighthawk/go-figure"
	"github.com/golang/glog"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	_ "golang.org/x/net/trace"

	"badc0de.net/pkg/go-homm3/lod"
	"badc0de.net/pkg/go-homm3/paths"
	"badc0de.net/pkg/go-homm3/web"
)

var (
	listenAddress = flag.String("listen_address", ":8080", "http listen address for defweb")
	dataDir       = flag.String("data_dir", "", "directory with loose DEF files, used when no LOD archive is given")

	lodPath string
)

func source() (web.Source, error) {
	if lodPath != "" {
		f, err := os.Open(lodPath)
		if err != nil {
			return nil, errors.Wrap(err, "opening lod archive")
		}
		st, err := f.Stat()
		if err != nil {
			return nil, errors.Wrap(err, "opening lod archive")
		}
		a, err := lod.Open(f, st.Size())
		if err != nil {
			return nil, err
		}
		glog.Infof("defweb: serving %d entries from %s", len(a.Entries()), lodPath)
		return a, nil
	}
	if *dataDir != "" {
		glog.Infof("defweb: serving files from %s", *dataDir)
		return web.FSSource{FS: os.DirFS(*dataDir)}, nil
	}
	return nil, errors.New("need -lod_path or -data_dir")
}

func main() {
	paths.SetupFilePathFlag("H3sprite.lod", "lod_path", &lodPath)
	flagutil.Parse()

	src, err := source()
	if err != nil {
		glog.Fatal(err)
	}

	r := mux.NewRouter()
	web.NewHandler(src).RegisterRoutes(r)
	// x/net/trace registers /debug/requests and /debug/events on the default mux.
	r.PathPrefix("/debug/").Handler(http.DefaultServeMux)

	for _, line := range figure.NewFigure("defweb", "", true).Slicify() {
		glog.Info(line)
	}
	glog.Infof("defweb: listening on %s", *listenAddress)
	glog.Fatal(http.ListenAndServe(*listenAddress, handlers.CombinedLoggingHandler(os.Stderr, handlers.CompressHandler(r))))
}
