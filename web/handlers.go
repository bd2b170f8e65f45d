// Package web serves decoded DEF frames over HTTP.
package web

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"io/fs"
	"net/http"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-homm3/def"
)

// Source supplies raw DEF files by name. *lod.Archive satisfies it.
type Source interface {
	ReadFile(name string) ([]byte, error)
}

// FSSource adapts an fs.FS, such as os.DirFS of a directory of extracted
// files, into a Source.
type FSSource struct {
	FS fs.FS
}

func (s FSSource) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(s.FS, name)
}

// maxScale bounds the ?scale= parameter.
const maxScale = 8

// generation is part of every ETag; bump it if the way images are
// generated changes.
const generation = 1

type resource struct {
	res  *def.Resource
	hash uint64
}

type Handler struct {
	src Source

	mu        sync.Mutex
	resources map[string]*resource
}

// NewHandler constructs a web handler reading DEF files from src. Opened
// resources are kept for the lifetime of the handler.
func NewHandler(src Source) *Handler {
	return &Handler{
		src:       src,
		resources: make(map[string]*resource),
	}
}

func (h *Handler) open(name string) (*resource, error) {
	h.mu.Lock()
	r, ok := h.resources[name]
	h.mu.Unlock()
	if ok {
		return r, nil
	}

	buf, err := h.src.ReadFile(name)
	if err != nil {
		return nil, err
	}
	res, err := def.Open(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// Another request may have opened it meanwhile; keep the first.
	if r, ok := h.resources[name]; ok {
		return r, nil
	}
	r = &resource{res: res, hash: xxhash.Sum64(buf)}
	h.resources[name] = r
	glog.V(1).Infof("web: opened %q (%s, %d groups)", name, res.Header().Type, len(res.Groups()))
	return r, nil
}

func httpError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, def.ErrNoSuchFrame) {
		code = http.StatusNotFound
	}
	if code == http.StatusInternalServerError {
		glog.Errorf("web: %v", err)
	}
	http.Error(w, err.Error(), code)
}

// notModified sets caching headers and reports whether the client's copy is
// still current.
func notModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	w.Header().Set("Cache-Control", "public; max-age=36000") // 36000 = 10h
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

func scaleParam(r *http.Request) int {
	s, err := strconv.Atoi(r.URL.Query().Get("scale"))
	if err != nil || s < 1 {
		return 1 // ignore invalid scale
	}
	if s > maxScale {
		return maxScale
	}
	return s
}

type frameSummary struct {
	Name   string `json:"name"`
	Offset uint32 `json:"offset"`
}

type groupSummary struct {
	ID     uint32         `json:"id"`
	Frames []frameSummary `json:"frames"`
}

type summary struct {
	Type       string         `json:"type"`
	TypeID     uint32         `json:"type_id"`
	Width      uint32         `json:"width"`
	Height     uint32         `json:"height"`
	FrameCount uint32         `json:"frame_count"`
	Groups     []groupSummary `json:"groups"`
}

func (h *Handler) summaryHandler(w http.ResponseWriter, r *http.Request) {
	rr, err := h.open(mux.Vars(r)["name"])
	if err != nil {
		httpError(w, err)
		return
	}
	hdr := rr.res.Header()
	s := summary{
		Type:       hdr.Type.String(),
		TypeID:     uint32(hdr.Type),
		Width:      hdr.Width,
		Height:     hdr.Height,
		FrameCount: hdr.FrameCount,
		Groups:     []groupSummary{},
	}
	for _, g := range rr.res.Groups() {
		gs := groupSummary{ID: g.ID, Frames: []frameSummary{}}
		for _, f := range g.Frames {
			gs.Frames = append(gs.Frames, frameSummary{Name: f.Name, Offset: f.Offset})
		}
		s.Groups = append(s.Groups, gs)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s); err != nil {
		glog.Errorf("web: encoding summary: %v", err)
	}
}

// frameImage decodes a frame and prepares it for output: drawn on the full
// canvas unless ?canvas=0, and scaled by ?scale=.
func frameImage(res *def.Resource, group, frame int, r *http.Request) (image.Image, error) {
	f, err := res.Frame(group, frame)
	if err != nil {
		return nil, err
	}
	pal := res.Palette()
	cp := pal.ColorPalette(true)
	img := f.Paletted(cp)
	if r.URL.Query().Get("canvas") != "0" {
		if img, err = f.Canvas(res.Header(), cp); err != nil {
			return nil, err
		}
	}
	if s := scaleParam(r); s > 1 {
		return resize.Resize(uint(img.Bounds().Dx()*s), uint(img.Bounds().Dy()*s), img, resize.NearestNeighbor), nil
	}
	return img, nil
}

func intVars(r *http.Request, names ...string) ([]int, error) {
	vars := mux.Vars(r)
	out := make([]int, len(names))
	for i, n := range names {
		v, err := strconv.Atoi(vars[n])
		if err != nil {
			return nil, errors.Errorf("%s not a number", n)
		}
		out[i] = v
	}
	return out, nil
}

func (h *Handler) frameHandler(w http.ResponseWriter, r *http.Request) {
	idx, err := intVars(r, "group", "frame")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := mux.Vars(r)["name"]
	rr, err := h.open(name)
	if err != nil {
		httpError(w, err)
		return
	}

	mime := "image/png"
	etag := fmt.Sprintf(`W/"def:%d:%016x:%d:%d:%q:%d:%s"`, generation, rr.hash, idx[0], idx[1], r.URL.Query().Get("canvas"), scaleParam(r), mime)
	if notModified(w, r, etag) {
		return
	}

	img, err := frameImage(rr.res, idx[0], idx[1], r)
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	png.Encode(w, img)
}

// toPaletted turns a scaled frame back into a paletted image. Index 0 is kept
// transparent so the GIF background shows through.
func toPaletted(img image.Image) *image.Paletted {
	if p, ok := img.(*image.Paletted); ok {
		return p
	}
	q := quantize.MedianCutQuantizer{}
	pal := q.Quantize(make(color.Palette, 0, 255), img)
	out := image.NewPaletted(img.Bounds(), append(color.Palette{color.Transparent}, pal...))
	draw.Draw(out, img.Bounds(), img, img.Bounds().Min, draw.Over)
	return out
}

func (h *Handler) groupGIFHandler(w http.ResponseWriter, r *http.Request) {
	idx, err := intVars(r, "group")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rr, err := h.open(mux.Vars(r)["name"])
	if err != nil {
		httpError(w, err)
		return
	}
	group := idx[0]
	if group < 0 || group >= len(rr.res.Groups()) {
		http.Error(w, "no such group", http.StatusNotFound)
		return
	}

	delay := 10 // hundredths of a second
	if d, err := strconv.Atoi(r.URL.Query().Get("delay")); err == nil && d > 0 {
		delay = d
	}

	mime := "image/gif"
	etag := fmt.Sprintf(`W/"def:%d:%016x:%d:%d:%d:%s"`, generation, rr.hash, group, scaleParam(r), delay, mime)
	if notModified(w, r, etag) {
		return
	}

	g := gif.GIF{}
	for i := range rr.res.Groups()[group].Frames {
		img, err := frameImage(rr.res, group, i, r)
		if err != nil {
			httpError(w, err)
			return
		}
		g.Image = append(g.Image, toPaletted(img))
		g.Delay = append(g.Delay, delay)
		g.Disposal = append(g.Disposal, gif.DisposalBackground)
	}
	if len(g.Image) == 0 {
		http.Error(w, "group has no frames", http.StatusNotFound)
		return
	}
	g.BackgroundIndex = def.IndexTransparent

	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	gif.EncodeAll(w, &g)
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/def/{name}", h.summaryHandler)
	r.HandleFunc("/def/{name}/{group:[0-9]+}/{frame:[0-9]+}.png", h.frameHandler)
	r.HandleFunc("/def/{name}/{group:[0-9]+}.gif", h.groupGIFHandler)
}
