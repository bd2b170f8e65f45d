package def

import (
	"context"
	"runtime"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Resource is an opened DEF file.
//
// The header, palette and group table are parsed by Open; frames are decoded
// on every call to Frame. A Resource never changes after Open and is safe for
// concurrent use, provided the caller does not modify the buffer it was
// opened over.
type Resource struct {
	buf     []byte
	header  Header
	palette Palette
	groups  []Group
}

// Open parses buf as a DEF file. buf is retained, not copied.
func Open(buf []byte) (*Resource, error) {
	c := NewCursor(buf)
	h, pal, err := ParseHeader(c)
	if err != nil {
		return nil, err
	}
	groups, err := ParseGroups(c)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("def: opened %s resource, %d groups, %d bytes", h.Type, len(groups), len(buf))
	return &Resource{
		buf:     buf,
		header:  h,
		palette: pal,
		groups:  groups,
	}, nil
}

// Header returns the file header.
func (r *Resource) Header() Header { return r.header }

// Palette returns a copy of the palette.
func (r *Resource) Palette() Palette { return r.palette }

// Groups returns the group table. The returned slice must not be modified.
func (r *Resource) Groups() []Group { return r.groups }

// Bytes returns the buffer the resource was opened over.
func (r *Resource) Bytes() []byte { return r.buf }

// FrameRef looks up a frame reference by group and frame index.
func (r *Resource) FrameRef(group, frame int) (FrameRef, error) {
	if group < 0 || group >= len(r.groups) {
		return FrameRef{}, errors.Wrapf(ErrNoSuchFrame, "group %d of %d", group, len(r.groups))
	}
	frames := r.groups[group].Frames
	if frame < 0 || frame >= len(frames) {
		return FrameRef{}, errors.Wrapf(ErrNoSuchFrame, "frame %d of %d in group %d", frame, len(frames), group)
	}
	return frames[frame], nil
}

// Frame decodes a single frame. Each call decodes afresh and returns pixels
// owned by the caller.
func (r *Resource) Frame(group, frame int) (*Frame, error) {
	ref, err := r.FrameRef(group, frame)
	if err != nil {
		return nil, err
	}
	f, err := DecodeFrame(r.buf, ref)
	if err != nil {
		return nil, errors.Wrapf(err, "group %d frame %d", group, frame)
	}
	return f, nil
}

// DecodeGroup decodes all frames of a group concurrently and returns them in
// playback order.
func (r *Resource) DecodeGroup(ctx context.Context, group int) ([]*Frame, error) {
	if group < 0 || group >= len(r.groups) {
		return nil, errors.Wrapf(ErrNoSuchFrame, "group %d of %d", group, len(r.groups))
	}
	all, err := r.decode(ctx, []int{group})
	if err != nil {
		return nil, err
	}
	return all[0], nil
}

// DecodeAll decodes every frame of every group concurrently. The result is
// indexed like Groups.
func (r *Resource) DecodeAll(ctx context.Context) ([][]*Frame, error) {
	groups := make([]int, len(r.groups))
	for i := range groups {
		groups[i] = i
	}
	return r.decode(ctx, groups)
}

func (r *Resource) decode(ctx context.Context, groups []int) ([][]*Frame, error) {
	out := make([][]*Frame, len(groups))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, gi := range groups {
		i, gi := i, gi // per-iteration copies (go directive is 1.21)
		out[i] = make([]*Frame, len(r.groups[gi].Frames))
		for fi := range out[i] {
			fi := fi
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				f, err := r.Frame(gi, fi)
				if err != nil {
					return err
				}
				out[i][fi] = f
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks properties that well-formed game files have but that Open
// does not enforce: an empty resource has no groups, and every frame fits
// within the canvas. It decodes frame headers only.
func (r *Resource) Validate() error {
	if r.header.FrameCount == 0 && len(r.groups) != 0 {
		return errors.Errorf("def: frame count is 0 but %d groups are present", len(r.groups))
	}
	for gi, g := range r.groups {
		for fi, ref := range g.Frames {
			c := NewCursor(r.buf)
			if err := c.Seek(int(ref.Offset)); err != nil {
				return errors.Wrapf(err, "group %d frame %d", gi, fi)
			}
			fh, err := ParseFrameHeader(c)
			if err != nil {
				return errors.Wrapf(err, "group %d frame %d", gi, fi)
			}
			right := int64(fh.Left) + int64(fh.Width)
			bottom := int64(fh.Top) + int64(fh.Height)
			if fh.Left < 0 || fh.Top < 0 || right > int64(r.header.Width) || bottom > int64(r.header.Height) {
				return errors.Errorf("def: group %d frame %d (%q) at (%d,%d) %dx%d does not fit canvas %dx%d",
					gi, fi, ref.Name, fh.Left, fh.Top, fh.Width, fh.Height, r.header.Width, r.header.Height)
			}
		}
	}
	return nil
}
