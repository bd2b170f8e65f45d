package def_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"image/color"
	"testing"

	"badc0de.net/pkg/go-homm3/def"
	"badc0de.net/pkg/go-homm3/def/deftest"
	"badc0de.net/pkg/go-homm3/ttesting"
)

// Offsets into a file built by deftest.
const (
	groupCountOffset      = 16 + 768
	firstGroupCountOffset = groupCountOffset + 4 + 4
)

func mustOpen(t *testing.T, buf []byte) *def.Resource {
	t.Helper()
	res, err := def.Open(buf)
	if err != nil {
		t.Fatalf("failed to open def: %v", err)
	}
	return res
}

// animation returns a resource with two groups whose frames use every
// compression variant.
func animation() *deftest.File {
	f := &deftest.File{
		Type:       def.TypeAdventureObject,
		Width:      4,
		Height:     4,
		FrameCount: 4,
		Groups: []deftest.Group{
			{
				ID: 0,
				Frames: []deftest.Frame{
					{Name: "idle0.pcx", Compression: def.CompressionRaw, Width: 2, Height: 2, Left: 1, Top: 1, Payload: []byte{1, 2, 3, 4}},
					{Name: "idle1.pcx", Compression: def.CompressionRowTable, Width: 2, Height: 2, Payload: []byte{0x05, 2, def.LiteralCode, 2, 6, 7}},
				},
			},
			{
				ID: 7,
				Frames: []deftest.Frame{
					{Name: "move0.pcx", Compression: def.CompressionSegments, Width: 4, Height: 1, Payload: []byte{1, 0xFF, 0xFF, 3, 0x07}},
					{Name: "idle0.pcx", Compression: def.CompressionLines, Width: 2, Height: 2, Payload: []byte{0, 1, 0, 9, 2, 0, 8, 8}},
				},
			},
		},
	}
	f.Palette[3] = def.RGB{R: 10, G: 20, B: 30}
	return f
}

func TestEightByEightRawFrame(t *testing.T) {
	f := deftest.Simple(8, 8, 0x05)
	ttesting.AssertEqualUint32(t, "fixture type", uint32(f.Type), 0x42)
	res := mustOpen(t, f.Bytes())

	fr, err := res.Frame(0, 0)
	if err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	ttesting.AssertEqualInt(t, "width", fr.Width, 8)
	ttesting.AssertEqualInt(t, "height", fr.Height, 8)
	ttesting.AssertEqualBytes(t, "pixels", fr.Pix, deftest.Fill(0x05, 64))
}

func TestOpen(t *testing.T) {
	res := mustOpen(t, animation().Bytes())

	h := res.Header()
	ttesting.AssertEqualUint32(t, "type", uint32(h.Type), uint32(def.TypeAdventureObject))
	ttesting.AssertEqualUint32(t, "width", h.Width, 4)
	ttesting.AssertEqualUint32(t, "height", h.Height, 4)
	ttesting.AssertEqualUint32(t, "frame count", h.FrameCount, 4)

	pal := res.Palette()
	if pal[3] != (def.RGB{R: 10, G: 20, B: 30}) {
		t.Errorf("palette[3] = %+v; want {10 20 30}", pal[3])
	}
	if pal[0] != (def.RGB{}) {
		t.Errorf("palette[0] = %+v; want zero", pal[0])
	}

	groups := res.Groups()
	if len(groups) != 2 {
		t.Fatalf("got %d groups; want 2", len(groups))
	}
	ttesting.AssertEqualUint32(t, "second group id", groups[1].ID, 7)
	wantNames := [][]string{{"idle0.pcx", "idle1.pcx"}, {"move0.pcx", "idle0.pcx"}}
	for gi, g := range groups {
		for fi, ref := range g.Frames {
			ttesting.AssertEqualString(t, "frame name", ref.Name, wantNames[gi][fi])
		}
	}
}

func TestFramesOfEveryVariant(t *testing.T) {
	res := mustOpen(t, animation().Bytes())

	cases := []struct {
		group, frame int
		compression  def.Compression
		w, h         int
		left, top    int
		want         []byte
	}{
		{0, 0, def.CompressionRaw, 2, 2, 1, 1, []byte{1, 2, 3, 4}},
		{0, 1, def.CompressionRowTable, 2, 2, 0, 0, []byte{5, 5, 6, 7}},
		{1, 0, def.CompressionSegments, 4, 1, 0, 0, []byte{0xFF, 0xFF, 0xFF, 0x07}},
		{1, 1, def.CompressionLines, 2, 2, 0, 0, []byte{9, 0, 8, 8}},
	}
	for _, tc := range cases {
		fr, err := res.Frame(tc.group, tc.frame)
		if err != nil {
			t.Errorf("group %d frame %d: %v", tc.group, tc.frame, err)
			continue
		}
		if fr.Compression != tc.compression {
			t.Errorf("group %d frame %d: compression %s; want %s", tc.group, tc.frame, fr.Compression, tc.compression)
		}
		if fr.Width != tc.w || fr.Height != tc.h || fr.Left != tc.left || fr.Top != tc.top {
			t.Errorf("group %d frame %d: got %dx%d at (%d,%d); want %dx%d at (%d,%d)",
				tc.group, tc.frame, fr.Width, fr.Height, fr.Left, fr.Top, tc.w, tc.h, tc.left, tc.top)
		}
		if len(fr.Pix) != fr.Width*fr.Height {
			t.Errorf("group %d frame %d: %d pixels for %dx%d", tc.group, tc.frame, len(fr.Pix), fr.Width, fr.Height)
		}
		ttesting.AssertEqualBytes(t, "pixels", fr.Pix, tc.want)
	}
}

func TestFrameIsIdempotent(t *testing.T) {
	buf := animation().Bytes()
	orig := append([]byte(nil), buf...)
	res := mustOpen(t, buf)

	a, err := res.Frame(1, 0)
	if err != nil {
		t.Fatalf("first decode: %v", err)
	}
	a.Pix[0] = 0x00

	b, err := res.Frame(1, 0)
	if err != nil {
		t.Fatalf("second decode: %v", err)
	}
	ttesting.AssertEqualBytes(t, "second decode unaffected", b.Pix, []byte{0xFF, 0xFF, 0xFF, 0x07})
	ttesting.AssertEqualBytes(t, "buffer untouched", buf, orig)

	c, err := res.Frame(1, 0)
	if err != nil {
		t.Fatalf("third decode: %v", err)
	}
	if !bytes.Equal(b.Pix, c.Pix) || b.Width != c.Width || b.Left != c.Left {
		t.Errorf("repeated decodes differ: %+v vs %+v", b, c)
	}
}

func TestBadFrameDoesNotPoisonResource(t *testing.T) {
	f := animation()
	f.Groups[0].Frames[1].Compression = def.Compression(4)
	res := mustOpen(t, f.Bytes())

	_, err := res.Frame(0, 1)
	ttesting.AssertErrorIs(t, "variant 4", err, def.ErrUnknownCompression)

	fr, err := res.Frame(0, 0)
	if err != nil {
		t.Fatalf("other frame: %v", err)
	}
	ttesting.AssertEqualBytes(t, "other frame", fr.Pix, []byte{1, 2, 3, 4})
}

func TestFrameErrors(t *testing.T) {
	raw := func(payload []byte, size uint32) *deftest.File {
		f := deftest.Simple(8, 8, 0)
		f.Groups[0].Frames[0].Payload = payload
		f.Groups[0].Frames[0].Size = size
		return f
	}

	cases := []struct {
		name string
		buf  []byte
		want error
	}{
		{"raw payload one short", raw(deftest.Fill(5, 63), 0).Bytes(), def.ErrTruncatedFrame},
		{"raw payload one long", raw(deftest.Fill(5, 65), 0).Bytes(), def.ErrDecompressionOverrun},
		{"declared size beyond buffer", raw(deftest.Fill(5, 64), def.FrameHeaderSize+100).Bytes(), def.ErrTruncatedFrame},
		{"declared size below header", raw(deftest.Fill(5, 64), 10).Bytes(), def.ErrTruncatedFrame},
	}

	full := deftest.Simple(8, 8, 0).Bytes()
	cases = append(cases, struct {
		name string
		buf  []byte
		want error
	}{"frame header cut off", full[:len(full)-64-10], def.ErrTruncatedFrame})

	for _, tc := range cases {
		res := mustOpen(t, tc.buf)
		_, err := res.Frame(0, 0)
		ttesting.AssertErrorIs(t, tc.name, err, tc.want)
	}

	res := mustOpen(t, full)
	_, err := res.Frame(0, 1)
	ttesting.AssertErrorIs(t, "frame index out of range", err, def.ErrNoSuchFrame)
	_, err = res.Frame(1, 0)
	ttesting.AssertErrorIs(t, "group index out of range", err, def.ErrNoSuchFrame)
	_, err = res.Frame(-1, 0)
	ttesting.AssertErrorIs(t, "negative group", err, def.ErrNoSuchFrame)
}

func TestOpenErrors(t *testing.T) {
	full := deftest.Simple(8, 8, 0).Bytes()

	zeroCanvas := deftest.Simple(8, 8, 0)
	zeroCanvas.Width = 0

	tooManyFrames := append([]byte(nil), full...)
	binary.LittleEndian.PutUint32(tooManyFrames[firstGroupCountOffset:], 1000)

	tooManyGroups := append([]byte(nil), full...)
	binary.LittleEndian.PutUint32(tooManyGroups[groupCountOffset:], 0xFFFFFFFF)

	cases := []struct {
		name string
		buf  []byte
		want error
	}{
		{"empty", nil, def.ErrTruncatedInput},
		{"header cut off", full[:10], def.ErrTruncatedInput},
		{"palette cut off", full[:16+100], def.ErrTruncatedInput},
		{"zero canvas with frames", zeroCanvas.Bytes(), def.ErrInvalidHeader},
		{"no group count", full[:groupCountOffset], def.ErrInvalidGroupTable},
		{"group header cut off", full[:groupCountOffset+4+6], def.ErrInvalidGroupTable},
		{"group declares too many frames", tooManyFrames, def.ErrInvalidGroupTable},
		{"too many groups", tooManyGroups, def.ErrInvalidGroupTable},
	}
	for _, tc := range cases {
		res, err := def.Open(tc.buf)
		if res != nil {
			t.Errorf("%s: got a resource alongside error %v", tc.name, err)
		}
		ttesting.AssertErrorIs(t, tc.name, err, tc.want)
	}
}

func TestEmptyResource(t *testing.T) {
	f := &deftest.File{Type: def.TypeCursor}
	res := mustOpen(t, f.Bytes())
	ttesting.AssertEqualInt(t, "no groups", len(res.Groups()), 0)
	if err := res.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	if err := mustOpen(t, animation().Bytes()).Validate(); err != nil {
		t.Errorf("Validate on a well-formed file: %v", err)
	}

	noCount := animation()
	noCount.FrameCount = 0
	if err := mustOpen(t, noCount.Bytes()).Validate(); err == nil {
		t.Errorf("Validate accepted groups in a resource with frame count 0")
	}

	offCanvas := animation()
	offCanvas.Groups[0].Frames[0].Left = 3
	if err := mustOpen(t, offCanvas.Bytes()).Validate(); err == nil {
		t.Errorf("Validate accepted a frame sticking out of the canvas")
	}
}

func TestDecodeAll(t *testing.T) {
	res := mustOpen(t, animation().Bytes())
	all, err := res.DecodeAll(context.Background())
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(all) != len(res.Groups()) {
		t.Fatalf("got %d groups; want %d", len(all), len(res.Groups()))
	}
	for gi, frames := range all {
		ttesting.AssertEqualInt(t, "frames in group", len(frames), len(res.Groups()[gi].Frames))
		for fi, fr := range frames {
			want, err := res.Frame(gi, fi)
			if err != nil {
				t.Fatalf("Frame(%d, %d): %v", gi, fi, err)
			}
			ttesting.AssertEqualBytes(t, "same as Frame", fr.Pix, want.Pix)
		}
	}

	group, err := res.DecodeGroup(context.Background(), 1)
	if err != nil {
		t.Fatalf("DecodeGroup: %v", err)
	}
	ttesting.AssertEqualBytes(t, "group 1 frame 1", group[1].Pix, []byte{9, 0, 8, 8})

	_, err = res.DecodeGroup(context.Background(), 2)
	ttesting.AssertErrorIs(t, "missing group", err, def.ErrNoSuchFrame)
}

func TestDecodeAllErrors(t *testing.T) {
	bad := animation()
	bad.Groups[1].Frames[0].Payload = []byte{1, 0xFF, 0xFF, 9}
	_, err := mustOpen(t, bad.Bytes()).DecodeAll(context.Background())
	ttesting.AssertErrorIs(t, "overrun surfaces", err, def.ErrDecompressionOverrun)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = mustOpen(t, animation().Bytes()).DecodeAll(ctx)
	ttesting.AssertErrorIs(t, "canceled", err, context.Canceled)
}

func TestCanvas(t *testing.T) {
	res := mustOpen(t, animation().Bytes())
	fr, err := res.Frame(0, 0)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	pal := res.Palette()
	img, err := fr.Canvas(res.Header(), pal.ColorPalette(true))
	if err != nil {
		t.Fatalf("Canvas: %v", err)
	}
	ttesting.AssertEqualBytes(t, "canvas", img.Pix, []byte{
		0, 0, 0, 0,
		0, 1, 2, 0,
		0, 3, 4, 0,
		0, 0, 0, 0,
	})
	if got := img.At(1, 2); got != pal.ColorPalette(true)[3] {
		t.Errorf("At(1, 2) = %v; want palette entry 3", got)
	}

	// Frames reaching past the canvas are clipped.
	fr.Left, fr.Top = 3, 3
	img, err = fr.Canvas(res.Header(), nil)
	if err != nil {
		t.Fatalf("Canvas clipped: %v", err)
	}
	ttesting.AssertEqualInt(t, "clipped corner", int(img.Pix[15]), 1)

	p := fr.Paletted(nil)
	ttesting.AssertEqualInt(t, "paletted width", p.Bounds().Dx(), 2)
	ttesting.AssertEqualInt(t, "paletted index", int(p.ColorIndexAt(1, 1)), 4)
}

func TestColorPalette(t *testing.T) {
	var pal def.Palette
	pal[0] = def.RGB{R: 0, G: 0xFF, B: 0xFF}
	pal[9] = def.RGB{R: 1, G: 2, B: 3}

	plain := pal.ColorPalette(false)
	if _, _, _, a := plain[0].RGBA(); a != 0xFFFF {
		t.Errorf("plain palette index 0 alpha = %d; want opaque", a)
	}
	special := pal.ColorPalette(true)
	if special[0] != color.Transparent {
		t.Errorf("special palette index 0 = %v; want transparent", special[0])
	}
	if _, _, _, a := special[def.IndexShadowDeep].RGBA(); a == 0 || a == 0xFFFF {
		t.Errorf("deep shadow alpha = %d; want translucent", a)
	}
	if special[9] != (color.RGBA{R: 1, G: 2, B: 3, A: 0xFF}) {
		t.Errorf("special palette index 9 = %v", special[9])
	}
}

func TestResourceTypeString(t *testing.T) {
	ttesting.AssertEqualString(t, "creature", def.TypeCreature.String(), "creature")
	ttesting.AssertEqualString(t, "unknown", def.ResourceType(0x99).String(), "unknown(0x99)")
}

func TestDecode(t *testing.T) {
	img, err := def.Decode(bytes.NewReader(animation().Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ttesting.AssertEqualInt(t, "canvas width", img.Bounds().Dx(), 4)

	cfg, err := def.DecodeConfig(bytes.NewReader(animation().Bytes()))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	ttesting.AssertEqualInt(t, "config height", cfg.Height, 4)

	_, err = def.Decode(bytes.NewReader((&deftest.File{Type: def.TypeCursor}).Bytes()))
	ttesting.AssertErrorIs(t, "no frames", err, def.ErrNoSuchFrame)
}

func TestCanvasTooLarge(t *testing.T) {
	for _, size := range []uint32{0xFFFFFFFF, 65535} {
		f := deftest.Simple(1, 1, 5)
		f.Width, f.Height = size, size
		res := mustOpen(t, f.Bytes())

		fr, err := res.Frame(0, 0)
		if err != nil {
			t.Fatalf("Frame on %dx%d canvas: %v", size, size, err)
		}
		_, err = fr.Canvas(res.Header(), nil)
		ttesting.AssertErrorIs(t, "canvas", err, def.ErrDecompressionOverrun)

		_, err = def.Decode(bytes.NewReader(f.Bytes()))
		ttesting.AssertErrorIs(t, "decode", err, def.ErrDecompressionOverrun)
	}
}

func TestDecodeName(t *testing.T) {
	ttesting.AssertEqualString(t, "nul padded", def.DecodeName([]byte("idle0.pcx\x00\x00\x00\x00")), "idle0.pcx")
	ttesting.AssertEqualString(t, "garbage after nul", def.DecodeName([]byte("a.pcx\x00zz")), "a.pcx")
	ttesting.AssertEqualString(t, "windows-1252", def.DecodeName([]byte{'c', 'a', 'f', 0xE9, 0}), "café")
	ttesting.AssertEqualString(t, "full width", def.DecodeName([]byte("ABCDEFGHIJKLM")), "ABCDEFGHIJKLM")
}
