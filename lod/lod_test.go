package lod

import (
	"bytes"
	"encoding/binary"
	"io/fs"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-homm3/def"
	"badc0de.net/pkg/go-homm3/def/deftest"
	"badc0de.net/pkg/go-homm3/ttesting"
)

type testFile struct {
	name     string
	data     []byte
	compress bool
}

// buildLOD lays out an archive holding files in the given order.
func buildLOD(t *testing.T, files []testFile) []byte {
	t.Helper()

	var blobs [][]byte
	for _, f := range files {
		if !f.compress {
			blobs = append(blobs, f.data)
			continue
		}
		var z bytes.Buffer
		w := zlib.NewWriter(&z)
		if _, err := w.Write(f.data); err != nil {
			t.Fatalf("compressing %q: %v", f.name, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("compressing %q: %v", f.name, err)
		}
		blobs = append(blobs, z.Bytes())
	}

	var b bytes.Buffer
	h := header{Magic: Magic, Kind: 500, Count: uint32(len(files))}
	binary.Write(&b, binary.LittleEndian, h)

	offset := uint32(headerSize + entrySize*len(files))
	for i, f := range files {
		e := rawEntry{Offset: offset, Size: uint32(len(f.data)), Kind: 0x47}
		copy(e.Name[:], f.name)
		if f.compress {
			e.CompressedSize = uint32(len(blobs[i]))
		}
		binary.Write(&b, binary.LittleEndian, e)
		offset += uint32(len(blobs[i]))
	}
	for _, blob := range blobs {
		b.Write(blob)
	}
	return b.Bytes()
}

func openLOD(t *testing.T, buf []byte) *Archive {
	t.Helper()
	a, err := Open(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		t.Fatalf("failed to open lod: %v", err)
	}
	return a
}

func TestReadFile(t *testing.T) {
	defBytes := deftest.Simple(8, 8, 0x05).Bytes()
	text := []byte("stored, not compressed")

	a := openLOD(t, buildLOD(t, []testFile{
		{name: "AVWattak.def", data: defBytes, compress: true},
		{name: "readme.txt", data: text},
	}))

	ttesting.AssertEqualUint32(t, "kind", a.Kind(), 500)
	ttesting.AssertEqualInt(t, "entries", len(a.Entries()), 2)
	ttesting.AssertEqualString(t, "sorted names", a.Names()[0], "AVWattak.def")

	e, ok := a.Lookup("avwattak.DEF")
	if !ok {
		t.Fatalf("case-insensitive lookup failed")
	}
	if !e.Compressed() {
		t.Errorf("entry should be compressed")
	}

	got, err := a.ReadFile("AVWattak.def")
	if err != nil {
		t.Fatalf("ReadFile compressed: %v", err)
	}
	ttesting.AssertEqualBytes(t, "inflated", got, defBytes)

	res, err := def.Open(got)
	if err != nil {
		t.Fatalf("def.Open on archived file: %v", err)
	}
	fr, err := res.Frame(0, 0)
	if err != nil {
		t.Fatalf("decoding archived frame: %v", err)
	}
	ttesting.AssertEqualBytes(t, "frame", fr.Pix, deftest.Fill(0x05, 64))

	got, err = a.ReadFile("readme.txt")
	if err != nil {
		t.Fatalf("ReadFile stored: %v", err)
	}
	ttesting.AssertEqualBytes(t, "stored", got, text)

	_, err = a.ReadFile("missing.def")
	ttesting.AssertErrorIs(t, "missing entry", err, fs.ErrNotExist)
}

func TestOpenErrors(t *testing.T) {
	good := buildLOD(t, []testFile{{name: "a.def", data: []byte{1, 2, 3}}})

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 'X'
	if _, err := Open(bytes.NewReader(badMagic), int64(len(badMagic))); !errors.Is(err, ErrBadMagic) {
		t.Errorf("bad magic: got %v; want ErrBadMagic", err)
	}

	if _, err := Open(bytes.NewReader(good[:50]), 50); err == nil {
		t.Errorf("truncated header accepted")
	}

	tooMany := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(tooMany[8:], 1000)
	if _, err := Open(bytes.NewReader(tooMany), int64(len(tooMany))); err == nil {
		t.Errorf("entry table past end of file accepted")
	}
}

func TestReadFileErrors(t *testing.T) {
	buf := buildLOD(t, []testFile{
		{name: "broken.def", data: bytes.Repeat([]byte{7}, 100), compress: true},
		{name: "short.def", data: []byte{1, 2, 3, 4}},
	})

	// Corrupt the deflate stream of the first entry.
	corrupt := append([]byte(nil), buf...)
	start := headerSize + 2*entrySize
	for i := start + 2; i < start+8; i++ {
		corrupt[i] ^= 0xFF
	}
	a := openLOD(t, corrupt)
	if _, err := a.ReadFile("broken.def"); err == nil {
		t.Errorf("corrupt compressed entry accepted")
	}

	// Claim a larger uncompressed size than the stream holds.
	lying := append([]byte(nil), buf...)
	binary.LittleEndian.PutUint32(lying[headerSize+nameSize+4:], 200)
	a = openLOD(t, lying)
	if _, err := a.ReadFile("broken.def"); err == nil {
		t.Errorf("entry inflating to fewer bytes than declared accepted")
	}

	// ...and a smaller one.
	binary.LittleEndian.PutUint32(lying[headerSize+nameSize+4:], 50)
	a = openLOD(t, lying)
	if _, err := a.ReadFile("broken.def"); err == nil {
		t.Errorf("entry inflating to more bytes than declared accepted")
	}

	// Declared sizes are not trusted for allocation.
	for _, size := range []uint32{0xFFFFFFFF, MaxEntrySize + 1, MaxEntrySize} {
		binary.LittleEndian.PutUint32(lying[headerSize+nameSize+4:], size)
		a = openLOD(t, lying)
		if _, err := a.ReadFile("broken.def"); err == nil {
			t.Errorf("entry declaring %d bytes accepted", size)
		}
	}

	cut := buf[:len(buf)-2]
	a = openLOD(t, cut)
	if _, err := a.ReadFile("short.def"); err == nil {
		t.Errorf("entry past end of archive accepted")
	}
}
