package def

import (
	"fmt"
	"image/color"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// ResourceType identifies what a DEF file is used for by the game.
type ResourceType uint32

const (
	TypeSpell           ResourceType = 0x40
	TypeSprite          ResourceType = 0x41
	TypeCreature        ResourceType = 0x42
	TypeAdventureObject ResourceType = 0x43
	TypeHero            ResourceType = 0x44
	TypeTerrain         ResourceType = 0x45
	TypeCursor          ResourceType = 0x46
	TypeInterface       ResourceType = 0x47
	TypeSpriteFrame     ResourceType = 0x48
	TypeCombatHero      ResourceType = 0x49
)

var resourceTypeNames = map[ResourceType]string{
	TypeSpell:           "spell",
	TypeSprite:          "sprite",
	TypeCreature:        "creature",
	TypeAdventureObject: "adventure object",
	TypeHero:            "hero",
	TypeTerrain:         "terrain",
	TypeCursor:          "cursor",
	TypeInterface:       "interface",
	TypeSpriteFrame:     "sprite frame",
	TypeCombatHero:      "combat hero",
}

func (t ResourceType) String() string {
	if s, ok := resourceTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("unknown(0x%02x)", uint32(t))
}

// Header is the fixed part at the start of every DEF file.
type Header struct {
	Type          ResourceType
	Width, Height uint32 // canvas size shared by all frames
	FrameCount    uint32
}

const (
	headerSize  = 4 * 4
	PaletteSize = 256
	paletteSize = PaletteSize * 3
)

// RGB is a single palette entry.
type RGB struct {
	R, G, B uint8
}

// RGBA implements color.Color. Palette entries are always opaque.
func (c RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}.RGBA()
}

// Palette is the 256-color table indexed by frame pixels.
type Palette [PaletteSize]RGB

// Indices the game reserves for effects rather than colors.
const (
	IndexTransparent = 0
	IndexShadowLight = 1
	IndexShadowDeep  = 4
)

// ColorPalette converts the palette for use with the image package.
//
// When special is set, reserved indices are replaced the way the game draws
// them: index 0 becomes fully transparent, and the two shadow indices become
// translucent black.
func (p *Palette) ColorPalette(special bool) color.Palette {
	pal := make(color.Palette, PaletteSize)
	for i, c := range p {
		pal[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
	}
	if special {
		pal[IndexTransparent] = color.Transparent
		pal[IndexShadowLight] = color.RGBA{A: 0x40}
		pal[IndexShadowDeep] = color.RGBA{A: 0x80}
	}
	return pal
}

// ParseHeader reads the header and the palette that follows it.
//
// A canvas of zero width or height is rejected if the file claims to contain
// any frames.
func ParseHeader(c *Cursor) (Header, Palette, error) {
	var h Header
	var pal Palette

	fields := []*uint32{(*uint32)(&h.Type), &h.Width, &h.Height, &h.FrameCount}
	for _, f := range fields {
		v, err := c.ReadU32()
		if err != nil {
			return h, pal, errors.Wrap(err, "reading def header")
		}
		*f = v
	}
	if h.FrameCount != 0 && (h.Width == 0 || h.Height == 0) {
		return h, pal, errors.Wrapf(ErrInvalidHeader, "canvas %dx%d with %d frames", h.Width, h.Height, h.FrameCount)
	}

	raw, err := c.ReadBytes(paletteSize)
	if err != nil {
		return h, pal, errors.Wrap(err, "reading def palette")
	}
	for i := range pal {
		pal[i] = RGB{R: raw[i*3], G: raw[i*3+1], B: raw[i*3+2]}
	}

	glog.V(2).Infof("def: header type=%s canvas=%dx%d frames=%d", h.Type, h.Width, h.Height, h.FrameCount)
	return h, pal, nil
}
