package ppu

import "sort"

// Sprite flag bits (OAM attribute byte).
const (
	SpritePriority = 1 << 7 // 0: above BG, 1: behind BG colors 1-3
	SpriteFlipY    = 1 << 6
	SpriteFlipX    = 1 << 5
	SpritePalette  = 1 << 4 // 0: OBP0, 1: OBP1
)

// Sprite is a decoded OAM entry ready for compositing: X/Y are already
// screen-relative (OAM byte minus the 8/16 offset), not the raw OAM bytes.
type Sprite struct {
	X, Y     int
	Tile     byte
	Attr     byte
	OAMIndex int
}

// spritesOnLine scans the 40-entry OAM table and returns, in OAM order, the
// sprites whose vertical extent covers ly, capped at 10 per the hardware
// per-scanline limit.
func spritesOnLine(oam [0xA0]byte, ly int, tall bool) []Sprite {
	height := 8
	if tall {
		height = 16
	}
	var out []Sprite
	for i := 0; i < 40 && len(out) < 10; i++ {
		base := i * 4
		y := int(oam[base]) - 16
		x := int(oam[base+1]) - 8
		tile := oam[base+2]
		attr := oam[base+3]
		if ly < y || ly >= y+height {
			continue
		}
		out = append(out, Sprite{X: x, Y: y, Tile: tile, Attr: attr, OAMIndex: i})
	}
	return out
}

// ComposeSpriteLine renders the sprite layer for scanline ly against the
// already-rendered background/window color-index line bgci, returning 160
// bytes where 0 means "no sprite pixel visible here" and a nonzero value
// encodes color index (bits 0-1) and palette select (bit 2, 0=OBP0 1=OBP1).
func ComposeSpriteLine(mem VRAMReader, sprites []Sprite, ly int, bgci [160]byte, tall bool) [160]byte {
	var out [160]byte
	ordered := make([]Sprite, len(sprites))
	copy(ordered, sprites)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].X != ordered[j].X {
			return ordered[i].X < ordered[j].X
		}
		return ordered[i].OAMIndex < ordered[j].OAMIndex
	})

	height := 8
	if tall {
		height = 16
	}

	for _, s := range ordered {
		row := ly - s.Y
		if row < 0 || row >= height {
			continue
		}
		if s.Attr&SpriteFlipY != 0 {
			row = height - 1 - row
		}
		tile := s.Tile
		if tall {
			tile &^= 0x01
			if row >= 8 {
				tile |= 0x01
				row -= 8
			}
		}
		tileAddr := 0x8000 + uint16(tile)*16 + uint16(row)*2
		lo := mem.Read(tileAddr)
		hi := mem.Read(tileAddr + 1)

		for col := 0; col < 8; col++ {
			x := s.X + col
			if x < 0 || x >= 160 {
				continue
			}
			if out[x] != 0 {
				continue // a higher-priority sprite already wrote this pixel
			}
			bit := col
			if s.Attr&SpriteFlipX == 0 {
				bit = 7 - col
			}
			ci := ((hi>>uint(bit))&1)<<1 | ((lo >> uint(bit)) & 1)
			if ci == 0 {
				continue // transparent
			}
			if s.Attr&SpritePriority != 0 && bgci[x] != 0 {
				continue // behind non-zero BG color
			}
			v := ci
			if s.Attr&SpritePalette != 0 {
				v |= 0x04
			}
			out[x] = v
		}
	}
	return out
}
