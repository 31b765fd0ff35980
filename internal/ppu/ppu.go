package ppu

import (
	"bytes"
	"encoding/gob"
)

// InterruptRequester is a callback signature to request IF bits (0:VBlank, 1:STAT, etc.).
type InterruptRequester func(bit int)

// Color is an RGB triple in the DMG's four-shade palette, already resolved
// from a BGP/OBPn palette byte and a 2-bit color index.
type Color struct {
	R, G, B uint8
}

// dmgShades is the classic four-shade Game Boy green palette, lightest to
// darkest, used to resolve a palette register's 2-bit-per-shade encoding
// into host RGB. Not grounded in any retrieved source; the reference Rust
// implementation's own palette table was not present in the pack.
var dmgShades = [4]Color{
	{R: 0x9B, G: 0xBC, B: 0x0F},
	{R: 0x8B, G: 0xAC, B: 0x0F},
	{R: 0x30, G: 0x62, B: 0x30},
	{R: 0x0F, G: 0x38, B: 0x0F},
}

// Screen is the host sink a completed frame is pushed to, owned by the PPU.
type Screen interface {
	TurnOn()
	TurnOff()
	SetPixel(x, y int, c Color)
	Draw()
	FrameRate() int
}

// LineRegs is a snapshot of the registers that affect rendering, captured at
// the moment a scanline enters pixel transfer (mode 3), so that the scanline
// is rendered using the values that were live for that line rather than
// whatever the CPU has since written.
type LineRegs struct {
	SCX, SCY             byte
	WX, WY                byte
	LCDC, BGP, OBP0, OBP1 byte
	WinLine               byte
}

// PPU models VRAM/OAM, LCDC/STAT regs, LY/LYC, scanline rendering, and
// sprite compositing.
type PPU struct {
	// memory
	vram [0x2000]byte // 0x8000–0x9FFF
	oam  [0xA0]byte   // 0xFE00–0xFE9F

	// regs
	lcdc byte // FF40
	stat byte // FF41 (mode bits 0-1, coincidence flag bit2, enables bits3-6)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot int // dots within current line [0..455]

	winCounter int // internal window-line counter, reset each frame; -1 = not yet shown

	lineRegs [154]LineRegs

	screen Screen

	req InterruptRequester
}

func New(req InterruptRequester) *PPU {
	return &PPU{req: req, winCounter: -1}
}

// SetScreen attaches the host frame sink. A nil screen disables rendering
// callbacks (useful for headless CPU-only tests).
func (p *PPU) SetScreen(s Screen) {
	p.screen = s
	if s != nil {
		if p.lcdc&0x80 != 0 {
			s.TurnOn()
		} else {
			s.TurnOff()
		}
	}
}

// LineRegs returns the register snapshot captured for scanline ly the last
// time it entered pixel transfer.
func (p *PPU) LineRegs(ly int) LineRegs {
	if ly < 0 || ly >= len(p.lineRegs) {
		return LineRegs{}
	}
	return p.lineRegs[ly]
}

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		// VRAM is inaccessible to CPU during mode 3 (return 0xFF)
		if (p.stat & 0x03) == 3 {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		// OAM is inaccessible during modes 2 and 3
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		// On DMG, bit7 reads as 1; bit6..3 are enables; bit2 coincidence; bit1..0 mode.
		// While the LCD is off, mode always reads as 1 (VBlank-equivalent).
		if p.lcdc&0x80 == 0 {
			return 0x80 | (p.stat &^ 0x03) | 0x01
		}
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs. Others are ignored here.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			// Turning LCD off resets LY and blanks the screen; mode
			// reports 1 (VBlank-equivalent) while off.
			p.ly = 0
			p.dot = 0
			p.setMode(1)
			p.updateLYC()
			if p.screen != nil {
				p.screen.TurnOff()
			}
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			// Turning LCD on: start at LY=0, mode 2 (OAM).
			p.ly = 0
			p.dot = 0
			p.winCounter = -1
			p.setMode(2)
			p.updateLYC()
			if p.screen != nil {
				p.screen.TurnOn()
			}
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		p.ly = 0
		p.dot = 0
		p.updateLYC()
		if (p.lcdc & 0x80) != 0 {
			p.setMode(2)
		}
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// Tick advances PPU state by the given number of dots (CPU cycles).
func (p *PPU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if (p.lcdc & 0x80) == 0 { // LCD off
			continue
		}
		p.dot++
		// Mode scheduling
		var mode byte
		if p.ly >= 144 {
			mode = 1
		} else {
			switch {
			case p.dot < 80:
				mode = 2
			case p.dot < 80+172:
				mode = 3
			default:
				mode = 0
			}
		}
		p.setMode(mode)

		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				// Enter VBlank
				if p.req != nil {
					p.req(0)
				} // VBlank IF
				if (p.stat & (1 << 4)) != 0 {
					if p.req != nil {
						p.req(1)
					}
				} // STAT VBlank
				if p.screen != nil {
					p.screen.Draw()
				}
			} else if p.ly > 153 {
				p.ly = 0
				p.winCounter = -1
			}
			p.updateLYC()
			// Set mode for new line start (dot=0)
			if p.ly >= 144 {
				p.setMode(1)
			} else {
				p.setMode(2)
			}
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case 0: // HBlank
		p.renderScanline(int(p.ly))
		if (p.stat & (1 << 3)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 2: // OAM
		if (p.stat & (1 << 5)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 3:
		p.captureLineRegs(int(p.ly))
	}
}

// captureLineRegs snapshots the registers that affect rendering for line ly
// and advances the window-line counter if the window is visible this line.
func (p *PPU) captureLineRegs(ly int) {
	if ly < 0 || ly >= len(p.lineRegs) {
		return
	}
	visible := p.windowEnabled() && ly >= int(p.wy) && p.wx < 166
	if visible {
		p.winCounter++
	}
	wl := p.winCounter
	if wl < 0 {
		wl = 0
	}
	p.lineRegs[ly] = LineRegs{
		SCX: p.scx, SCY: p.scy,
		WX: p.wx, WY: p.wy,
		LCDC: p.lcdc, BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WinLine: byte(wl),
	}
}

func (p *PPU) windowEnabled() bool { return p.lcdc&0x20 != 0 }
func (p *PPU) bgEnabled() bool     { return p.lcdc&0x01 != 0 }
func (p *PPU) objEnabled() bool    { return p.lcdc&0x02 != 0 }
func (p *PPU) tallSprites() bool   { return p.lcdc&0x04 != 0 }

// Read implements VRAMReader for the tile fetchers; unlike CPURead it is
// never subject to mode-based access blocking, since it is the renderer
// itself running between CPU cycles.
func (p *PPU) Read(addr uint16) byte {
	if addr >= 0x8000 && addr <= 0x9FFF {
		return p.vram[addr-0x8000]
	}
	return 0xFF
}

// renderScanline composes BG, window, and sprite layers for ly using the
// registers captured when the line entered pixel transfer, and pushes the
// result to the attached screen.
func (p *PPU) renderScanline(ly int) {
	if p.screen == nil || ly < 0 || ly > 143 {
		return
	}
	lr := p.LineRegs(ly)

	var bgci [160]byte
	if lr.LCDC&0x01 != 0 {
		mapBase := uint16(0x9800)
		if lr.LCDC&0x08 != 0 {
			mapBase = 0x9C00
		}
		tileData8000 := lr.LCDC&0x10 != 0
		bgci = RenderBGScanlineUsingFetcher(p, mapBase, tileData8000, lr.SCX, lr.SCY, byte(ly))
	}
	if lr.LCDC&0x20 != 0 && lr.WX < 166 && ly >= int(lr.WY) {
		mapBase := uint16(0x9800)
		if lr.LCDC&0x40 != 0 {
			mapBase = 0x9C00
		}
		tileData8000 := lr.LCDC&0x10 != 0
		wxStart := int(lr.WX) - 7
		win := RenderWindowScanlineUsingFetcher(p, mapBase, tileData8000, wxStart, lr.WinLine)
		for x := 0; x < 160; x++ {
			if x >= wxStart {
				bgci[x] = win[x]
			}
		}
	}

	var shades [160]byte
	for x := 0; x < 160; x++ {
		shades[x] = shadeFromPalette(lr.BGP, bgci[x])
	}

	if lr.LCDC&0x02 != 0 {
		sprites := spritesOnLine(p.oam, ly, p.tallSprites())
		spr := ComposeSpriteLine(p, sprites, ly, bgci, p.tallSprites())
		for x := 0; x < 160; x++ {
			if spr[x] == 0 {
				continue
			}
			ci := spr[x] & 0x03
			pal := lr.OBP0
			if spr[x]&0x04 != 0 {
				pal = lr.OBP1
			}
			shades[x] = shadeFromPalette(pal, ci)
		}
	}

	for x := 0; x < 160; x++ {
		p.screen.SetPixel(x, ly, dmgShades[shades[x]&0x03])
	}
}

func shadeFromPalette(pal, colorIndex byte) byte {
	return (pal >> (colorIndex * 2)) & 0x03
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if (p.stat & (1 << 6)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	} else {
		p.stat &^= 1 << 2
	}
}

// Expose palettes and scroll for renderer convenience (optional helpers)
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }

type ppuState struct {
	VRAM       [0x2000]byte
	OAM        [0xA0]byte
	LCDC, STAT byte
	SCY, SCX   byte
	LY, LYC    byte
	BGP        byte
	OBP0, OBP1 byte
	WY, WX     byte
	Dot        int
	WinCounter int
}

// SaveState serializes VRAM, OAM, and all PPU registers/timing state.
func (p *PPU) SaveState() []byte {
	var buf bytes.Buffer
	s := ppuState{
		VRAM: p.vram, OAM: p.oam,
		LCDC: p.lcdc, STAT: p.stat,
		SCY: p.scy, SCX: p.scx,
		LY: p.ly, LYC: p.lyc,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WY: p.wy, WX: p.wx,
		Dot: p.dot, WinCounter: p.winCounter,
	}
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

// LoadState restores VRAM, OAM, and all PPU registers/timing state from
// SaveState output. Malformed data is ignored, leaving state unchanged.
func (p *PPU) LoadState(data []byte) {
	var s ppuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	p.vram, p.oam = s.VRAM, s.OAM
	p.lcdc, p.stat = s.LCDC, s.STAT
	p.scy, p.scx = s.SCY, s.SCX
	p.ly, p.lyc = s.LY, s.LYC
	p.bgp, p.obp0, p.obp1 = s.BGP, s.OBP0, s.OBP1
	p.wy, p.wx = s.WY, s.WX
	p.dot, p.winCounter = s.Dot, s.WinCounter
}
