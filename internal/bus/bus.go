package bus

import (
	"bytes"
	"encoding/gob"
	"io"

	"gbcore/internal/apu"
	"gbcore/internal/cart"
	"gbcore/internal/interrupt"
	"gbcore/internal/joypad"
	"gbcore/internal/ppu"
	"gbcore/internal/timer"
)

// Bus wires CPU-visible address space to cartridge, WRAM, HRAM, and the
// peripherals (PPU, timer, joypad, interrupt controller).
type Bus struct {
	cart cart.Cartridge

	// Work RAM (WRAM) 8 KiB at 0xC000–0xDFFF; Echo 0xE000–0xFDFF mirrors C000–DDFF.
	wram [0x2000]byte

	// High RAM (HRAM) 0xFF80–0xFFFE (127 bytes)
	hram [0x7F]byte

	ppu    *ppu.PPU
	timer  *timer.Timer
	joypad *joypad.Joypad
	irq    *interrupt.Controller
	apu    *apu.APU

	// Serial
	sb byte      // FF01 data
	sc byte      // FF02 control (bit7 start, bit0 clock source; we do immediate external)
	sw io.Writer // sink for serial output (optional)

	// OAM DMA state
	dma       byte // FF46
	dmaActive bool
	dmaSrc    uint16
	dmaIndex  int

	// Boot ROM support
	bootROM     []byte
	bootEnabled bool
}

// New constructs a Bus with the cartridge cart.NewCartridge picks from rom's
// header, for convenience.
func New(rom []byte) *Bus {
	return NewWithCartridge(cart.NewCartridge(rom))
}

// NewWithCartridge wires a provided cartridge implementation.
func NewWithCartridge(c cart.Cartridge) *Bus {
	irq := interrupt.New()
	b := &Bus{
		cart:   c,
		irq:    irq,
		timer:  timer.New(irq),
		joypad: joypad.New(irq),
		apu:    apu.New(),
	}
	b.ppu = ppu.New(func(bit int) { irq.Request(interrupt.Line(bit)) })
	return b
}

// PPU returns the internal PPU for read-only rendering helpers. Avoids breaking encapsulation for CPU access.
func (b *Bus) PPU() *ppu.PPU { return b.ppu }

// Cart returns the underlying cartridge for optional battery operations (read-only interface exposure).
func (b *Bus) Cart() cart.Cartridge { return b.cart }

// Interrupts returns the interrupt controller shared by the CPU and all peripherals.
func (b *Bus) Interrupts() *interrupt.Controller { return b.irq }

// Joypad returns the joypad peripheral so a host can report key state.
func (b *Bus) Joypad() *joypad.Joypad { return b.joypad }

// APU returns the register-only sound unit.
func (b *Bus) APU() *apu.APU { return b.apu }

func (b *Bus) Read(addr uint16) byte {
	switch {
	// Cartridge ROM and External RAM (banked) are handled by the cartridge
	case addr < 0x8000:
		// When boot ROM is enabled, it overlays 0x0000-0x00FF
		if b.bootEnabled && addr < 0x0100 && len(b.bootROM) >= 0x100 {
			return b.bootROM[addr]
		}
		return b.cart.Read(addr)
	// VRAM (via PPU)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return b.cart.Read(addr)

	// Work RAM 0xC000–0xDFFF (8 KiB); note upper bound is inclusive 0xDFFF
	case addr >= 0xC000 && addr <= 0xDFFF:
		return b.wram[addr-0xC000]

	// Echo RAM 0xE000–0xFDFF mirrors 0xC000–0xDDFF
	case addr >= 0xE000 && addr <= 0xFDFF:
		mirror := addr - 0x2000
		return b.wram[mirror-0xC000]

	// High RAM 0xFF80–0xFFFE (IE at 0xFFFF is handled further down)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	// OAM via PPU (reads blocked during DMA)
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if b.dmaActive {
			return 0xFF
		}
		return b.ppu.CPURead(addr)
	// IO: JOYP at 0xFF00
	case addr == 0xFF00:
		return b.joypad.ReadP1()
	// IO: Timers
	case addr == 0xFF04:
		return b.timer.ReadDIV()
	case addr == 0xFF05:
		return b.timer.ReadTIMA()
	case addr == 0xFF06:
		return b.timer.ReadTMA()
	case addr == 0xFF07:
		return b.timer.ReadTAC()
	// Serial
	case addr == 0xFF01:
		return b.sb
	case addr == 0xFF02:
		// upper bits read as 1 except bit7 reflects transfer in progress; we complete immediately
		return 0x7E | (b.sc & 0x81)
	// LCDC/STAT/LY/LYC and scroll/window via PPU
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		return b.ppu.CPURead(addr)
	case addr == 0xFF46:
		return b.dma
	// Audio registers via the register-only APU
	case addr >= 0xFF10 && addr <= 0xFF3F:
		return b.apu.CPURead(addr)
	// Boot ROM disable register (read returns 0xFF on DMG; keep simple)
	case addr == 0xFF50:
		return 0xFF
	// IO: IF at 0xFF0F, other IO not implemented (return 0xFF)
	case addr == 0xFF0F:
		return b.irq.ReadIF()
	// IE at 0xFFFF
	case addr == 0xFFFF:
		return b.irq.ReadIE()
	}
	return 0xFF
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	// Cartridge control and external RAM writes
	case addr < 0x8000:
		b.cart.Write(addr, value)
		return
	// VRAM via PPU
	case addr >= 0x8000 && addr <= 0x9FFF:
		b.ppu.CPUWrite(addr, value)
		return
	case addr >= 0xA000 && addr <= 0xBFFF:
		b.cart.Write(addr, value)
		return

	// Work RAM
	case addr >= 0xC000 && addr <= 0xDFFF:
		b.wram[addr-0xC000] = value
		return

	// Echo RAM mirrors C000–DDFF
	case addr >= 0xE000 && addr <= 0xFDFF:
		mirror := addr - 0x2000
		if mirror >= 0xC000 && mirror <= 0xDDFF {
			b.wram[mirror-0xC000] = value
		}
		return

	// High RAM
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
		return
	// OAM via PPU (writes ignored during DMA)
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if b.dmaActive {
			return
		}
		b.ppu.CPUWrite(addr, value)
		return
	// IO: JOYP at 0xFF00
	case addr == 0xFF00:
		b.joypad.WriteP1(value)
		return
	// IO: Timers
	case addr == 0xFF04:
		b.timer.WriteDIV(value)
		return
	case addr == 0xFF05:
		b.timer.WriteTIMA(value)
		return
	case addr == 0xFF06:
		b.timer.WriteTMA(value)
		return
	case addr == 0xFF07:
		b.timer.WriteTAC(value)
		return
	// Serial
	case addr == 0xFF01:
		b.sb = value
		return
	case addr == 0xFF02:
		b.sc = value & 0x81
		if (b.sc & 0x80) != 0 {
			// Start transfer: we do immediate completion; write byte to sink if present
			if b.sw != nil {
				_, _ = b.sw.Write([]byte{b.sb})
			}
			b.irq.Request(interrupt.Serial)
			// Clear transfer start bit to indicate done
			b.sc &^= 0x80
		}
		return
	// LCDC/STAT/LY/LYC and scroll/window via PPU
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		b.ppu.CPUWrite(addr, value)
		return
	case addr == 0xFF46:
		// OAM DMA: initiate 160-byte transfer from value*0x100 to FE00, 1 byte per cycle
		b.dma = value
		b.dmaActive = true
		b.dmaSrc = uint16(value) << 8
		b.dmaIndex = 0
		return
	// Audio registers via the register-only APU
	case addr >= 0xFF10 && addr <= 0xFF3F:
		b.apu.CPUWrite(addr, value)
		return
	case addr == 0xFF50:
		// Real hardware latches the overlay off on any non-zero write, not
		// just the canonical 0x01 most boot ROMs write (declared choice,
		// see DESIGN.md).
		if value != 0x00 {
			b.bootEnabled = false
		}
		return
	// IO: IF at 0xFF0F
	case addr == 0xFF0F:
		b.irq.WriteIF(value)
		return
	// IE at 0xFFFF
	case addr == 0xFFFF:
		b.irq.WriteIE(value)
		return
	}
	// Unhandled regions are ignored for now
}

// Joypad button bitmasks for SetJoypadState. Bits set mean "pressed".
const (
	JoypRight     = 1 << 0
	JoypLeft      = 1 << 1
	JoypUp        = 1 << 2
	JoypDown      = 1 << 3
	JoypA         = 1 << 4
	JoypB         = 1 << 5
	JoypSelectBtn = 1 << 6
	JoypStart     = 1 << 7
)

// joypBitButton maps each Joyp* bit position (0..7) to the corresponding
// joypad.Button constant.
var joypBitButton = [8]joypad.Button{
	joypad.Right, joypad.Left, joypad.Up, joypad.Down,
	joypad.A, joypad.B, joypad.Select, joypad.Start,
}

// SetJoypadState sets which buttons are currently pressed.
// Pass a mask using the Joyp* constants above; set bits mean pressed.
func (b *Bus) SetJoypadState(mask byte) {
	for bit := 0; bit < 8; bit++ {
		m := byte(1) << uint(bit)
		b.joypad.SetButton(joypBitButton[bit], mask&m != 0)
	}
}

// SetSerialWriter sets a sink that receives bytes written via the serial port.
func (b *Bus) SetSerialWriter(w io.Writer) { b.sw = w }

// SetBootROM loads a DMG boot ROM to be mapped at 0x0000-0x00FF until disabled via 0xFF50 write.
func (b *Bus) SetBootROM(data []byte) {
	b.bootROM = nil
	b.bootEnabled = false
	if len(data) >= 0x100 {
		b.bootROM = make([]byte, 0x100)
		copy(b.bootROM, data[:0x100])
		b.bootEnabled = true
	}
}

// Tick advances timers, PPU, and DMA by the given number of CPU cycles.
func (b *Bus) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		b.timer.Tick()
		if b.ppu != nil {
			b.ppu.Tick(1)
		}
		b.apu.Tick(1)
		if b.dmaActive {
			if b.dmaIndex < 0xA0 {
				v := b.Read(b.dmaSrc + uint16(b.dmaIndex))
				b.ppu.CPUWrite(0xFE00+uint16(b.dmaIndex), v)
				b.dmaIndex++
			}
			if b.dmaIndex >= 0xA0 {
				b.dmaActive = false
			}
		}
	}
}

// --- Save/Load state ---
type busState struct {
	WRAM      [0x2000]byte
	HRAM      [0x7F]byte
	SB, SC    byte
	DMA       byte
	DMAActive bool
	DMASrc    uint16
	DMAIdx    int
	BootEn    bool
}

func (b *Bus) SaveState() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	s := busState{
		WRAM: b.wram, HRAM: b.hram,
		SB: b.sb, SC: b.sc,
		DMA: b.dma, DMAActive: b.dmaActive, DMASrc: b.dmaSrc, DMAIdx: b.dmaIndex,
		BootEn: b.bootEnabled,
	}
	_ = enc.Encode(s)
	if b.ppu != nil {
		_ = enc.Encode(b.ppu.SaveState())
	} else {
		_ = enc.Encode([]byte(nil))
	}
	if bb, ok := b.cart.(interface{ SaveState() []byte }); ok {
		_ = enc.Encode(bb.SaveState())
	} else {
		_ = enc.Encode([]byte(nil))
	}
	_ = enc.Encode(b.apu.SaveState())
	return buf.Bytes()
}

func (b *Bus) LoadState(data []byte) {
	dec := gob.NewDecoder(bytes.NewReader(data))
	var s busState
	if err := dec.Decode(&s); err != nil {
		return
	}
	b.wram = s.WRAM
	b.hram = s.HRAM
	b.sb, b.sc = s.SB, s.SC
	b.dma, b.dmaActive, b.dmaSrc, b.dmaIndex = s.DMA, s.DMAActive, s.DMASrc, s.DMAIdx
	b.bootEnabled = s.BootEn

	var ps []byte
	if err := dec.Decode(&ps); err == nil && b.ppu != nil {
		b.ppu.LoadState(ps)
	}
	var cs []byte
	if err := dec.Decode(&cs); err == nil {
		if bb, ok := b.cart.(interface{ LoadState([]byte) }); ok {
			bb.LoadState(cs)
		}
	}
	var as []byte
	if err := dec.Decode(&as); err == nil {
		b.apu.LoadState(as)
	}
}
