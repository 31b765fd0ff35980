// Package machine composes the CPU, bus, and peripherals into the top-level
// emulated console: the single entry point a host (a CLI runner, a test
// harness, eventually a GUI) drives to load a ROM, step instructions, feed
// input, and exchange save states.
package machine

import (
	"bytes"
	"encoding/gob"
	"io"
	"os"

	"gbcore/internal/bus"
	"gbcore/internal/cart"
	"gbcore/internal/cpu"
	"gbcore/internal/joypad"
	"gbcore/internal/ppu"
)

// Screen is the host frame sink, re-exported from ppu so callers of this
// package never need to import internal/ppu directly.
type Screen = ppu.Screen

// Color is the resolved RGB triple a Screen receives per pixel.
type Color = ppu.Color

// Audio is the host audio sink boundary described by the spec's External
// Interfaces. The register-only APU (see internal/apu and SPEC_FULL.md's
// Non-goals on cycle-accurate audio synthesis) never calls Play; Audio is
// accepted and retained purely so the machine's construction signature
// matches the documented host boundary and a future sample-producing APU
// has somewhere to plug in without an API break.
type Audio interface {
	Play(left, right []float32)
	SampleRate() int
	Underflowed() bool
}

// Button identifies one of the eight physical buttons, in the same order as
// joypad.Button (A, B, Select, Start, Up, Down, Left, Right).
type Button int

const (
	ButtonA Button = iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

var buttonToJoypad = [8]joypad.Button{
	joypad.A, joypad.B, joypad.Select, joypad.Start,
	joypad.Up, joypad.Down, joypad.Left, joypad.Right,
}

// Machine is the assembled console: CPU + bus (which itself owns the PPU,
// APU, timer, joypad, interrupt controller, and cartridge).
type Machine struct {
	cpu   *cpu.CPU
	audio Audio
	cfg   Config
}

// New loads rom (and, if non-empty, bootROM) and wires a fresh machine to
// screen and audio. A nil screen is valid (headless/no-render operation); a
// nil or empty bootROM is valid and means the machine starts in the
// documented post-boot register state (see Reset) rather than executing the
// real boot sequence from 0x0000.
func New(screen Screen, rom []byte, bootROM []byte, audio Audio) (*Machine, error) {
	if len(bootROM) != 0 && len(bootROM) != 0x100 {
		return nil, &InvalidBootROMError{Size: len(bootROM)}
	}
	c, err := cart.New(rom)
	if err != nil {
		return nil, err
	}
	b := bus.NewWithCartridge(c)
	if screen != nil {
		b.PPU().SetScreen(screen)
	}

	m := &Machine{cpu: cpu.New(b), audio: audio, cfg: Defaults()}

	if len(bootROM) == 0x100 {
		b.SetBootROM(bootROM)
		m.cpu.SetPC(0x0000)
	} else {
		m.Reset()
	}
	return m, nil
}

// LoadROMFromFile is a convenience constructor for CLI callers: it reads rom
// from disk and otherwise behaves like New with no boot ROM and no audio
// sink, matching the blargg-style headless test-ROM runner's needs.
func LoadROMFromFile(screen Screen, path string) (*Machine, error) {
	rom, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(screen, rom, nil, nil)
}

// Tick executes exactly one CPU instruction (including interrupt servicing
// and HALT spin) and returns the T-cycles it consumed, ticking every
// peripheral by the same amount along the way.
func (m *Machine) Tick() int {
	return m.cpu.Step()
}

// KeyPressed marks b as held, requesting a JOYPAD interrupt on the edge if
// the currently selected row is affected.
func (m *Machine) KeyPressed(b Button) {
	m.cpu.Bus().Joypad().SetButton(buttonToJoypad[b], true)
}

// KeyReleased marks b as released.
func (m *Machine) KeyReleased(b Button) {
	m.cpu.Bus().Joypad().SetButton(buttonToJoypad[b], false)
}

// Reset restores the documented DMG post-boot register state: the state a
// real console is in the instant the boot ROM hands control to the
// cartridge, used whenever no boot ROM was supplied.
func (m *Machine) Reset() {
	m.cpu.ResetNoBoot()
	b := m.cpu.Bus()
	b.Write(0xFFFF, 0x00) // IE
	b.Write(0xFF0F, 0xE1) // IF
	b.Write(0xFF40, 0x91) // LCDC
	b.Write(0xFF47, 0xFC) // BGP
	b.Write(0xFF48, 0xFF) // OBP0
	b.Write(0xFF49, 0xFF) // OBP1
}

// Registers is a point-in-time snapshot of the CPU register file, for
// tracing tools (see cmd/gbcore's trace subcommand).
type Registers struct {
	A, F, B, C, D, E, H, L byte
	SP, PC                 uint16
	IME                    bool
}

// Registers returns the current register file and interrupt-master-enable
// state.
func (m *Machine) Registers() Registers {
	c := m.cpu
	return Registers{
		A: c.A, F: c.F, B: c.B, C: c.C, D: c.D, E: c.E, H: c.H, L: c.L,
		SP: c.SP, PC: c.PC,
		IME: c.Bus().Interrupts().IME(),
	}
}

// IllegalOpcode surfaces the diagnostic latch the CPU records the first time
// it decodes an undefined opcode: the opcode byte, the PC it was fetched
// from, and whether one has actually occurred.
func (m *Machine) IllegalOpcode() (op byte, pc uint16, ok bool) {
	return m.cpu.IllegalOpcode()
}

// SetSerialWriter attaches a sink for bytes written through the serial port
// (0xFF01/0xFF02), the mechanism blargg-style test ROMs use to report
// pass/fail.
func (m *Machine) SetSerialWriter(w io.Writer) {
	m.cpu.Bus().SetSerialWriter(w)
}

// StepFrameNoRender runs CPU instructions until at least one frame's worth of
// T-cycles (70,224) has elapsed, without requiring a Screen to be attached.
// It counts cycles only and is not aligned to the PPU's VBlank —
// useful for headless test-ROM harnesses that only care about serial output.
func (m *Machine) StepFrameNoRender() {
	const cyclesPerFrame = 70224
	spent := 0
	for spent < cyclesPerFrame {
		spent += m.Tick()
	}
}

// machineState bundles the CPU register file with the bus/peripheral blob
// produced by bus.SaveState, so a single byte slice round-trips the whole
// machine.
type machineState struct {
	CPU []byte
	Bus []byte
}

// SaveState serializes the machine: CPU registers, WRAM/HRAM, PPU, APU, and
// the cartridge's banking state (and battery RAM, if any). The timer
// (DIV/TIMA/TMA/TAC), joypad and interrupt controller (IE/IF/IME) are not
// included. Not a cross-implementation save format —
// internal use only (save/load within this module between runs).
func (m *Machine) SaveState() ([]byte, error) {
	s := machineState{CPU: m.cpu.SaveState(), Bus: m.cpu.Bus().SaveState()}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadState restores a machine previously serialized with SaveState.
func (m *Machine) LoadState(data []byte) error {
	var s machineState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	m.cpu.LoadState(s.CPU)
	m.cpu.Bus().LoadState(s.Bus)
	return nil
}
