// Package apu implements the DMG sound unit at the register level: the
// NR10-NR52 I/O ports, wave RAM, the 512 Hz frame sequencer's length-counter
// clock, and the NR52 power/status bits. It does not synthesize PCM audio —
// cycle-accurate audio synthesis is explicitly out of scope (see SPEC_FULL.md
// Non-goals) — so there is no mixer and no sample buffer; the unit exists so
// the bus has something real to forward 0xFF10-0xFF3F to and so games that
// poll NR52 for channel-active status see correct behavior.
package apu

import (
	"bytes"
	"encoding/gob"
)

const cpuHz = 4194304

// Post-boot DMG register values (documented hardware behavior, not derived
// from any retrieved source): the values a real DMG leaves in the APU I/O
// ports once the boot ROM's "turn on sound" routine has run.
const (
	bootNR10 = 0x80
	bootNR11 = 0xBF
	bootNR12 = 0xF3
	bootNR14 = 0xBF
	bootNR21 = 0x3F
	bootNR24 = 0xBF
	bootNR30 = 0x7F
	bootNR31 = 0xFF
	bootNR32 = 0x9F
	bootNR34 = 0xBF
	bootNR41 = 0xFF
	bootNR44 = 0xBF
	bootNR50 = 0x77
	bootNR51 = 0xF3
	bootNR52 = 0xF1
)

// APU holds the raw register file plus the minimal state needed to make
// length counters and the NR52 status bits behave correctly.
type APU struct {
	power bool

	nr10, nr11, nr12, nr13, nr14 byte
	nr21, nr22, nr23, nr24       byte
	nr30, nr31, nr32, nr33, nr34 byte
	nr41, nr42, nr43, nr44       byte
	nr50, nr51, nr52             byte

	wave [16]byte // FF30-FF3F

	ch1On, ch2On, ch3On, ch4On bool
	len1, len2, len3, len4      int // counts down to 0; channel turns off at 0

	fsCounter int // CPU cycles until the next 512 Hz frame-sequencer step
	fsStep    int // 0..7
}

// New returns an APU with the register values a real DMG shows immediately
// after the boot ROM hands off to the cartridge.
func New() *APU {
	a := &APU{
		power:     true,
		nr10:      bootNR10, nr11: bootNR11, nr12: bootNR12, nr14: bootNR14,
		nr21: bootNR21, nr24: bootNR24,
		nr30: bootNR30, nr31: bootNR31, nr32: bootNR32, nr34: bootNR34,
		nr41: bootNR41, nr44: bootNR44,
		nr50: bootNR50, nr51: bootNR51, nr52: bootNR52,
		ch1On:     true,
		fsCounter: cpuHz / 512,
	}
	return a
}

// readMask tables: OR-ed into the stored byte on CPURead, per the
// well-documented set of "always reads as 1" bits for each APU port.
const (
	maskNR10 = 0x80
	maskNR11 = 0x3F
	maskNR12 = 0x00
	maskNR13 = 0xFF
	maskNR14 = 0xBF
	maskNR21 = 0x3F
	maskNR22 = 0x00
	maskNR23 = 0xFF
	maskNR24 = 0xBF
	maskNR30 = 0x7F
	maskNR31 = 0xFF
	maskNR32 = 0x9F
	maskNR33 = 0xFF
	maskNR34 = 0xBF
	maskNR41 = 0xFF
	maskNR42 = 0x00
	maskNR43 = 0x00
	maskNR44 = 0xBF
	maskNR50 = 0x00
	maskNR51 = 0x00
	maskNR52 = 0x70
)

// CPURead reads an APU register. Everything outside 0xFF10-0xFF3F returns
// 0xFF, as the bus never routes it here.
func (a *APU) CPURead(addr uint16) byte {
	switch addr {
	case 0xFF10:
		return a.nr10 | maskNR10
	case 0xFF11:
		return a.nr11 | maskNR11
	case 0xFF12:
		return a.nr12 | maskNR12
	case 0xFF13:
		return a.nr13 | maskNR13
	case 0xFF14:
		return a.nr14 | maskNR14
	case 0xFF16:
		return a.nr21 | maskNR21
	case 0xFF17:
		return a.nr22 | maskNR22
	case 0xFF18:
		return a.nr23 | maskNR23
	case 0xFF19:
		return a.nr24 | maskNR24
	case 0xFF1A:
		return a.nr30 | maskNR30
	case 0xFF1B:
		return a.nr31 | maskNR31
	case 0xFF1C:
		return a.nr32 | maskNR32
	case 0xFF1D:
		return a.nr33 | maskNR33
	case 0xFF1E:
		return a.nr34 | maskNR34
	case 0xFF20:
		return a.nr41 | maskNR41
	case 0xFF21:
		return a.nr42 | maskNR42
	case 0xFF22:
		return a.nr43 | maskNR43
	case 0xFF23:
		return a.nr44 | maskNR44
	case 0xFF24:
		return a.nr50 | maskNR50
	case 0xFF25:
		return a.nr51 | maskNR51
	case 0xFF26:
		return a.statusByte() | maskNR52
	case 0xFF30, 0xFF31, 0xFF32, 0xFF33, 0xFF34, 0xFF35, 0xFF36, 0xFF37,
		0xFF38, 0xFF39, 0xFF3A, 0xFF3B, 0xFF3C, 0xFF3D, 0xFF3E, 0xFF3F:
		return a.wave[addr-0xFF30]
	default:
		return 0xFF
	}
}

func (a *APU) statusByte() byte {
	var b byte
	if a.power {
		b |= 1 << 7
	}
	if a.ch1On {
		b |= 1 << 0
	}
	if a.ch2On {
		b |= 1 << 1
	}
	if a.ch3On {
		b |= 1 << 2
	}
	if a.ch4On {
		b |= 1 << 3
	}
	return b
}

// CPUWrite writes an APU register. While powered off, writes to every
// register except NR52 and wave RAM are ignored, matching DMG behavior.
func (a *APU) CPUWrite(addr uint16, v byte) {
	isWaveRAM := addr >= 0xFF30 && addr <= 0xFF3F
	if !a.power && addr != 0xFF26 && !isWaveRAM {
		return
	}
	switch addr {
	case 0xFF10:
		a.nr10 = v
	case 0xFF11:
		a.nr11 = v
		a.len1 = 64 - int(v&0x3F)
	case 0xFF12:
		a.nr12 = v
		if v&0xF8 == 0 {
			a.ch1On = false
		}
	case 0xFF13:
		a.nr13 = v
	case 0xFF14:
		a.nr14 = v
		if v&(1<<7) != 0 {
			a.trigger1()
		}
	case 0xFF16:
		a.nr21 = v
		a.len2 = 64 - int(v&0x3F)
	case 0xFF17:
		a.nr22 = v
		if v&0xF8 == 0 {
			a.ch2On = false
		}
	case 0xFF18:
		a.nr23 = v
	case 0xFF19:
		a.nr24 = v
		if v&(1<<7) != 0 {
			a.trigger2()
		}
	case 0xFF1A:
		a.nr30 = v
		if v&0x80 == 0 {
			a.ch3On = false
		}
	case 0xFF1B:
		a.nr31 = v
		a.len3 = 256 - int(v)
	case 0xFF1C:
		a.nr32 = v
	case 0xFF1D:
		a.nr33 = v
	case 0xFF1E:
		a.nr34 = v
		if v&(1<<7) != 0 {
			a.trigger3()
		}
	case 0xFF20:
		a.nr41 = v
		a.len4 = 64 - int(v&0x3F)
	case 0xFF21:
		a.nr42 = v
		if v&0xF8 == 0 {
			a.ch4On = false
		}
	case 0xFF22:
		a.nr43 = v
	case 0xFF23:
		a.nr44 = v
		if v&(1<<7) != 0 {
			a.trigger4()
		}
	case 0xFF24:
		a.nr50 = v
	case 0xFF25:
		a.nr51 = v
	case 0xFF26:
		pwr := v&(1<<7) != 0
		if pwr && !a.power {
			a.power = true
		} else if !pwr && a.power {
			a.powerOff()
		}
	case 0xFF30, 0xFF31, 0xFF32, 0xFF33, 0xFF34, 0xFF35, 0xFF36, 0xFF37,
		0xFF38, 0xFF39, 0xFF3A, 0xFF3B, 0xFF3C, 0xFF3D, 0xFF3E, 0xFF3F:
		a.wave[addr-0xFF30] = v
	}
}

// powerOff clears every register except wave RAM, matching the DMG: writing
// 0 to NR52 zeroes the whole sound unit and ignores further writes until
// power is restored.
func (a *APU) powerOff() {
	wave := a.wave
	*a = APU{power: false, wave: wave, fsCounter: cpuHz / 512}
}

func (a *APU) trigger1() {
	if a.nr12&0xF8 != 0 {
		a.ch1On = true
	}
	if a.len1 == 0 {
		a.len1 = 64
	}
}

func (a *APU) trigger2() {
	if a.nr22&0xF8 != 0 {
		a.ch2On = true
	}
	if a.len2 == 0 {
		a.len2 = 64
	}
}

func (a *APU) trigger3() {
	if a.nr30&0x80 != 0 {
		a.ch3On = true
	}
	if a.len3 == 0 {
		a.len3 = 256
	}
}

func (a *APU) trigger4() {
	if a.nr42&0xF8 != 0 {
		a.ch4On = true
	}
	if a.len4 == 0 {
		a.len4 = 64
	}
}

// Tick advances the frame sequencer by cycles CPU T-cycles, clocking length
// counters on sequencer steps 0, 2, 4, 6 (256 Hz) exactly as real hardware
// does, independent of whether a mixer exists to hear the result.
func (a *APU) Tick(cycles int) {
	if !a.power || cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		a.fsCounter--
		if a.fsCounter <= 0 {
			a.fsCounter += cpuHz / 512
			a.fsStep = (a.fsStep + 1) & 7
			if a.fsStep%2 == 0 {
				a.clockLength()
			}
		}
	}
}

func (a *APU) clockLength() {
	if a.nr14&(1<<6) != 0 && a.len1 > 0 {
		a.len1--
		if a.len1 == 0 {
			a.ch1On = false
		}
	}
	if a.nr24&(1<<6) != 0 && a.len2 > 0 {
		a.len2--
		if a.len2 == 0 {
			a.ch2On = false
		}
	}
	if a.nr34&(1<<6) != 0 && a.len3 > 0 {
		a.len3--
		if a.len3 == 0 {
			a.ch3On = false
		}
	}
	if a.nr44&(1<<6) != 0 && a.len4 > 0 {
		a.len4--
		if a.len4 == 0 {
			a.ch4On = false
		}
	}
}

type apuState struct {
	Power                        bool
	NR10, NR11, NR12, NR13, NR14 byte
	NR21, NR22, NR23, NR24       byte
	NR30, NR31, NR32, NR33, NR34 byte
	NR41, NR42, NR43, NR44       byte
	NR50, NR51, NR52             byte
	Wave                         [16]byte
	Ch1On, Ch2On, Ch3On, Ch4On bool
	Len1, Len2, Len3, Len4     int
	FSCounter, FSStep          int
}

func (a *APU) SaveState() []byte {
	s := apuState{
		Power: a.power,
		NR10: a.nr10, NR11: a.nr11, NR12: a.nr12, NR13: a.nr13, NR14: a.nr14,
		NR21: a.nr21, NR22: a.nr22, NR23: a.nr23, NR24: a.nr24,
		NR30: a.nr30, NR31: a.nr31, NR32: a.nr32, NR33: a.nr33, NR34: a.nr34,
		NR41: a.nr41, NR42: a.nr42, NR43: a.nr43, NR44: a.nr44,
		NR50: a.nr50, NR51: a.nr51, NR52: a.nr52,
		Wave:  a.wave,
		Ch1On: a.ch1On, Ch2On: a.ch2On, Ch3On: a.ch3On, Ch4On: a.ch4On,
		Len1: a.len1, Len2: a.len2, Len3: a.len3, Len4: a.len4,
		FSCounter: a.fsCounter, FSStep: a.fsStep,
	}
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

func (a *APU) LoadState(data []byte) {
	var s apuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	a.power = s.Power
	a.nr10, a.nr11, a.nr12, a.nr13, a.nr14 = s.NR10, s.NR11, s.NR12, s.NR13, s.NR14
	a.nr21, a.nr22, a.nr23, a.nr24 = s.NR21, s.NR22, s.NR23, s.NR24
	a.nr30, a.nr31, a.nr32, a.nr33, a.nr34 = s.NR30, s.NR31, s.NR32, s.NR33, s.NR34
	a.nr41, a.nr42, a.nr43, a.nr44 = s.NR41, s.NR42, s.NR43, s.NR44
	a.nr50, a.nr51, a.nr52 = s.NR50, s.NR51, s.NR52
	a.wave = s.Wave
	a.ch1On, a.ch2On, a.ch3On, a.ch4On = s.Ch1On, s.Ch2On, s.Ch3On, s.Ch4On
	a.len1, a.len2, a.len3, a.len4 = s.Len1, s.Len2, s.Len3, s.Len4
	a.fsCounter, a.fsStep = s.FSCounter, s.FSStep
}
