// Package joypad implements the P1 (0xFF00) row-selected button matrix and
// its edge-triggered JOYPAD interrupt.
package joypad

import "gbcore/internal/interrupt"

// Button identifies one of the eight physical buttons.
type Button int

const (
	A Button = iota
	B
	Select
	Start
	Up
	Down
	Left
	Right
)

const (
	selectDirections = 1 << 4
	selectActions    = 1 << 5
)

// Joypad tracks which of the eight buttons are currently held and which row
// (directions or actions) the CPU has selected via bits 4-5 of P1.
type Joypad struct {
	selectBits byte // raw bits 4-5 as last written, active-low semantics applied on read
	pressed    [8]bool

	irq *interrupt.Controller
}

// New returns a joypad with no buttons held, wired to request JOYPAD
// interrupts on irq.
func New(irq *interrupt.Controller) *Joypad {
	return &Joypad{selectBits: selectDirections | selectActions, irq: irq}
}

// rowNibble returns the active-low 4-bit output for the currently selected
// row(s), OR-ed together the way real hardware does when both selects are
// low simultaneously.
func (j *Joypad) rowNibble() byte {
	nibble := byte(0x0F)
	if j.selectBits&selectDirections == 0 {
		nibble &= j.directionNibble()
	}
	if j.selectBits&selectActions == 0 {
		nibble &= j.actionNibble()
	}
	return nibble
}

func (j *Joypad) directionNibble() byte {
	var n byte = 0x0F
	if j.pressed[Right] {
		n &^= 1 << 0
	}
	if j.pressed[Left] {
		n &^= 1 << 1
	}
	if j.pressed[Up] {
		n &^= 1 << 2
	}
	if j.pressed[Down] {
		n &^= 1 << 3
	}
	return n
}

func (j *Joypad) actionNibble() byte {
	var n byte = 0x0F
	if j.pressed[A] {
		n &^= 1 << 0
	}
	if j.pressed[B] {
		n &^= 1 << 1
	}
	if j.pressed[Select] {
		n &^= 1 << 2
	}
	if j.pressed[Start] {
		n &^= 1 << 3
	}
	return n
}

// ReadP1 returns the full register: select bits as last written plus the
// active-low row nibble, with bits 6-7 reading as 1.
func (j *Joypad) ReadP1() byte {
	return 0xC0 | (j.selectBits & 0x30) | j.rowNibble()
}

// WriteP1 stores the select bits (bits 0-3 are read-only from the CPU's
// perspective and ignored here).
func (j *Joypad) WriteP1(v byte) {
	before := j.rowNibble()
	j.selectBits = v & 0x30
	j.checkEdge(before)
}

// SetButton updates the held state of button and requests JOYPAD on any
// newly exposed 1->0 transition of the selected row.
func (j *Joypad) SetButton(b Button, held bool) {
	before := j.rowNibble()
	j.pressed[b] = held
	j.checkEdge(before)
}

func (j *Joypad) checkEdge(before byte) {
	after := j.rowNibble()
	if falling := before &^ after; falling != 0 {
		j.irq.Request(interrupt.Joypad)
	}
}
