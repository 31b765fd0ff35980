package joypad

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gbcore/internal/interrupt"
)

func newJoypad() (*Joypad, *interrupt.Controller) {
	irq := interrupt.New()
	irq.WriteIE(1 << uint(interrupt.Joypad))
	return New(irq), irq
}

func TestNoSelectReadsAllOnes(t *testing.T) {
	j, _ := newJoypad()
	j.WriteP1(selectDirections | selectActions)
	require.Equal(t, byte(0xFF), j.ReadP1())
}

func TestDirectionRowReflectsPressedButtons(t *testing.T) {
	j, _ := newJoypad()
	j.WriteP1(selectActions) // select directions (bit4=0), actions deselected
	j.SetButton(Up, true)
	require.Equal(t, byte(0xEB), j.ReadP1()) // bit2 (Up) clear, bit4 clear (directions selected)
}

func TestPressTriggersJoypadInterrupt(t *testing.T) {
	j, irq := newJoypad()
	j.WriteP1(selectActions) // directions selected
	j.SetButton(Left, true)
	require.True(t, irq.AnyPending())
}

func TestReleaseDoesNotTriggerInterrupt(t *testing.T) {
	j, irq := newJoypad()
	j.WriteP1(selectActions)
	j.SetButton(Left, true)
	irq.Acknowledge(interrupt.Joypad)
	j.SetButton(Left, false)
	require.False(t, irq.AnyPending())
}

func TestUnselectedRowButtonsDoNotAffectOutput(t *testing.T) {
	j, _ := newJoypad()
	j.WriteP1(selectDirections) // actions selected, directions deselected
	j.SetButton(Up, true)       // direction button, but direction row not selected
	require.Equal(t, byte(0x0F), j.ReadP1()&0x0F)
}
