package timer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gbcore/internal/interrupt"
)

func TestDIVIncrementsEveryTick(t *testing.T) {
	irq := interrupt.New()
	tm := New(irq)
	for i := 0; i < 256; i++ {
		tm.Tick()
	}
	require.Equal(t, byte(1), tm.ReadDIV())
}

func TestWriteDIVResets(t *testing.T) {
	irq := interrupt.New()
	tm := New(irq)
	for i := 0; i < 300; i++ {
		tm.Tick()
	}
	tm.WriteDIV(0x42)
	require.Equal(t, byte(0), tm.ReadDIV())
}

// TestOverflowRequestsInterrupt exercises the TAC=0x05 (enabled, divider 16
// => bit 3) overflow path: TIMA=0xFF, TMA=0xAB. The falling edge that
// overflows TIMA lands at T-cycle 16; per the documented 4-T-cycle delayed
// reload (§4.4), TIMA reads 0x00 until T-cycle 20, when it reloads to 0xAB
// and TIMER is requested.
func TestOverflowRequestsInterrupt(t *testing.T) {
	irq := interrupt.New()
	irq.WriteIE(1 << uint(interrupt.Timer))
	tm := New(irq)
	tm.WriteTAC(0x05)
	tm.WriteTMA(0xAB)
	tm.WriteTIMA(0xFF)

	for i := 0; i < 16; i++ {
		tm.Tick()
	}
	require.Equal(t, byte(0x00), tm.ReadTIMA())
	require.False(t, irq.AnyPending(), "reload is still pending, interrupt not yet requested")

	for i := 0; i < 4; i++ {
		tm.Tick()
	}
	require.True(t, irq.AnyPending())
	require.Equal(t, byte(0xAB), tm.ReadTIMA())
}

func TestDisabledTimerNeverIncrements(t *testing.T) {
	irq := interrupt.New()
	tm := New(irq)
	tm.WriteTAC(0x00) // enable bit clear
	for i := 0; i < 100000; i++ {
		tm.Tick()
	}
	require.Equal(t, byte(0), tm.ReadTIMA())
}

func TestTACReadbackHighBits(t *testing.T) {
	irq := interrupt.New()
	tm := New(irq)
	tm.WriteTAC(0xFF)
	require.Equal(t, byte(0xFF), tm.ReadTAC())
	tm.WriteTAC(0x00)
	require.Equal(t, byte(0xF8), tm.ReadTAC())
}
