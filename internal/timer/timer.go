// Package timer implements the DIV/TIMA/TMA/TAC timer block: a free-running
// 16-bit divider and a falling-edge-driven TIMA counter that requests the
// TIMER interrupt on overflow.
package timer

import (
	"log"
	"os"

	"gbcore/internal/interrupt"
)

// bitForTAC maps TAC's low two bits to the sysclock bit TIMA's falling-edge
// detector watches.
var bitForTAC = [4]uint{9, 3, 5, 7}

// debugTimer gates verbose per-write tracing, the same opt-in the teacher
// wired through bus.go's GB_DEBUG_TIMER env check (there as fmt.Printf calls
// inline in the bus; here as log.Printf calls against the timer's own state
// now that the timer owns its registers instead of the bus).
var debugTimer = os.Getenv("GB_DEBUG_TIMER") != ""

// Timer owns the 16-bit sysclock plus the four timer registers. It is
// advanced one T-cycle at a time from the bus's Tick loop so every
// intermediate sysclock value is visible to the falling-edge detector.
type Timer struct {
	sysclock uint16
	tima     byte
	tma      byte
	tac      byte

	reloadDelay int // remaining T-cycles until a pending TIMA overflow reloads
	irq         *interrupt.Controller
}

// New returns a timer wired to request TIMER interrupts on irq.
func New(irq *interrupt.Controller) *Timer {
	return &Timer{irq: irq}
}

func (t *Timer) selectedBit() bool {
	bit := bitForTAC[t.tac&0x3]
	return (t.sysclock>>bit)&1 != 0
}

func (t *Timer) enabled() bool { return t.tac&0x04 != 0 }

// Tick advances the timer by one T-cycle.
func (t *Timer) Tick() {
	if t.reloadDelay > 0 {
		t.reloadDelay--
		if t.reloadDelay == 0 {
			t.tima = t.tma
			t.irq.Request(interrupt.Timer)
		}
	}

	before := t.enabled() && t.selectedBit()
	t.sysclock++
	after := t.enabled() && t.selectedBit()

	if before && !after {
		t.incrementTIMA()
	}
}

func (t *Timer) incrementTIMA() {
	if t.reloadDelay > 0 {
		// A reload is already pending; hardware does not double-increment
		// while TIMA reads 0x00 during the delay window.
		return
	}
	if t.tima == 0xFF {
		t.tima = 0x00
		t.reloadDelay = 4
		return
	}
	t.tima++
}

// ReadDIV returns the upper 8 bits of sysclock.
func (t *Timer) ReadDIV() byte { return byte(t.sysclock >> 8) }

// WriteDIV resets sysclock to zero, as any write to DIV does on real
// hardware regardless of the value written.
func (t *Timer) WriteDIV(byte) {
	t.sysclock = 0
	if debugTimer {
		log.Printf("[TMR] DIV write -> reset (div=0000) tima=%02X tma=%02X tac=%02X reload=%d", t.tima, t.tma, t.tac, t.reloadDelay)
	}
}

// ReadTIMA returns the live counter value.
func (t *Timer) ReadTIMA() byte { return t.tima }

// WriteTIMA stores a new counter value and cancels any pending overflow
// reload, matching the teacher's and reference behavior of a direct write
// overriding the delayed reload.
func (t *Timer) WriteTIMA(v byte) {
	t.tima = v
	t.reloadDelay = 0
	if debugTimer {
		log.Printf("[TMR] TIMA write %02X tma=%02X tac=%02X reload=%d", v, t.tma, t.tac, t.reloadDelay)
	}
}

// ReadTMA returns the reload value.
func (t *Timer) ReadTMA() byte { return t.tma }

// WriteTMA stores the reload value.
func (t *Timer) WriteTMA(v byte) {
	t.tma = v
	if debugTimer {
		log.Printf("[TMR] TMA write %02X (tima=%02X tac=%02X reload=%d)", v, t.tima, t.tac, t.reloadDelay)
	}
}

// ReadTAC returns TAC with its five unused high bits read back as 1.
func (t *Timer) ReadTAC() byte { return 0xF8 | (t.tac & 0x07) }

// WriteTAC stores the low three bits (enable + clock select).
func (t *Timer) WriteTAC(v byte) {
	oldInput := t.enabled() && t.selectedBit()
	t.tac = v & 0x07
	if debugTimer {
		log.Printf("[TMR] TAC write %02X (input %v->%v) tima=%02X tma=%02X reload=%d", t.tac, oldInput, t.enabled() && t.selectedBit(), t.tima, t.tma, t.reloadDelay)
	}
}
