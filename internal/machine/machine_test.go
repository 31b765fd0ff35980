package machine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// validROM returns a minimal ROM-only cartridge image with a header
// checksum that passes cart.HeaderChecksumOK, so machine.New's validating
// constructor accepts it.
func validROM(size int) []byte {
	rom := make([]byte, size)
	var sum byte
	for addr := 0x0134; addr <= 0x014C; addr++ {
		sum = sum - rom[addr] - 1
	}
	rom[0x014D] = sum
	return rom
}

type fakeScreen struct {
	pixels   map[[2]int]Color
	draws    int
	on, off  int
}

func newFakeScreen() *fakeScreen { return &fakeScreen{pixels: map[[2]int]Color{}} }

func (s *fakeScreen) TurnOn()                        { s.on++ }
func (s *fakeScreen) TurnOff()                       { s.off++ }
func (s *fakeScreen) SetPixel(x, y int, c Color)      { s.pixels[[2]int{x, y}] = c }
func (s *fakeScreen) Draw()                          { s.draws++ }
func (s *fakeScreen) FrameRate() int                 { return 60 }

func TestNew_NoBootROM_StartsInPostBootState(t *testing.T) {
	m, err := New(nil, validROM(0x8000), nil, nil)
	require.NoError(t, err)

	op, pc, ok := m.IllegalOpcode()
	require.False(t, ok)
	require.Zero(t, op)
	require.Zero(t, pc)

	require.Equal(t, byte(0x91), m.cpu.Bus().Read(0xFF40), "LCDC should be 0x91 post-boot")
	require.Equal(t, byte(0xFC), m.cpu.Bus().Read(0xFF47), "BGP should be 0xFC post-boot")
	require.Equal(t, byte(0xFF), m.cpu.Bus().Read(0xFF48))
	require.Equal(t, byte(0xFF), m.cpu.Bus().Read(0xFF49))
	require.Equal(t, byte(0xE1), m.cpu.Bus().Read(0xFF0F))
	require.Equal(t, byte(0x00), m.cpu.Bus().Read(0xFFFF))
	require.Equal(t, uint16(0x0100), m.cpu.PC)
	require.Equal(t, uint16(0xFFFE), m.cpu.SP)
}

func TestNew_InvalidBootROMSize(t *testing.T) {
	_, err := New(nil, validROM(0x8000), make([]byte, 17), nil)
	require.Error(t, err)
	var target *InvalidBootROMError
	require.ErrorAs(t, err, &target)
	require.ErrorIs(t, err, ErrInvalidBootROM)
}

func TestNew_InvalidROM(t *testing.T) {
	_, err := New(nil, []byte{0x00}, nil, nil)
	require.Error(t, err)
}

func TestNew_BootROMOverridesResetAndStartsAtZero(t *testing.T) {
	boot := make([]byte, 0x100)
	boot[0] = 0x00 // NOP, so a Tick doesn't crash on an all-zero boot ROM
	m, err := New(nil, validROM(0x8000), boot, nil)
	require.NoError(t, err)
	require.Equal(t, uint16(0x0000), m.cpu.PC)
}

func TestMachine_KeyPressedReleased_EdgeTriggersJoypadInterrupt(t *testing.T) {
	m, err := New(nil, validROM(0x8000), nil, nil)
	require.NoError(t, err)
	b := m.cpu.Bus()

	b.Write(0xFFFF, 1<<4) // enable JOYPAD interrupt
	b.Write(0xFF00, 0x20) // select D-Pad row
	b.Write(0xFF0F, 0x00)

	m.KeyPressed(ButtonUp)
	require.True(t, b.Interrupts().AnyPending(), "pressing Up while D-Pad selected should request JOYPAD")

	b.Write(0xFF0F, 0x00)
	m.KeyReleased(ButtonUp)
	require.False(t, b.Interrupts().AnyPending(), "releasing is not itself a falling edge")
}

func TestMachine_Tick_ReturnsCyclesAndAdvancesPC(t *testing.T) {
	m, err := New(nil, validROM(0x8000), nil, nil)
	require.NoError(t, err)
	pc0 := m.cpu.PC
	cycles := m.Tick()
	require.Equal(t, 4, cycles) // ROM is all zero => NOP
	require.Equal(t, pc0+1, m.cpu.PC)
}

func TestMachine_StepFrameNoRender_CompletesWithoutScreen(t *testing.T) {
	m, err := New(nil, validROM(0x8000), nil, nil)
	require.NoError(t, err)
	require.NotPanics(t, func() { m.StepFrameNoRender() })
}

func TestMachine_SaveLoadState_RoundTrip(t *testing.T) {
	m, err := New(nil, validROM(0x8000), nil, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		m.Tick()
	}
	pcBefore := m.cpu.PC

	data, err := m.SaveState()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		m.Tick()
	}
	require.NotEqual(t, pcBefore, m.cpu.PC)

	require.NoError(t, m.LoadState(data))
	require.Equal(t, pcBefore, m.cpu.PC)
}

func TestMachine_Screen_WiredThroughToPPU(t *testing.T) {
	screen := newFakeScreen()
	m, err := New(screen, validROM(0x8000), nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, screen.on, "Reset's post-boot LCDC=0x91 write sets bit7, which should turn the attached screen on")
	_ = m
}
