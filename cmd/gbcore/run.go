package main

import (
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"gbcore/internal/machine"
)

// frameBuffer accumulates pixels pushed through machine.Screen into a plain
// RGBA byte slice, the same shape cmd/gbemu's headless runner hashed and
// wrote to PNG, so a machine with no real windowing backend can still be
// driven and inspected non-interactively.
type frameBuffer struct {
	w, h int
	pix  []byte
	done chan struct{}
}

func newFrameBuffer(w, h int) *frameBuffer {
	return &frameBuffer{w: w, h: h, pix: make([]byte, w*h*4), done: make(chan struct{}, 1)}
}

func (f *frameBuffer) TurnOn()  {}
func (f *frameBuffer) TurnOff() {}

func (f *frameBuffer) SetPixel(x, y int, c machine.Color) {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return
	}
	i := (y*f.w + x) * 4
	f.pix[i+0] = c.R
	f.pix[i+1] = c.G
	f.pix[i+2] = c.B
	f.pix[i+3] = 0xFF
}

func (f *frameBuffer) Draw() {
	select {
	case f.done <- struct{}{}:
	default:
	}
}

func (f *frameBuffer) FrameRate() int { return 60 }

func newRunCmd() *cobra.Command {
	var (
		romPath   string
		bootPath  string
		frames    int
		outPNG    string
		expectCRC string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Step a ROM headlessly for a fixed number of frames and report a CRC32 of the final frame",
		RunE: func(cmd *cobra.Command, args []string) error {
			rom, err := os.ReadFile(romPath)
			if err != nil {
				return fmt.Errorf("read rom: %w", err)
			}
			var boot []byte
			if bootPath != "" {
				boot, err = os.ReadFile(bootPath)
				if err != nil {
					return fmt.Errorf("read boot rom: %w", err)
				}
			}

			const width, height = 160, 144
			fb := newFrameBuffer(width, height)

			m, err := machine.New(fb, rom, boot, nil)
			if err != nil {
				return fmt.Errorf("construct machine: %w", err)
			}

			for i := 0; i < frames; i++ {
			frame:
				for {
					m.Tick()
					select {
					case <-fb.done:
						break frame
					default:
					}
				}
			}

			sum := crc32.ChecksumIEEE(fb.pix)
			fmt.Printf("frames=%d crc32=%08x\n", frames, sum)

			if outPNG != "" {
				if err := savePNG(fb, outPNG); err != nil {
					return fmt.Errorf("write png: %w", err)
				}
			}
			if expectCRC != "" {
				var want uint32
				if _, err := fmt.Sscanf(expectCRC, "%08x", &want); err != nil {
					return fmt.Errorf("parse -expect: %w", err)
				}
				if want != sum {
					return fmt.Errorf("crc32 mismatch: got %08x want %08x", sum, want)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&romPath, "rom", "", "path to the ROM image (required)")
	cmd.Flags().StringVar(&bootPath, "bootrom", "", "path to a 256-byte boot ROM (optional)")
	cmd.Flags().IntVar(&frames, "frames", 60, "number of frames to step before reporting")
	cmd.Flags().StringVar(&outPNG, "outpng", "", "write the final frame to this PNG path")
	cmd.Flags().StringVar(&expectCRC, "expect", "", "expected CRC32 (hex) of the final frame; mismatch is an error")
	_ = cmd.MarkFlagRequired("rom")

	return cmd
}

func savePNG(fb *frameBuffer, path string) error {
	img := &image.RGBA{
		Pix:    fb.pix,
		Stride: fb.w * 4,
		Rect:   image.Rect(0, 0, fb.w, fb.h),
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
