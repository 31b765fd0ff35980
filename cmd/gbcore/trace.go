package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gbcore/internal/machine"
)

var failRe = regexp.MustCompile(`(?i)failed\s+(\d+)\s+tests?`)

func newTraceCmd() *cobra.Command {
	var (
		romPath   string
		bootPath  string
		maxFrames int
		until     string
		auto      bool
		timeout   time.Duration
		echo      bool
		showRegs  bool
	)

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Run a serial test ROM (blargg-style) until it reports pass/fail or times out",
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

			m, err := machine.New(nil, rom, boot, nil)
			if err != nil {
				return fmt.Errorf("construct machine: %w", err)
			}

			var ser bytes.Buffer
			var w io.Writer = &ser
			if echo {
				w = io.MultiWriter(os.Stdout, &ser)
			}
			m.SetSerialWriter(w)

			deadline := time.Time{}
			if timeout > 0 {
				deadline = time.Now().Add(timeout)
			}

			for i := 0; i < maxFrames; i++ {
				m.StepFrameNoRender()

				if !deadline.IsZero() && time.Now().After(deadline) {
					return fmt.Errorf("timeout after %s; serial so far:\n%s", timeout, ser.String())
				}

				out := ser.String()
				if until != "" && strings.Contains(strings.ToLower(out), strings.ToLower(until)) {
					fmt.Println(out)
					printRegs(m, showRegs)
					return nil
				}
				if auto {
					if strings.Contains(out, "Passed") {
						fmt.Println(out)
						printRegs(m, showRegs)
						return nil
					}
					if fm := failRe.FindStringSubmatch(out); fm != nil {
						printRegs(m, showRegs)
						return fmt.Errorf("test ROM reported failure (%s tests): \n%s", fm[1], out)
					}
					if strings.Contains(out, "Failed") {
						printRegs(m, showRegs)
						return fmt.Errorf("test ROM reported failure:\n%s", out)
					}
				}
			}
			printRegs(m, showRegs)
			return fmt.Errorf("ran %d frames without a pass/fail result; serial so far:\n%s", maxFrames, ser.String())
		},
	}

	cmd.Flags().StringVar(&romPath, "rom", "", "path to the test ROM (required)")
	cmd.Flags().StringVar(&bootPath, "bootrom", "", "path to a 256-byte boot ROM (optional)")
	cmd.Flags().IntVar(&maxFrames, "frames", 1800, "max frames to step before giving up")
	cmd.Flags().StringVar(&until, "until", "", "stop when serial output contains this substring (case-insensitive)")
	cmd.Flags().BoolVar(&auto, "auto", true, "auto-detect 'Passed'/'Failed N tests' and exit 0/1 accordingly")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "optional wall-clock timeout (e.g. 30s); 0 disables")
	cmd.Flags().BoolVar(&echo, "echo", false, "echo serial output to stdout as it arrives")
	cmd.Flags().BoolVar(&showRegs, "regs", false, "print the final CPU register snapshot before exiting")
	_ = cmd.MarkFlagRequired("rom")

	return cmd
}

func printRegs(m *machine.Machine, show bool) {
	if !show {
		return
	}
	r := m.Registers()
	fmt.Printf("AF=%02X%02X BC=%02X%02X DE=%02X%02X HL=%02X%02X SP=%04X PC=%04X IME=%t\n",
		r.A, r.F, r.B, r.C, r.D, r.E, r.H, r.L, r.SP, r.PC, r.IME)
}
