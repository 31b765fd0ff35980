package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gbcore/internal/machine"
)

func TestNewRunCmd_RequiresROMFlag(t *testing.T) {
	cmd := newRunCmd()
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.Error(t, err)
}

func TestNewTraceCmd_RequiresROMFlag(t *testing.T) {
	cmd := newTraceCmd()
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.Error(t, err)
}

func TestNewRunCmd_MissingROMFile(t *testing.T) {
	cmd := newRunCmd()
	cmd.SetArgs([]string{"--rom", "/nonexistent/path/does-not-exist.gb"})
	err := cmd.Execute()
	require.Error(t, err)
}

func TestFrameBuffer_SetPixelClampsOutOfBounds(t *testing.T) {
	fb := newFrameBuffer(4, 4)
	c := machine.Color{R: 1, G: 2, B: 3}
	require.NotPanics(t, func() {
		fb.SetPixel(-1, 0, c)
		fb.SetPixel(100, 100, c)
	})
}
