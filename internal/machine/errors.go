package machine

import (
	"errors"
	"fmt"
)

// ErrInvalidBootROM is the sentinel a caller should match on with errors.Is;
// New always returns it wrapped inside an *InvalidBootROMError.
var ErrInvalidBootROM = errors.New("invalid boot rom")

// InvalidBootROMError is returned by New when a non-empty boot ROM image is
// not exactly 256 bytes. An empty/nil boot ROM is valid and means "boot
// straight into the post-boot register state" (see Reset).
type InvalidBootROMError struct {
	Size int
}

func (e *InvalidBootROMError) Error() string {
	return fmt.Sprintf("invalid boot rom: want 256 bytes, got %d", e.Size)
}

func (e *InvalidBootROMError) Unwrap() error { return ErrInvalidBootROM }
