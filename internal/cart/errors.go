package cart

import (
	"errors"
	"fmt"
)

// ErrInvalidROM is the sentinel a caller should match on with errors.Is;
// New always returns it wrapped inside an *InvalidROMError carrying the
// specific reason.
var ErrInvalidROM = errors.New("invalid rom")

// InvalidROMError is returned by New when the supplied ROM image is too
// small to carry a header or fails the header checksum. The bus and the
// permissive NewCartridge constructor never return this; it only surfaces
// through the validating constructor used by the top-level factory, per
// the core's construction-time error contract.
type InvalidROMError struct {
	Reason string
}

func (e *InvalidROMError) Error() string {
	return fmt.Sprintf("invalid rom: %s", e.Reason)
}

func (e *InvalidROMError) Unwrap() error { return ErrInvalidROM }

// New validates rom's header before picking a mapper implementation. Unlike
// NewCartridge, which is used internally for permissive construction (tests,
// homebrew, recovered states), New is the entry point a ROM-loading caller
// should use so construction-time failures surface as a typed error instead
// of silently falling back to ROM-only.
func New(rom []byte) (Cartridge, error) {
	if len(rom) < headerEnd+1 {
		return nil, &InvalidROMError{Reason: "rom too small to contain header"}
	}
	if !HeaderChecksumOK(rom) {
		return nil, &InvalidROMError{Reason: "header checksum mismatch"}
	}
	return NewCartridge(rom), nil
}
