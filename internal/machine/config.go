package machine

// Config carries settings that affect emulation behavior but not its
// semantics, mirroring the teacher's internal/emu.Config shape.
type Config struct {
	// Trace records whether per-instruction tracing is wanted. Nothing in
	// this module reads it: New always installs Defaults(), and cmd/gbcore's
	// trace subcommand does its own tracing without consulting Config.
	Trace bool
}

// Defaults returns the zero-value Config, i.e. tracing off.
func Defaults() Config { return Config{} }
