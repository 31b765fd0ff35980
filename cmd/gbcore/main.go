// Command gbcore is a headless driver for the gbcore emulation core: a
// frame-stepper that can dump a PNG/CRC32 of the final frame (run) and a
// blargg-style serial test-ROM runner (trace).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "gbcore",
		Short: "Headless driver for the gbcore Game Boy emulation core",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newTraceCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
