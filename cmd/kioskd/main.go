// Command kioskd runs the kiosk configuration daemon with the default
// configuration file. It is equivalent to `kiosk serve`.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"kiosk/internal/config"
	"kiosk/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load(os.Getenv("KIOSK_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
