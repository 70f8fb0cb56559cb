package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// CLIArgs are the command-line arguments that control a server run or a
// one-shot analysis. Keep this small for now and add fields as modules need
// them.
type CLIArgs struct {
	// URL, if set, runs a single analysis and prints the report instead of
	// serving HTTP.
	URL string

	// Listen overrides the configured HTTP listen address.
	Listen string

	// Backend overrides the configured page-fetch backend.
	Backend string

	// Refresh bypasses the report cache for a one-shot analysis.
	Refresh bool

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by
// passing arbitrary slices. The function is deterministic and does not read
// os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("sitelens", flag.ContinueOnError)
	var (
		url     = fs.String("url", "", "Analyze a single URL and print the report instead of serving")
		listen  = fs.String("listen", "", "HTTP listen address (overrides config)")
		backend = fs.String("backend", "", "Page fetch backend: nethttp|chromedp (overrides config)")
		refresh = fs.Bool("refresh", false, "Bypass the report cache for a one-shot analysis")
	)

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if b := strings.TrimSpace(*backend); b != "" && b != "nethttp" && b != "chromedp" {
		return nil, fmt.Errorf("unknown backend %q", b)
	}

	return &CLIArgs{
		URL:     strings.TrimSpace(*url),
		Listen:  *listen,
		Backend: strings.TrimSpace(*backend),
		Refresh: *refresh,
		RawArgs: args,
	}, nil
}
