// Command dtl compiles and evaluates a DTL script against a directory
// of input tables, writing the exported tables (and, optionally, a
// trace manifest) to disk (spec §6, "CLI").
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bwhmather/dtl"
	"github.com/bwhmather/dtl/internal/dtlerrors"
	"github.com/bwhmather/dtl/internal/dtlutil"
)

func readScript(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read script from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read script %q: %w", path, err)
	}
	return string(data), nil
}

func main() {
	dtlutil.InitSlog()

	options, scriptPath, err := parseOptions(os.Args[1:])
	if err != nil {
		// go-flags has already printed usage to stderr.
		os.Exit(1)
	}

	script, err := readScript(scriptPath)
	if err != nil {
		slog.Error("dtl", "error", err)
		os.Exit(1)
	}

	if err := dtl.Run(script, options); err != nil {
		slog.Error("dtl", "error", err)
		if _, ok := err.(*dtlerrors.InternalError); ok {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
