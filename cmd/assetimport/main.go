// Command assetimport generates crypto-assets data files from a registry checkout.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rshade/cryptoassets-importer/internal/cli"
	"github.com/rshade/cryptoassets-importer/pkg/version"
)

func main() {
	os.Exit(run())
}

// run executes the CLI and returns the process exit code.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(version.String())
	err := root.ExecuteContext(ctx)
	if err != nil {
		var importErr *cli.ImportFailedError
		if !errors.As(err, &importErr) {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "%s\n", importErr.Reason)
		}
	}
	return extractExitCode(err)
}

// extractExitCode maps an execution error to a process exit code.
// ImportFailedError carries its own code; any other error exits 1.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}
	var importErr *cli.ImportFailedError
	if errors.As(err, &importErr) {
		return importErr.ExitCode
	}
	return 1
}
