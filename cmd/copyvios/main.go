// Command copyvios checks wiki articles for text copied from the web.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/copyvios/internal/app"
	"github.com/hyperifyio/copyvios/internal/search"
)

// Exit codes.
const (
	exitOK        = 0
	exitError     = 1
	exitConfig    = 2
	exitViolation = 3
)

// errViolation is returned by check and compare with --fail-on-violation.
var errViolation = errors.New("copyright violation suspected")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and maps the outcome to an exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	code := exitCode(err)
	switch code {
	case exitOK, exitViolation:
	default:
		log.Error().Err(err).Msg("copyvios failed")
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return code
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errViolation):
		return exitViolation
	case errors.Is(err, app.ErrInvalidConfig), errors.Is(err, search.ErrEngineUnavailable), errors.Is(err, errUsage):
		return exitConfig
	default:
		return exitError
	}
}
