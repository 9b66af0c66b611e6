// Package appshell runs a command under a context cancelled by SIGINT or
// SIGTERM.
package appshell

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
)

// RunFunc is a command entry point returning an exit code.
type RunFunc func(ctx context.Context, argv []string, stdout, stderr io.Writer) int

// Main runs fn with the process arguments and exits with its code, or with
// 130 when a signal interrupted it.
func Main(fn RunFunc) {
	os.Exit(Exec(context.Background(), fn, os.Args[1:], os.Stdout, os.Stderr))
}

// Exec is Main without the os.Exit.
func Exec(parent context.Context, fn RunFunc, argv []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := fn(ctx, argv, stdout, stderr)
	if code != errkind.ExitOK && ctx.Err() != nil && parent.Err() == nil {
		return errkind.ExitInterrupt
	}
	return code
}
