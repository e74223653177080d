package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/alexisbeaulieu97/sunbeam/internal/checks"
	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	sunbeamerrors "github.com/alexisbeaulieu97/sunbeam/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, console.Failure(exitMessage(err)))
		os.Exit(1)
	}
}

// exitMessage picks the line printed before exiting with status 1.
func exitMessage(err error) string {
	var stepErr *sunbeamerrors.StepError
	if errors.As(err, &stepErr) {
		return "Error: " + stepErr.Message
	}
	if checks.IsFailed(err) {
		return err.Error()
	}
	return "Error: " + err.Error()
}
