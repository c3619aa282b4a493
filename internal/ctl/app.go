// Package ctl implements the expensectl subcommands. Each command opens the
// configured backend, drives a list or stats view-state controller against it
// and prints the outcome as rendered markdown.
package ctl

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"expensetracker/internal/gateway"
	"expensetracker/internal/log"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
)

// OpenFunc connects to the backend. The returned cleanup releases it.
type OpenFunc func(ctx context.Context) (gateway.Gateway, func() error, error)

// App is the state shared by every subcommand.
type App struct {
	Owner    string
	Currency string
	Open     OpenFunc
	Out      io.Writer
	Err      io.Writer
	Logger   *log.Logger
	Clock    func() time.Time

	// Plain prints markdown as is instead of rendering it for the terminal.
	Plain bool
}

// Register adds every expensectl subcommand to c.
func Register(c *subcommands.Commander, app *App) {
	c.Register(&listCmd{app: app}, "expenses")
	c.Register(&addCmd{app: app}, "expenses")
	c.Register(&deleteCmd{app: app}, "expenses")
	c.Register(&statsCmd{app: app}, "reports")
	c.Register(&categoriesCmd{app: app}, "reports")
}

func (a *App) out() io.Writer {
	if a.Out == nil {
		return os.Stdout
	}
	return a.Out
}

func (a *App) errOut() io.Writer {
	if a.Err == nil {
		return os.Stderr
	}
	return a.Err
}

func (a *App) logger() *log.Logger {
	if a.Logger == nil {
		return log.Default(log.ComponentCLI)
	}
	return a.Logger.WithComponent(log.ComponentCLI)
}

func (a *App) now() time.Time {
	if a.Clock == nil {
		return time.Now()
	}
	return a.Clock()
}

// fail reports err and maps it to an exit status.
func (a *App) fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(a.errOut(), "Error: %v\n", err)
	return subcommands.ExitFailure
}

func (a *App) usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(a.errOut(), "Error: "+format+"\n", args...)
	return subcommands.ExitUsageError
}

// withGateway opens the backend, runs fn and releases the backend.
func (a *App) withGateway(ctx context.Context, fn func(gateway.Gateway) error) error {
	if a.Open == nil {
		return fmt.Errorf("no backend configured")
	}
	if a.Owner == "" {
		return fmt.Errorf("owner is required (-owner or EXPENSE_OWNER)")
	}
	gw, cleanup, err := a.Open(ctx)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer func() {
		if cerr := cleanup(); cerr != nil {
			a.logger().Warn("Backend cleanup failed", log.FieldError, cerr)
		}
	}()
	return fn(gw)
}

// printMarkdown renders md for the terminal, falling back to the raw text.
func (a *App) printMarkdown(md string) {
	if a.Plain {
		fmt.Fprint(a.out(), md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Fprint(a.out(), md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(a.out(), md)
		return
	}
	fmt.Fprint(a.out(), out)
}
