// Command gdctl practices group discussions from the terminal against the
// same storage the server uses.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gd-practice/gd-coach/config"
	"github.com/gd-practice/gd-coach/internal/app"
	"github.com/gd-practice/gd-coach/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	driver     string
	sqlitePath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "gdctl",
		Short:         "Group discussion practice coach",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.driver, "driver", "", "storage driver override: sqlite|redis|postgres|memory")
	root.PersistentFlags().StringVar(&opts.sqlitePath, "db", "", "SQLite file override")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newProgressCmd(opts))
	root.AddCommand(newRespondCmd(opts))
	root.AddCommand(newSessionCmd(opts))
	root.AddCommand(newBadgesCmd(opts))
	root.AddCommand(newTopicCmd(opts))
	root.AddCommand(newResetCmd(opts))
	root.AddCommand(newMigrateCmd(opts))
	return root
}

// withApp loads configuration, applies flag overrides, runs fn and flushes
// every queued write before returning.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app.App) error) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.driver != "" {
		cfg.Storage.Driver = opts.driver
	}
	if opts.sqlitePath != "" {
		cfg.Storage.SQLitePath = opts.sqlitePath
	}
	// Reminders and relays belong to the server.
	cfg.Features.SetEnabled(config.FeatureEventsRelay, false)
	cfg.Events.Driver = config.EventsMemory

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg, newLogger(cmd.ErrOrStderr(), opts.verbose))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.Background()); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, a)
}

func newLogger(w io.Writer, verbose bool) *logger.Logger {
	level := logger.LevelWarn
	if verbose {
		level = logger.LevelDebug
	}
	return logger.New(logger.Options{Output: w, Level: level})
}
