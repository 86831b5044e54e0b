// Package cli provides the larago command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/leandroluk/larago/core"
	"github.com/leandroluk/larago/internal/app"
	"github.com/leandroluk/larago/internal/config"
	"github.com/leandroluk/larago/internal/database"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// Version is set at build time.
var Version = "0.1.0"

// Option customizes the root command.
type Option func(*options)

type options struct {
	driver core.Driver
	now    func() time.Time
	open   func(ctx context.Context, cfg config.DatabaseConfig) (core.Driver, error)
}

// WithDriver makes every command use driver instead of opening the one the
// configuration names. The driver is not closed after the command.
func WithDriver(driver core.Driver) Option {
	return func(o *options) { o.driver = driver }
}

// WithClock replaces the models' clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// session is what PersistentPreRunE prepares for the subcommands.
type session struct {
	cfg        *config.Config
	logger     zerolog.Logger
	driver     core.Driver
	ownsDriver bool
	app        *app.App
	output     string
}

// close releases the driver when the session opened it. It is safe to
// call more than once.
func (s *session) close(ctx context.Context) error {
	if s == nil || !s.ownsDriver {
		return nil
	}
	s.ownsDriver = false
	return s.driver.Close(ctx)
}

type sessionKey struct{}

func sessionFrom(cmd *cobra.Command) *session {
	s, _ := cmd.Context().Value(sessionKey{}).(*session)
	return s
}

// NewRootCmd creates the root command.
func NewRootCmd(opts ...Option) *cobra.Command {
	o := options{open: database.Open}
	for _, opt := range opts {
		opt(&o)
	}
	var (
		cfgFile string
		output  string
	)

	rootCmd := &cobra.Command{
		Use:   "larago",
		Short: "larago - manage users and posts through the larago ORM",
		Long: `larago drives the demo users/posts domain of the larago ORM.

Every write goes through the model events: emails are normalized, passwords
hashed, invalid users vetoed, and deleting a user cascades to their posts.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			if output != "table" && output != "json" {
				return fmt.Errorf("unknown output format %q", output)
			}
			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			logger, err := cfg.Log.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			s := &session{cfg: cfg, logger: logger, driver: o.driver, output: output}
			if s.driver == nil {
				s.driver, err = o.open(cmd.Context(), cfg.Database)
				if err != nil {
					return fmt.Errorf("failed to open %s database: %w", cfg.Database.Driver, err)
				}
				s.ownsDriver = true
			}
			s.app, err = app.New(s.driver, app.Options{Logger: logger, BcryptCost: cfg.Auth.BcryptCost, Now: o.now})
			if err != nil {
				return multierr.Append(err, s.close(cmd.Context()))
			}
			cmd.SetContext(context.WithValue(cmd.Context(), sessionKey{}, s))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./larago.yaml)")
	rootCmd.PersistentFlags().String("driver", "", "Database driver (memory|sqlite|postgres|mongo)")
	rootCmd.PersistentFlags().String("dsn", "", "Database connection string or SQLite path")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("driver", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.DriverMemory, config.DriverSQLite, config.DriverPostgres, config.DriverMongo}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newUserCommand())
	rootCmd.AddCommand(newPostCommand())
	closeAfterRun(rootCmd)

	return rootCmd
}

// closeAfterRun makes every runnable command close the session's driver
// when it returns, whether it failed or not.
func closeAfterRun(cmd *cobra.Command) {
	for _, child := range cmd.Commands() {
		closeAfterRun(child)
	}
	if cmd.RunE == nil {
		return
	}
	run := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			err = multierr.Append(err, sessionFrom(cmd).close(cmd.Context()))
		}()
		return run(cmd, args)
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
