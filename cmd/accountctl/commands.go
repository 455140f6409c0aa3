package main

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	account "github.com/goliatone/go-account"
	"github.com/goliatone/go-account/metrics"
	"github.com/spf13/cobra"
)

func newMigrateCommand(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the account schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			group, err := account.Migrate(commandContext(cmd), a.db)
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), "no new migrations")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated to %s\n", group)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Roll back the last migration group",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			group, err := account.Rollback(commandContext(cmd), a.db)
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", group)
			return nil
		},
	})
	return cmd
}

func newSweepCommand(verbose *bool) *cobra.Command {
	var (
		days     int
		pageSize int
		every    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete accounts never activated after a number of days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return errors.New("--days must not be negative")
			}

			a, err := newApp(*verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := commandContext(cmd)
			sweeper := account.NewUnactivatedSweeper(a.repository(),
				account.WithSweepPageSize(pageSize),
				account.WithSweeperActivitySink(a.activity),
				account.WithSweeperLogger(a.provider.GetLogger("account.sweeper")),
			)
			olderThan := time.Duration(days) * 24 * time.Hour

			run := func() error {
				n, err := sweeper.Sweep(ctx, olderThan)
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d unactivated account(s)\n", n)
				return err
			}

			if every <= 0 {
				return run()
			}

			if addr := a.cfg.MetricsAddr; addr != "" {
				srv := &http.Server{Addr: addr, Handler: metrics.Handler(a.registry)}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error("metrics server failed", "error", err)
					}
				}()
				defer srv.Close()
			}

			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				if err := run(); err != nil {
					a.logger.Error("sweep failed", "error", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Age in days after which unactivated accounts are deleted")
	cmd.Flags().IntVar(&pageSize, "page-size", account.DefaultSweepPageSize, "Accounts loaded per page")
	cmd.Flags().DurationVar(&every, "every", 0, "Repeat the sweep at this interval instead of running once")
	return cmd
}

func newTeardownCommand(verbose *bool) *cobra.Command {
	var (
		session string
		locale  string
	)

	cmd := &cobra.Command{
		Use:   "teardown",
		Short: "Finish an account deletion scheduled on a session that ended",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireSharedScheduler(); err != nil {
				return err
			}

			lc, err := a.lifecycle()
			if err != nil {
				return err
			}

			outcome, err := lc.OnSessionTeardown(commandContext(cmd), session, locale)
			if err != nil {
				return err
			}
			if outcome == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no deletion scheduled for this session")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "Session identifier")
	cmd.Flags().StringVar(&locale, "locale", "", "Locale of the confirmation email")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newPasswordCommand(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Password utilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var blacklist []string
	check := &cobra.Command{
		Use:   "check",
		Short: "Read a password from stdin and print its strength",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password := strings.TrimRight(line, "\r\n")

			assessment := a.strengthGate().Assess(commandContext(cmd), password, append([]string{a.cfg.WebsiteName}, blacklist...))
			fmt.Fprintf(cmd.OutOrStdout(), "strength=%s score=%d breached=%t\n",
				assessment.Strength, assessment.Score, assessment.Breached)
			return nil
		},
	}
	check.Flags().StringSliceVar(&blacklist, "blacklist", nil, "Words the password must not be built from")

	cmd.AddCommand(check)
	return cmd
}
