package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"spendwise/internal/config"
	"spendwise/internal/models"
	"spendwise/internal/storage"
	"spendwise/internal/streak"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(context.Background())
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	dbPath string
	cfg    *config.Config
	log    *logrus.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "spendctl",
		Short: "Operator tool for the SpendWise database",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			// Allow overriding db path via env var if not explicitly set via flag
			if !cmd.Flags().Changed("db") {
				a.dbPath = cfg.DBPath
			}
			a.log, err = config.NewLogger(cfg.Log, cmd.ErrOrStderr())
			return err
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", "spendwise.db", "path to database file")

	root.AddCommand(
		newAddUserCommand(a),
		newStreakCommand(a),
		newCalendarCommand(a),
		newSessionsCommand(a),
	)
	return root
}

func (a *app) openDB() (*storage.DB, error) {
	db, err := storage.NewDB(a.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func (a *app) streakService(db *storage.DB) *streak.Service {
	return streak.NewService(db, streak.WithPolicy(a.cfg.Rewards.Policy()), streak.WithLogger(a.log))
}

func lookupUser(ctx context.Context, db *storage.DB, username string) (*models.User, error) {
	user, err := db.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("user %s not found", username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// requireUser prints usage and fails when the --user flag is empty.
func requireUser(cmd *cobra.Command, username string) error {
	if username != "" {
		return nil
	}
	_ = cmd.Usage()
	return errors.New("missing required flags: user")
}
