package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"spendwise/internal/models"
)

func newStreakCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Inspect or rebuild a user's streak record",
	}

	var showUser string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print a user's streak record and vouchers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireUser(cmd, showUser); err != nil {
				return err
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := lookupUser(cmd.Context(), db, showUser)
			if err != nil {
				return err
			}
			svc := a.streakService(db)
			rec, err := svc.Record(cmd.Context(), user.ID)
			if err != nil {
				return err
			}
			printRecord(cmd.OutOrStdout(), rec, svc.Now())
			return nil
		},
	}
	show.Flags().StringVar(&showUser, "user", "", "username")

	var recomputeUser string
	recompute := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild a user's streak record from their transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireUser(cmd, recomputeUser); err != nil {
				return err
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := lookupUser(cmd.Context(), db, recomputeUser)
			if err != nil {
				return err
			}
			svc := a.streakService(db)
			rec, minted, err := svc.Recompute(cmd.Context(), user.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recomputed streak for %s: %d new voucher(s)\n", user.Username, len(minted))
			printRecord(out, rec, svc.Now())
			return nil
		},
	}
	recompute.Flags().StringVar(&recomputeUser, "user", "", "username")

	cmd.AddCommand(show, recompute)
	return cmd
}

func newCalendarCommand(a *app) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print a user's day-by-day streak calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireUser(cmd, username); err != nil {
				return err
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := lookupUser(cmd.Context(), db, username)
			if err != nil {
				return err
			}
			days, err := a.streakService(db).Calendar(cmd.Context(), user.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(days) == 0 {
				fmt.Fprintf(out, "No transactions for %s\n", user.Username)
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tSTREAK\tIMPULSE\tCLEAN\tTOTAL\tMILESTONE")
			for _, d := range days {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n",
					d.Date, d.StreakDay, d.ImpulseCount, d.NonImpulseCount, d.TotalAmount.StringFixed(2), d.MilestoneType)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "username")
	return cmd
}

func newSessionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage login sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Delete expired sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.CleanExpiredSessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to clean sessions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired session(s)\n", n)
			return nil
		},
	})
	return cmd
}

func printRecord(out io.Writer, rec *models.StreakRecord, now time.Time) {
	fmt.Fprintf(out, "Current streak:     %d\n", rec.CurrentStreak)
	fmt.Fprintf(out, "Longest streak:     %d\n", rec.LongestStreak)
	fmt.Fprintf(out, "Completed streaks:  %d\n", rec.CompletedStreaks)
	fmt.Fprintf(out, "Free impulse:       %d (pending passes: %d)\n", rec.FreeImpulsePurchases, rec.PendingFreePasses)
	if len(rec.Vouchers) == 0 {
		fmt.Fprintln(out, "Vouchers:           none")
		return
	}
	fmt.Fprintln(out, "Vouchers:")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, v := range rec.Vouchers {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\texpires %s\n",
			v.ID, v.Type, v.MilestoneDate, v.Status(now), v.ExpiresAt.Format(time.DateOnly))
	}
	_ = tw.Flush()
}
