package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanizio/tradesite/internal/database"
	"github.com/yanizio/tradesite/internal/store"
)

func newLogCmd() *cobra.Command {
	var (
		dsn   string
		limit int
		since time.Duration
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect the submission log",
		Long: `List bookings from the submission log, newest first.

With --undelivered, only bookings where at least one email failed within
the --since window are listed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				return fmt.Errorf("--dsn or TRADE_DATABASE__DSN is required")
			}
			undelivered, _ := cmd.Flags().GetBool("undelivered")
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := database.Open(ctx, dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			repo := store.NewRepo(db)

			var rows []store.Submission
			if undelivered {
				rows, err = repo.Undelivered(ctx, time.Now().Add(-since))
			} else {
				rows, err = repo.Recent(ctx, limit)
			}
			if err != nil {
				return err
			}
			return printSubmissions(cmd.OutOrStdout(), rows)
		},
	}
	f := cmd.Flags()
	f.StringVar(&dsn, "dsn", envOr("TRADE_DATABASE__DSN", ""), "MySQL DSN")
	f.IntVar(&limit, "limit", 20, "rows to show")
	f.Bool("undelivered", false, "only bookings with a failed email")
	f.DurationVar(&since, "since", 7*24*time.Hour, "window for --undelivered")
	return cmd
}

func printSubmissions(w io.Writer, rows []store.Submission) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBMITTED\tNAME\tEMAIL\tSERVICES\tADMIN\tCUSTOMER\tERROR")
	for _, s := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.SubmittedAt.Format(time.DateTime), s.Name, s.Email, s.Services,
			yesNo(s.AdminSent), yesNo(s.CustomerSent), s.Error)
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
