package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skridlevsky/insiders/internal/db"
	"github.com/skridlevsky/insiders/internal/snapshot"
)

var snapshotsLimit int

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect saved backlog snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, store *snapshot.Store) error {
			snapshots, err := store.List(ctx, snapshotsLimit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTaken\tIssues\tSponsors\tSort")
			for _, s := range snapshots {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d ($%d)\t%s\n",
					s.ID, s.TakenAt.Format("2006-01-02 15:04"), s.IssueCount,
					s.SponsorCount, s.SponsorTotal, strings.Join(s.Sort, "; "))
			}
			return w.Flush()
		})
	},
}

var snapshotsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print the ranked entries of a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid snapshot id %q: %w", args[0], err)
		}
		return withStore(cmd, func(ctx context.Context, store *snapshot.Store) error {
			s, err := store.Get(ctx, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Snapshot %s taken %s, sorted by %s\n\n", s.ID, s.TakenAt.Format("2006-01-02 15:04"), strings.Join(s.Sort, "; "))
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "Rank\tIssue\tAuthor\tFunding\tPledged\tUpvotes\tTitle")
			for _, e := range s.Entries {
				fmt.Fprintf(w, "%d\t%s#%d\t%s\t%d\t%d\t%d\t%s\n",
					e.Rank, e.Repository, e.Number, e.Author, e.Funding, e.Pledged, e.Upvotes, e.Title)
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsListCmd, snapshotsShowCmd)
	snapshotsListCmd.Flags().IntVar(&snapshotsLimit, "limit", 20, "Number of snapshots to list (max 100)")
}

func withStore(cmd *cobra.Command, fn func(ctx context.Context, store *snapshot.Store) error) error {
	cfg, err := loadConfig("DATABASE_URL")
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	database, err := db.Open(ctx, cfg.DatabaseURL, db.CommandConns)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	return fn(ctx, snapshot.NewStore(database.Pool()))
}
