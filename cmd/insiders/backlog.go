package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skridlevsky/insiders/internal/backlog"
	"github.com/skridlevsky/insiders/internal/db"
	"github.com/skridlevsky/insiders/internal/render"
	"github.com/skridlevsky/insiders/internal/snapshot"
)

var (
	backlogNamespaces []string
	backlogSort       []string
	backlogLimit      int
	backlogPublic     bool
	backlogNoPledges  bool
	backlogSave       bool
)

var backlogCmd = &cobra.Command{
	Use:   "backlog",
	Short: "List the ranked issue backlog",
	Long: `Fetch sponsors and open issues, then print the backlog ranked by the
sort strategies (see "insiders backlog strategies").

Example:
  insiders backlog --namespace pawamoy --sort "min_author_sponsorships(50), created"`,
	RunE: runBacklog,
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the available sort strategies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, d := range backlog.Catalog() {
			call := d.Name
			if len(d.Params) > 0 {
				call += "(" + strings.Join(d.Params, ", ") + ")"
			}
			fmt.Fprintf(out, "%-36s reverse=%-5t  %s\n", call, d.DefaultReverse, d.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backlogCmd)
	backlogCmd.AddCommand(strategiesCmd)

	flags := backlogCmd.Flags()
	flags.StringSliceVarP(&backlogNamespaces, "namespace", "n", nil, "GitHub namespaces to fetch issues from (default from config)")
	// StringArray keeps commas inside strategy expressions
	flags.StringArrayVarP(&backlogSort, "sort", "s", nil, "Sort strategies, e.g. \"min_pledge(50), created\" (default from config)")
	flags.IntVar(&backlogLimit, "limit", -1, "Maximum number of issues to print, 0 for all (default from config)")
	flags.BoolVar(&backlogPublic, "public", false, "Only use public sponsorships")
	flags.BoolVar(&backlogNoPledges, "no-pledges", false, "Hide the pledged column")
	flags.BoolVar(&backlogSave, "save", false, "Save the ranked backlog as a snapshot (requires DATABASE_URL)")
}

func runBacklog(cmd *cobra.Command, args []string) error {
	required := []string{"GITHUB_TOKEN"}
	if backlogSave {
		required = append(required, "DATABASE_URL")
	}
	cfg, err := loadConfig(required...)
	if err != nil {
		return err
	}

	sort := backlogSort
	if len(sort) == 0 {
		sort = cfg.Backlog.Sort
	}
	limit := backlogLimit
	if limit < 0 {
		limit = cfg.Backlog.Limit
	}

	ctx := cmd.Context()

	pipeline := newPipeline(ctx, cfg, pipelineOptions{
		namespaces: backlogNamespaces,
		publicOnly: backlogPublic,
	})
	if len(pipeline.Namespaces) == 0 {
		return fmt.Errorf("no namespaces: pass --namespace or set backlog.namespaces")
	}

	result, err := pipeline.Run(ctx, sort)
	if err != nil {
		return err
	}

	err = render.Backlog(cmd.OutOrStdout(), result.Backlog.Issues(), render.Options{
		Labels:     cfg.Backlog.IssueLabels,
		Pledges:    !backlogNoPledges && cfg.PolarToken != "",
		Limit:      limit,
		Hyperlinks: hyperlinks(),
	})
	if err != nil {
		return fmt.Errorf("failed to print backlog: %w", err)
	}

	if !backlogSave {
		return nil
	}

	database, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.CommandConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := db.RunMigrations(ctx, database.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	snap := snapshot.FromBacklog(result.Backlog.Issues(), snapshot.Meta{
		Sort:       result.Sort,
		Namespaces: pipeline.Namespaces,
		Sponsors:   result.Sponsors,
		TakenAt:    result.FetchedAt,
	})
	if err := snapshot.NewStore(database.Pool()).Save(ctx, snap); err != nil {
		return err
	}
	slog.Info("Snapshot saved", "id", snap.ID)
	fmt.Fprintf(os.Stderr, "Saved snapshot %s\n", snap.ID)
	return nil
}
