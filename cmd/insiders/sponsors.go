package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skridlevsky/insiders/internal/render"
)

var sponsorsPublic bool

var sponsorsCmd = &cobra.Command{
	Use:   "sponsors",
	Short: "List sponsorships from GitHub and Polar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig("GITHUB_TOKEN")
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		pipeline := newPipeline(ctx, cfg, pipelineOptions{publicOnly: sponsorsPublic})
		sponsors, err := pipeline.Sponsors(ctx)
		if err != nil {
			return err
		}

		if err := render.Sponsors(cmd.OutOrStdout(), sponsors, hyperlinks()); err != nil {
			return fmt.Errorf("failed to print sponsors: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sponsorsCmd)
	sponsorsCmd.Flags().BoolVar(&sponsorsPublic, "public", false, "Only list public sponsorships")
}
