package main

import (
	"context"
	"time"

	"github.com/skridlevsky/insiders/internal/config"
	"github.com/skridlevsky/insiders/internal/github"
	"github.com/skridlevsky/insiders/internal/polar"
	"github.com/skridlevsky/insiders/internal/refresh"
)

type pipelineOptions struct {
	namespaces []string
	publicOnly bool
	cacheTTL   time.Duration
}

// newPipeline wires GitHub as the primary source and Polar, when a token
// is configured, as the secondary source of issues and sponsors
func newPipeline(ctx context.Context, cfg *config.Config, opts pipelineOptions) *refresh.Pipeline {
	httpClient := github.NewHTTPClient(ctx, cfg.GitHubToken)
	sponsorSource := github.NewSponsorSource(github.NewGraphQLClient(httpClient))
	sponsorSource.OrgMembers = cfg.GitHub.OrganizationMembers
	sponsorSource.MinimumAmount = cfg.Sponsors.MinimumAmount
	sponsorSource.ExcludePrivate = opts.publicOnly

	var cache *github.ReactionCache
	if opts.cacheTTL > 0 {
		cache = github.NewReactionCache(opts.cacheTTL)
	}

	namespaces := opts.namespaces
	if len(namespaces) == 0 {
		namespaces = cfg.Backlog.Namespaces
	}

	p := &refresh.Pipeline{
		GitHubSponsors: sponsorSource,
		Primary:        github.NewIssueSource(github.NewClient(httpClient), cache),
		Namespaces:     namespaces,
		AllowLabels:    cfg.IssueLabelNames(),
		PublicOnly:     opts.publicOnly,
	}

	if cfg.PolarToken != "" {
		polarClient := polar.NewClient(cfg.PolarToken)
		p.PolarSponsors = polarClient
		p.Secondary = polarClient
	}

	return p
}
