// Package refresh fetches sponsors and issues and ranks them into a backlog,
// once or on a schedule.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skridlevsky/insiders/internal/backlog"
	"github.com/skridlevsky/insiders/internal/model"
)

// SponsorSource fetches the sponsorships of one platform
type SponsorSource interface {
	Name() string
	GetSponsors(ctx context.Context) (*model.Sponsors, error)
}

// Pipeline wires sources together. Every source except Primary is optional.
type Pipeline struct {
	GitHubSponsors SponsorSource
	PolarSponsors  SponsorSource
	Primary        backlog.IssueSource
	Secondary      backlog.IssueSource
	Namespaces     []string
	AllowLabels    []string
	PublicOnly     bool
}

// expirer is implemented by sources that cache between runs
type expirer interface {
	CleanExpired() int
}

// Result is one ranked backlog with the sponsors it was ranked against
type Result struct {
	Sponsors  *model.Sponsors
	Backlog   *backlog.Backlog
	Sort      []string
	FetchedAt time.Time
	Duration  time.Duration
}

// Run resolves the sort expressions, fetches sponsors from every platform,
// builds the backlog and sorts it. Unknown strategies fail before any
// request is made.
func (p *Pipeline) Run(ctx context.Context, sort []string) (*Result, error) {
	strategies, err := backlog.Resolve(sort)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	sponsors, err := p.Sponsors(ctx)
	if err != nil {
		return nil, err
	}

	b, err := backlog.Get(ctx, backlog.Options{
		Namespaces:  p.Namespaces,
		Primary:     p.Primary,
		Secondary:   p.Secondary,
		Sponsors:    sponsors,
		AllowLabels: p.AllowLabels,
	})
	p.cleanCaches()
	if err != nil {
		return nil, err
	}
	b.Sort(strategies...)

	result := &Result{
		Sponsors:  sponsors,
		Backlog:   b,
		Sort:      append([]string{}, sort...),
		FetchedAt: start,
		Duration:  time.Since(start),
	}
	slog.Info("Backlog refreshed",
		"issues", b.Len(),
		"sponsorships", sponsors.Len(),
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result, nil
}

// cleanCaches drops cache entries no run has touched within their TTL,
// such as the reactions of issues closed since
func (p *Pipeline) cleanCaches() {
	for _, source := range []backlog.IssueSource{p.Primary, p.Secondary} {
		if e, ok := source.(expirer); ok {
			if removed := e.CleanExpired(); removed > 0 {
				slog.Debug("Cleaned expired cache entries", "source", source.Name(), "removed", removed)
			}
		}
	}
}

// Sponsors fetches both platforms concurrently and merges GitHub first
func (p *Pipeline) Sponsors(ctx context.Context) (*model.Sponsors, error) {
	var github, polar *model.Sponsors

	g, gctx := errgroup.WithContext(ctx)
	if p.GitHubSponsors != nil {
		g.Go(func() error {
			var err error
			github, err = p.GitHubSponsors.GetSponsors(gctx)
			if err != nil {
				return fmt.Errorf("failed to fetch sponsors from %s: %w", p.GitHubSponsors.Name(), err)
			}
			return nil
		})
	}
	if p.PolarSponsors != nil {
		g.Go(func() error {
			var err error
			polar, err = p.PolarSponsors.GetSponsors(gctx)
			if err != nil {
				return fmt.Errorf("failed to fetch sponsors from %s: %w", p.PolarSponsors.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sponsors := model.NewSponsors().Merge(github).Merge(polar)
	if p.PublicOnly {
		sponsors = sponsors.Public()
	}
	return sponsors, nil
}
