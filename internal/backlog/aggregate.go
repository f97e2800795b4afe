package backlog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skridlevsky/insiders/internal/model"
)

// IssueSource fetches issues for a set of namespaces.
//
// known lists accounts already materialized from sponsor data; sources
// must reuse them for matching authors and upvoters so their sponsorships
// count. allowLabels restricts which labels are kept on issues (nil keeps
// all labels).
type IssueSource interface {
	Name() string
	GetIssues(ctx context.Context, namespaces []string, known []*model.Account, allowLabels []string) (*model.IssueSet, error)
}

// Options configures Get
type Options struct {
	Namespaces  []string
	Primary     IssueSource // source of truth for every issue field
	Secondary   IssueSource // optional, supplies pledges
	Sponsors    *model.Sponsors
	AllowLabels []string
}

// Get builds the backlog: issues come from the primary source, in its
// order, and pledges are copied over from the secondary source when the
// secondary record carries any signal. Issues only known to the
// secondary source are dropped.
func Get(ctx context.Context, opts Options) (*Backlog, error) {
	if opts.Primary == nil {
		return nil, fmt.Errorf("backlog requires a primary issue source")
	}

	var known []*model.Account
	if opts.Sponsors != nil {
		for _, account := range opts.Sponsors.Grantees() {
			if account.Platform == model.PlatformGitHub {
				known = append(known, account)
			}
		}
	}

	primary, err := fetch(ctx, opts.Primary, opts.Namespaces, known, opts.AllowLabels)
	if err != nil {
		return nil, err
	}
	slog.Debug("Got issues", "source", opts.Primary.Name(), "count", primary.Len())

	if opts.Secondary != nil {
		secondary, err := fetch(ctx, opts.Secondary, opts.Namespaces, known, opts.AllowLabels)
		if err != nil {
			return nil, err
		}
		slog.Debug("Got issues", "source", opts.Secondary.Name(), "count", secondary.Len())

		enriched := reconcile(primary, secondary)
		slog.Debug("Reconciled issues",
			"primary", opts.Primary.Name(),
			"secondary", opts.Secondary.Name(),
			"pledges_copied", enriched,
		)
	}

	return New(primary.Issues()), nil
}

func fetch(ctx context.Context, source IssueSource, namespaces []string, known []*model.Account, allowLabels []string) (*model.IssueSet, error) {
	issues, err := source.GetIssues(ctx, namespaces, known, allowLabels)
	if err != nil {
		return nil, &SourceError{Source: source.Name(), Err: err}
	}
	if issues == nil {
		return model.NewIssueSet(), nil
	}
	for _, issue := range issues.Issues() {
		if err := issue.Validate(); err != nil {
			return nil, &SourceError{Source: source.Name(), Err: err}
		}
	}
	return issues, nil
}

// reconcile copies the pledge of every secondary issue with upvotes or a
// pledge onto the primary issue with the same key. Upvoters are not
// merged: they only make the secondary record count.
func reconcile(primary, secondary *model.IssueSet) int {
	copied := 0
	for _, issue := range primary.Issues() {
		other, ok := secondary.Get(issue.Key())
		if !ok {
			continue
		}
		if other.UpvoteCount() > 0 || other.Pledged != 0 {
			issue.Pledged = other.Pledged
			copied++
		}
	}
	return copied
}
