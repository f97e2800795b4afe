package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	"github.com/skridlevsky/insiders/internal/model"
)

const perPage = 100

// Client is the part of the GitHub REST API the issue source needs.
// Tests provide a mock; production code wraps *gh.Client.
type Client interface {
	SearchIssues(ctx context.Context, query string, opts *gh.SearchOptions) (*gh.IssuesSearchResult, *gh.Response, error)
	ListIssueReactions(ctx context.Context, owner, repo string, number int, opts *gh.ListOptions) ([]*gh.Reaction, *gh.Response, error)
}

// ClientWrapper implements Client on top of go-github
type ClientWrapper struct {
	client *gh.Client
}

// NewHTTPClient returns an http.Client that authenticates every request
// with token. The REST and GraphQL clients share it.
func NewHTTPClient(ctx context.Context, token string) *http.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = 30 * time.Second
	return httpClient
}

// NewClient creates a GitHub REST client on top of an authenticated http.Client
func NewClient(httpClient *http.Client) *ClientWrapper {
	return &ClientWrapper{client: gh.NewClient(httpClient)}
}

func (w *ClientWrapper) SearchIssues(ctx context.Context, query string, opts *gh.SearchOptions) (*gh.IssuesSearchResult, *gh.Response, error) {
	return w.client.Search.Issues(ctx, query, opts)
}

func (w *ClientWrapper) ListIssueReactions(ctx context.Context, owner, repo string, number int, opts *gh.ListOptions) ([]*gh.Reaction, *gh.Response, error) {
	return w.client.Reactions.ListIssueReactions(ctx, owner, repo, number, opts)
}

// IssueSource fetches open issues of GitHub namespaces with their upvoters
type IssueSource struct {
	client Client
	cache  *ReactionCache
}

// CleanExpired drops expired reaction cache entries. It is a no-op
// without a cache.
func (s *IssueSource) CleanExpired() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.CleanExpired()
}

// NewIssueSource creates an issue source. cache may be nil.
func NewIssueSource(client Client, cache *ReactionCache) *IssueSource {
	return &IssueSource{client: client, cache: cache}
}

// Name identifies the source in logs and errors
func (s *IssueSource) Name() string {
	return "GitHub"
}

// GetIssues searches open issues of every namespace, oldest first.
// Authors and upvoters matching known accounts reuse them.
func (s *IssueSource) GetIssues(ctx context.Context, namespaces []string, known []*model.Account, allowLabels []string) (*model.IssueSet, error) {
	issues := model.NewIssueSet()
	if len(namespaces) == 0 {
		return issues, nil
	}

	accounts := model.NewAccounts(known...)
	var allowed map[string]bool
	if allowLabels != nil {
		allowed = make(map[string]bool, len(allowLabels))
		for _, label := range allowLabels {
			allowed[label] = true
		}
	}

	query := searchQuery(namespaces)
	opts := &gh.SearchOptions{
		Sort:        "created",
		Order:       "asc",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	for page := 1; ; page++ {
		slog.Debug("Fetching issues from GitHub", "page", page)
		result, resp, err := s.client.SearchIssues(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to search issues: %w", err)
		}

		for _, item := range result.Issues {
			issue, err := s.convert(ctx, item, accounts, allowed)
			if err != nil {
				return nil, err
			}
			if issue != nil {
				issues.Add(issue)
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return issues, nil
}

func searchQuery(namespaces []string) string {
	parts := []string{"is:issue", "is:open"}
	for _, ns := range namespaces {
		parts = append(parts, "user:"+ns)
	}
	return strings.Join(parts, " ")
}

func (s *IssueSource) convert(ctx context.Context, item *gh.Issue, accounts *model.Accounts, allowed map[string]bool) (*model.Issue, error) {
	// search also returns pull requests when the query is loose
	if item.IsPullRequest() {
		return nil, nil
	}

	repository := repositoryName(item.GetRepositoryURL())
	if repository == "" {
		return nil, fmt.Errorf("%w: issue #%d has no repository", model.ErrMalformedIssue, item.GetNumber())
	}

	author := resolveUser(accounts, item.GetUser())
	issue := &model.Issue{
		Repository: repository,
		Number:     item.GetNumber(),
		Title:      item.GetTitle(),
		Created:    item.GetCreatedAt().Time,
		Author:     author,
		Platform:   model.PlatformGitHub,
	}

	for _, label := range item.Labels {
		name := label.GetName()
		if allowed == nil || allowed[name] {
			issue.AddLabel(name)
		}
	}

	if plusOne := item.GetReactions().GetPlusOne(); plusOne > 0 {
		logins, err := s.upvoters(ctx, issue.Key(), plusOne)
		if err != nil {
			return nil, err
		}
		for _, login := range logins {
			issue.AddUpvote(accounts.Resolve(model.PlatformGitHub, login))
		}
	}

	return issue, nil
}

// upvoters lists the logins that reacted with +1, going through the cache
func (s *IssueSource) upvoters(ctx context.Context, key model.IssueKey, plusOne int) ([]string, error) {
	if s.cache != nil {
		if logins, found := s.cache.Get(key, plusOne); found {
			return logins, nil
		}
	}

	owner, repo, _ := strings.Cut(key.Repository, "/")
	opts := &gh.ListOptions{PerPage: perPage}
	var logins []string
	for {
		reactions, resp, err := s.client.ListIssueReactions(ctx, owner, repo, key.Number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list reactions of %s: %w", key, err)
		}
		for _, reaction := range reactions {
			if reaction.GetContent() == "+1" {
				logins = append(logins, stripBot(reaction.GetUser().GetLogin()))
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if s.cache != nil {
		s.cache.Set(key, plusOne, logins)
	}
	return logins, nil
}

func resolveUser(accounts *model.Accounts, user *gh.User) *model.Account {
	login := stripBot(user.GetLogin())
	if account, ok := accounts.Lookup(model.PlatformGitHub, login); ok {
		return account
	}
	return accounts.Add(&model.Account{
		Name:     login,
		Platform: model.PlatformGitHub,
		IsOrg:    user.GetType() == "Organization",
	})
}

func stripBot(login string) string {
	return strings.TrimSuffix(login, "[bot]")
}

// repositoryName turns https://api.github.com/repos/owner/name into owner/name
func repositoryName(apiURL string) string {
	_, rest, found := strings.Cut(apiURL, "/repos/")
	if !found {
		return ""
	}
	return strings.Trim(rest, "/")
}
