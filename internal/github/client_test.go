package github

import (
	"context"
	"errors"
	"testing"
	"time"

	gh "github.com/google/go-github/v55/github"

	"github.com/skridlevsky/insiders/internal/model"
)

// MockClient serves canned search pages and reactions
type MockClient struct {
	pages     [][]*gh.Issue
	reactions map[int][]*gh.Reaction
	searchErr error

	queries        []string
	reactionCalls  int
	searchOptsSeen []gh.SearchOptions
}

func (m *MockClient) SearchIssues(_ context.Context, query string, opts *gh.SearchOptions) (*gh.IssuesSearchResult, *gh.Response, error) {
	m.queries = append(m.queries, query)
	m.searchOptsSeen = append(m.searchOptsSeen, *opts)
	if m.searchErr != nil {
		return nil, nil, m.searchErr
	}
	page := opts.Page
	if page == 0 {
		page = 1
	}
	resp := &gh.Response{}
	if page < len(m.pages) {
		resp.NextPage = page + 1
	}
	if page > len(m.pages) {
		return &gh.IssuesSearchResult{}, resp, nil
	}
	return &gh.IssuesSearchResult{Issues: m.pages[page-1]}, resp, nil
}

func (m *MockClient) ListIssueReactions(_ context.Context, _, _ string, number int, _ *gh.ListOptions) ([]*gh.Reaction, *gh.Response, error) {
	m.reactionCalls++
	return m.reactions[number], &gh.Response{}, nil
}

func ghIssue(number int, login string, plusOne int, labels ...string) *gh.Issue {
	issue := &gh.Issue{
		Number:        gh.Int(number),
		Title:         gh.String("title"),
		RepositoryURL: gh.String("https://api.github.com/repos/pawamoy/insiders"),
		CreatedAt:     &gh.Timestamp{Time: time.Date(2024, 1, number, 0, 0, 0, 0, time.UTC)},
		User:          &gh.User{Login: gh.String(login), Type: gh.String("User")},
		Reactions:     &gh.Reactions{PlusOne: gh.Int(plusOne)},
	}
	for _, l := range labels {
		issue.Labels = append(issue.Labels, &gh.Label{Name: gh.String(l)})
	}
	return issue
}

func plusOne(login string) *gh.Reaction {
	return &gh.Reaction{Content: gh.String("+1"), User: &gh.User{Login: gh.String(login)}}
}

func TestIssueSource_GetIssues(t *testing.T) {
	mock := &MockClient{
		pages: [][]*gh.Issue{
			{ghIssue(1, "alice", 2, "bug", "internal"), ghIssue(2, "dependabot[bot]", 0)},
			{ghIssue(3, "bob", 0)},
		},
		reactions: map[int][]*gh.Reaction{
			1: {plusOne("bob"), plusOne("carol"), {Content: gh.String("heart"), User: &gh.User{Login: gh.String("dave")}}},
		},
	}

	knownBob := &model.Account{Name: "bob", Platform: model.PlatformGitHub}
	source := NewIssueSource(mock, nil)
	issues, err := source.GetIssues(context.Background(), []string{"pawamoy", "mkdocstrings"}, []*model.Account{knownBob}, []string{"bug"})
	if err != nil {
		t.Fatalf("GetIssues failed: %v", err)
	}

	if issues.Len() != 3 {
		t.Fatalf("got %d issues, want 3", issues.Len())
	}
	if mock.queries[0] != "is:issue is:open user:pawamoy user:mkdocstrings" {
		t.Errorf("query = %q", mock.queries[0])
	}
	if opts := mock.searchOptsSeen[0]; opts.Sort != "created" || opts.Order != "asc" || opts.PerPage != 100 {
		t.Errorf("search options = %+v", opts)
	}

	first := issues.Issues()[0]
	if first.Repository != "pawamoy/insiders" || first.Number != 1 {
		t.Errorf("first issue = %s", first.Key())
	}
	if first.UpvoteCount() != 2 {
		t.Fatalf("upvotes = %d, want 2", first.UpvoteCount())
	}
	if first.Upvotes()[0] != knownBob {
		t.Error("known account must be reused for upvoters")
	}
	if labels := first.Labels(); len(labels) != 1 || labels[0] != "bug" {
		t.Errorf("labels = %v, want [bug]", labels)
	}

	bot := issues.Issues()[1]
	if bot.Author.Name != "dependabot" {
		t.Errorf("bot author = %q, want dependabot", bot.Author.Name)
	}
	if issues.Issues()[2].Author != knownBob {
		t.Error("known account must be reused for authors")
	}

	if mock.reactionCalls != 1 {
		t.Errorf("reaction calls = %d, want 1 (only issues with +1)", mock.reactionCalls)
	}
}

func TestIssueSource_UsesReactionCache(t *testing.T) {
	mock := &MockClient{
		pages:     [][]*gh.Issue{{ghIssue(1, "alice", 1)}},
		reactions: map[int][]*gh.Reaction{1: {plusOne("bob")}},
	}
	source := NewIssueSource(mock, NewReactionCache(time.Minute))

	for i := 0; i < 2; i++ {
		if _, err := source.GetIssues(context.Background(), []string{"pawamoy"}, nil, nil); err != nil {
			t.Fatalf("GetIssues failed: %v", err)
		}
	}
	if mock.reactionCalls != 1 {
		t.Errorf("reaction calls = %d, want 1", mock.reactionCalls)
	}

	mock.pages[0][0].Reactions.PlusOne = gh.Int(2)
	if _, err := source.GetIssues(context.Background(), []string{"pawamoy"}, nil, nil); err != nil {
		t.Fatalf("GetIssues failed: %v", err)
	}
	if mock.reactionCalls != 2 {
		t.Errorf("reaction calls = %d, want 2 after the +1 count changed", mock.reactionCalls)
	}
	if source.CleanExpired() != 0 {
		t.Error("fresh entries must survive a sweep")
	}
}

func TestIssueSource_NoNamespaces(t *testing.T) {
	mock := &MockClient{}
	issues, err := NewIssueSource(mock, nil).GetIssues(context.Background(), nil, nil, nil)
	if err != nil {
		t.Fatalf("GetIssues failed: %v", err)
	}
	if issues.Len() != 0 || len(mock.queries) != 0 {
		t.Error("no namespaces must not query GitHub")
	}
}

func TestIssueSource_SearchError(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := NewIssueSource(&MockClient{searchErr: boom}, nil).GetIssues(context.Background(), []string{"x"}, nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestRepositoryName(t *testing.T) {
	cases := map[string]string{
		"https://api.github.com/repos/pawamoy/insiders":  "pawamoy/insiders",
		"https://ghe.example.com/api/v3/repos/org/repo/": "org/repo",
		"https://example.com/nothing":                    "",
	}
	for in, want := range cases {
		if got := repositoryName(in); got != want {
			t.Errorf("repositoryName(%q) = %q, want %q", in, got, want)
		}
	}
}
