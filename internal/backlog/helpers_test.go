package backlog

import (
	"testing"
	"time"

	"github.com/skridlevsky/insiders/internal/model"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// sponsorAccount creates a GitHub account whose tier sum equals amount
func sponsorAccount(t *testing.T, name string, amount int) *model.Account {
	t.Helper()
	a := &model.Account{Name: name, Platform: model.PlatformGitHub}
	if amount > 0 {
		if _, err := model.NewSponsorship(a, amount, baseTime, false); err != nil {
			t.Fatalf("NewSponsorship failed: %v", err)
		}
	}
	return a
}

func newIssue(repo string, number int, author *model.Account, created time.Time) *model.Issue {
	return &model.Issue{
		Repository: repo,
		Number:     number,
		Title:      "issue",
		Created:    created,
		Author:     author,
		Platform:   model.PlatformGitHub,
	}
}

func numbers(issues []*model.Issue) []int {
	out := make([]int, len(issues))
	for i, issue := range issues {
		out[i] = issue.Number
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
