package backlog

import (
	"testing"
	"time"

	"github.com/skridlevsky/insiders/internal/model"
)

func TestSort_AuthorSponsorshipsThenCreated(t *testing.T) {
	x := sponsorAccount(t, "x", 0)
	y := sponsorAccount(t, "y", 200)
	z := sponsorAccount(t, "z", 200)

	b := New([]*model.Issue{
		newIssue("repoA", 1, x, baseTime),
		newIssue("repoA", 2, y, baseTime.Add(time.Hour)),
		newIssue("repoA", 3, z, baseTime.Add(2*time.Hour)),
	})
	b.Sort(AuthorSponsorships(true), Created(false))

	if got := numbers(b.Issues()); !equalInts(got, []int{2, 3, 1}) {
		t.Errorf("Order = %v, want [2 3 1]", got)
	}
}

func TestSort_GateClustersAndKeepsOrder(t *testing.T) {
	rich := sponsorAccount(t, "rich", 150)
	richer := sponsorAccount(t, "richer", 300)
	poor := sponsorAccount(t, "poor", 50)
	poorer := sponsorAccount(t, "poorer", 99)

	// Input order is the upstream order; created times are intentionally
	// unordered so only stability keeps gate-0 ties in place.
	b := New([]*model.Issue{
		newIssue("r", 1, poorer, baseTime.Add(5*time.Hour)),
		newIssue("r", 2, rich, baseTime.Add(4*time.Hour)),
		newIssue("r", 3, poor, baseTime.Add(3*time.Hour)),
		newIssue("r", 4, richer, baseTime.Add(1*time.Hour)),
	})
	b.Sort(MinAuthorSponsorships(100, true))

	if got := numbers(b.Issues()); !equalInts(got, []int{4, 2, 1, 3}) {
		t.Errorf("Order = %v, want [4 2 1 3]", got)
	}
}

func TestSort_GateThenCreatedGroupsQualifiers(t *testing.T) {
	rich := sponsorAccount(t, "rich", 100)
	also := sponsorAccount(t, "also", 100)
	poor := sponsorAccount(t, "poor", 10)

	b := New([]*model.Issue{
		newIssue("r", 1, poor, baseTime),
		newIssue("r", 2, also, baseTime.Add(2*time.Hour)),
		newIssue("r", 3, rich, baseTime.Add(time.Hour)),
	})
	b.Sort(MinAuthorSponsorships(100, true), Created(false))

	if got := numbers(b.Issues()); !equalInts(got, []int{3, 2, 1}) {
		t.Errorf("Order = %v, want [3 2 1]", got)
	}
}

func TestMinPledge_Boundary(t *testing.T) {
	author := sponsorAccount(t, "a", 0)
	issue := newIssue("r", 1, author, baseTime)

	ascending := MinPledge(50, false)
	issue.Pledged = 49
	if got := ascending(issue); got != 0 {
		t.Errorf("MinPledge(50) at 49 = %d, want 0", got)
	}
	issue.Pledged = 50
	if got := ascending(issue); got != 50 {
		t.Errorf("MinPledge(50) at 50 = %d, want 50", got)
	}
	if got := MinPledge(50, true)(issue); got != -50 {
		t.Errorf("Reversed MinPledge(50) at 50 = %d, want -50", got)
	}
}

func TestStrategies_Values(t *testing.T) {
	author := sponsorAccount(t, "author", 30)
	up1 := sponsorAccount(t, "up1", 20)
	up2 := sponsorAccount(t, "up2", 5)

	issue := newIssue("mkdocstrings/python", 7, author, baseTime)
	issue.AddUpvote(up1)
	issue.AddUpvote(up2)
	issue.AddUpvote(author)
	issue.Pledged = 12
	issue.AddLabel("bug")

	cases := []struct {
		name     string
		strategy Strategy
		want     int64
	}{
		{"authorSponsorships", AuthorSponsorships(false), 30},
		{"upvotersSponsorships", UpvotersSponsorships(false), 55},
		{"minUpvotersSponsorships below", MinUpvotersSponsorships(56, false), 0},
		{"sponsorships", Sponsorships(false), 55},
		{"minSponsorships", MinSponsorships(55, true), -55},
		{"pledge", Pledge(true), -12},
		{"upvotes", Upvotes(false), 3},
		{"minUpvotes", MinUpvotes(4, false), 0},
		{"created", Created(false), baseTime.Unix()},
		{"label hit", Label("bug", true), -1},
		{"label miss", Label("docs", true), 0},
		{"repository glob", Repository("mkdocstrings/*", true), -1},
		{"repository glob crosses slash", Repository("*python", false), 1},
		{"repository miss", Repository("pawamoy/*", true), 0},
		{"repository class", Repository("mkdocs[st]rings/py?hon", false), 1},
		{"repository negated class", Repository("[!m]*", false), 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.strategy(issue); got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestGlobToRegexp_Literal(t *testing.T) {
	if !globToRegexp("a.b[").MatchString("a.b[") {
		t.Error("Expected unterminated bracket to match literally")
	}
	if globToRegexp("a.b").MatchString("axb") {
		t.Error("Dots must be literal")
	}
}

func TestGlobToRegexp_Sets(t *testing.T) {
	cases := []struct {
		pattern, name string
		want          bool
	}{
		{"[a-c]x", "bx", true},
		{"[z-a]x", "[z-a]x", false},
		{"[z-a]x", "zx", false},
		{"[!z-a]", "q", true},
		{"[a-cz-a]", "b", true},
		{"[a-cz-a]", "z", false},
		{"[[:alpha:]]", "a]", true},
		{"[[:alpha:]]", "[]", true},
		{"[[:alpha:]]", "b]", false},
		{"[]]", "]", true},
		{"[!]]", "a", true},
		{"[!]]", "]", false},
		{"[-a]", "-", true},
		{"[a-]", "-", true},
		{"[^x]", "^", true},
		{"[^x]", "y", false},
		{"[\\]", "\\", true},
	}
	for _, tc := range cases {
		if got := globToRegexp(tc.pattern).MatchString(tc.name); got != tc.want {
			t.Errorf("%q matching %q = %v, want %v", tc.pattern, tc.name, got, tc.want)
		}
	}
}

func TestBacklog_HeadAndClone(t *testing.T) {
	a := sponsorAccount(t, "a", 0)
	b := New([]*model.Issue{
		newIssue("r", 1, a, baseTime),
		newIssue("r", 2, a, baseTime.Add(time.Hour)),
		newIssue("r", 3, a, baseTime.Add(2*time.Hour)),
	})

	if got := numbers(b.Head(2)); !equalInts(got, []int{1, 2}) {
		t.Errorf("Head(2) = %v", got)
	}
	if got := len(b.Head(0)); got != 3 {
		t.Errorf("Head(0) = %d issues, want 3", got)
	}

	clone := b.Clone()
	clone.Sort(Created(true))
	if got := numbers(clone.Issues()); !equalInts(got, []int{3, 2, 1}) {
		t.Errorf("Clone order = %v", got)
	}
	if got := numbers(b.Issues()); !equalInts(got, []int{1, 2, 3}) {
		t.Errorf("Original order changed: %v", got)
	}

	b.Sort()
	if got := numbers(b.Issues()); !equalInts(got, []int{1, 2, 3}) {
		t.Errorf("Sort without strategies changed order: %v", got)
	}
}
