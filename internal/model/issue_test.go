package model

import (
	"errors"
	"testing"
	"time"
)

func TestIssue_FundingCountsSponsorOnce(t *testing.T) {
	sponsor := &Account{Name: "grace", Platform: PlatformGitHub}
	mustSponsorship(t, sponsor, 50)
	other := &Account{Name: "heidi", Platform: PlatformGitHub}
	mustSponsorship(t, other, 10)

	issue := &Issue{Repository: "ns/repo", Number: 1, Author: sponsor, Created: time.Now()}
	issue.AddUpvote(sponsor)
	issue.AddUpvote(other)

	if got := issue.Funding(); got != 60 {
		t.Errorf("Funding = %d, want 60", got)
	}
	if got := len(issue.InterestedUsers()); got != 2 {
		t.Errorf("InterestedUsers = %d, want 2", got)
	}
}

func TestIssue_FundingDedupsSharedOrgSponsorship(t *testing.T) {
	org := &Account{Name: "acme", Platform: PlatformGitHub, IsOrg: true}
	alice := &Account{Name: "alice", Platform: PlatformGitHub}
	bob := &Account{Name: "bob", Platform: PlatformGitHub}

	s := mustSponsorship(t, org, 200)
	s.AddBeneficiary(alice, org, nil)
	s.AddBeneficiary(bob, org, nil)

	issue := &Issue{Repository: "ns/repo", Number: 2, Author: alice}
	issue.AddUpvote(bob)

	if got := issue.Funding(); got != 200 {
		t.Errorf("Funding = %d, want 200 (org sponsorship counted once)", got)
	}
	if got := issue.UpvotersTierSum(); got != 200 {
		t.Errorf("UpvotersTierSum = %d, want 200", got)
	}
}

func TestIssue_UpvotesAreASet(t *testing.T) {
	issue := &Issue{Repository: "ns/repo", Number: 3, Author: &Account{Name: "x", Platform: PlatformGitHub}}
	if !issue.AddUpvote(&Account{Name: "y", Platform: PlatformGitHub}) {
		t.Error("First upvote should be recorded")
	}
	if issue.AddUpvote(&Account{Name: "y", Platform: PlatformGitHub}) {
		t.Error("Duplicate upvote should be ignored")
	}
	if issue.UpvoteCount() != 1 {
		t.Errorf("UpvoteCount = %d, want 1", issue.UpvoteCount())
	}
}

func TestIssue_Labels(t *testing.T) {
	issue := &Issue{}
	issue.AddLabel("feature")
	issue.AddLabel("bug")
	issue.AddLabel("bug")

	labels := issue.Labels()
	if len(labels) != 2 || labels[0] != "bug" || labels[1] != "feature" {
		t.Errorf("Labels = %v", labels)
	}
	if !issue.HasLabel("bug") || issue.HasLabel("docs") {
		t.Error("HasLabel mismatch")
	}
}

func TestIssue_Validate(t *testing.T) {
	author := &Account{Name: "x", Platform: PlatformGitHub}
	valid := &Issue{Repository: "ns/repo", Number: 1, Author: author}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid issue, got %v", err)
	}

	invalid := []*Issue{
		{Number: 1, Author: author},
		{Repository: "ns/repo", Author: author},
		{Repository: "ns/repo", Number: 1},
		{Repository: "ns/repo", Number: 1, Author: author, Pledged: -5},
	}
	for _, issue := range invalid {
		if err := issue.Validate(); !errors.Is(err, ErrMalformedIssue) {
			t.Errorf("Expected ErrMalformedIssue for %+v, got %v", issue, err)
		}
	}
}

func TestIssueSet_KeepsInsertionOrder(t *testing.T) {
	author := &Account{Name: "x", Platform: PlatformGitHub}
	i1 := &Issue{Repository: "b/repo", Number: 9, Author: author}
	i2 := &Issue{Repository: "a/repo", Number: 1, Author: author}
	i3 := &Issue{Repository: "b/repo", Number: 9, Author: author, Title: "replaced"}

	set := NewIssueSet(i1, i2, i3)
	if set.Len() != 2 {
		t.Fatalf("Len = %d, want 2", set.Len())
	}
	issues := set.Issues()
	if issues[0] != i3 || issues[1] != i2 {
		t.Errorf("Unexpected order: %s, %s", issues[0].Key(), issues[1].Key())
	}
	if got, ok := set.Get(IssueKey{Repository: "a/repo", Number: 1}); !ok || got != i2 {
		t.Error("Get by key failed")
	}
	if i1.Key().String() != "b/repo#9" {
		t.Errorf("Key string = %q", i1.Key().String())
	}
}
