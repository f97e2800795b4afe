package snapshot

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skridlevsky/insiders/internal/model"
)

func TestFromBacklog(t *testing.T) {
	alice := &model.Account{Name: "alice", Platform: model.PlatformGitHub}
	sponsorship, err := model.NewSponsorship(alice, 40, time.Now(), false)
	if err != nil {
		t.Fatal(err)
	}
	bob := &model.Account{Name: "bob", Platform: model.PlatformGitHub}

	first := &model.Issue{Repository: "o/a", Number: 2, Title: "A", Author: alice, Pledged: 10, Platform: model.PlatformGitHub}
	first.AddLabel("feature")
	first.AddUpvote(bob)
	second := &model.Issue{Repository: "o/b", Number: 1, Title: "B", Author: bob, Platform: model.PlatformGitHub}

	takenAt := time.Date(2024, 4, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	sort := []string{"min_author_sponsorships(30)", "created"}
	snap := FromBacklog([]*model.Issue{first, second}, Meta{
		Sort:       sort,
		Namespaces: []string{"o"},
		Sponsors:   model.NewSponsors(sponsorship),
		TakenAt:    takenAt,
	})

	if snap.ID == uuid.Nil {
		t.Error("snapshot must get an ID")
	}
	if !snap.TakenAt.Equal(takenAt) || snap.TakenAt.Location() != time.UTC {
		t.Errorf("TakenAt = %v", snap.TakenAt)
	}
	if snap.IssueCount != 2 || snap.SponsorCount != 1 || snap.SponsorTotal != 40 {
		t.Errorf("counts = %d/%d/%d", snap.IssueCount, snap.SponsorCount, snap.SponsorTotal)
	}

	sort[0] = "mutated"
	if snap.Sort[0] != "min_author_sponsorships(30)" {
		t.Error("snapshot must copy the sort expressions")
	}

	e := snap.Entries[0]
	if e.Rank != 1 || e.Repository != "o/a" || e.Funding != 40 || e.Pledged != 10 || e.Upvotes != 1 {
		t.Errorf("first entry = %+v", e)
	}
	if len(e.Labels) != 1 || e.Labels[0] != "feature" {
		t.Errorf("labels = %v", e.Labels)
	}
	if snap.Entries[1].Rank != 2 || snap.Entries[1].Author != "bob" {
		t.Errorf("second entry = %+v", snap.Entries[1])
	}
}

func TestFromBacklog_NilSponsors(t *testing.T) {
	snap := FromBacklog(nil, Meta{})
	if snap.SponsorCount != 0 || snap.IssueCount != 0 || snap.TakenAt.IsZero() {
		t.Errorf("snapshot = %+v", snap)
	}
}
