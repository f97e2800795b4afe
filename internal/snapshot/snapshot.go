// Package snapshot records ranked backlogs so rankings can be compared over time.
package snapshot

import (
	"time"

	"github.com/google/uuid"

	"github.com/skridlevsky/insiders/internal/model"
)

// Snapshot is a ranked backlog frozen at a point in time
type Snapshot struct {
	ID           uuid.UUID `json:"id"`
	TakenAt      time.Time `json:"takenAt"`
	Sort         []string  `json:"sort"`
	Namespaces   []string  `json:"namespaces"`
	IssueCount   int       `json:"issueCount"`
	SponsorCount int       `json:"sponsorCount"`
	SponsorTotal int       `json:"sponsorTotal"`
	Entries      []Entry   `json:"entries,omitempty"`
}

// Entry is an issue and the signals it was ranked on
type Entry struct {
	Rank       int       `json:"rank"`
	Repository string    `json:"repository"`
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Platform   string    `json:"platform"`
	CreatedAt  time.Time `json:"createdAt"`
	Funding    int       `json:"funding"`
	Pledged    int       `json:"pledged"`
	Upvotes    int       `json:"upvotes"`
	Labels     []string  `json:"labels"`
}

// Meta describes how the ranked issues were produced
type Meta struct {
	Sort       []string
	Namespaces []string
	Sponsors   *model.Sponsors
	TakenAt    time.Time
}

// FromBacklog freezes issues in their current order. Ranks start at 1.
func FromBacklog(issues []*model.Issue, meta Meta) *Snapshot {
	takenAt := meta.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}

	s := &Snapshot{
		ID:           uuid.New(),
		TakenAt:      takenAt.UTC(),
		Sort:         append([]string{}, meta.Sort...),
		Namespaces:   append([]string{}, meta.Namespaces...),
		IssueCount:   len(issues),
		SponsorCount: meta.Sponsors.Len(),
		SponsorTotal: meta.Sponsors.Total(),
		Entries:      make([]Entry, 0, len(issues)),
	}

	for i, issue := range issues {
		author := ""
		if issue.Author != nil {
			author = issue.Author.Name
		}
		s.Entries = append(s.Entries, Entry{
			Rank:       i + 1,
			Repository: issue.Repository,
			Number:     issue.Number,
			Title:      issue.Title,
			Author:     author,
			Platform:   string(issue.Platform),
			CreatedAt:  issue.Created,
			Funding:    issue.Funding(),
			Pledged:    issue.Pledged,
			Upvotes:    issue.UpvoteCount(),
			Labels:     issue.Labels(),
		})
	}

	return s
}
