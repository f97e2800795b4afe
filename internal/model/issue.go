package model

import (
	"fmt"
	"sort"
	"time"
)

// IssueKey identifies an issue across platforms
type IssueKey struct {
	Repository string
	Number     int
}

func (k IssueKey) String() string {
	return fmt.Sprintf("%s#%d", k.Repository, k.Number)
}

// Issue represents a trackable unit of work with funding and upvote signal
// attached through its interested users
type Issue struct {
	Repository string    `json:"repository"` // namespace/name
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Created    time.Time `json:"created"`
	Author     *Account  `json:"author"`
	Pledged    int       `json:"pledged"`
	Platform   Platform  `json:"platform"`

	upvotes   []*Account
	upvoteSet map[AccountKey]bool
	labels    map[string]bool
}

// Key returns the cross-platform identity of the issue
func (i *Issue) Key() IssueKey {
	return IssueKey{Repository: i.Repository, Number: i.Number}
}

// Validate checks the invariants a source must uphold
func (i *Issue) Validate() error {
	switch {
	case i.Repository == "":
		return fmt.Errorf("%w: missing repository", ErrMalformedIssue)
	case i.Number <= 0:
		return fmt.Errorf("%w: %s has invalid number", ErrMalformedIssue, i.Key())
	case i.Author == nil:
		return fmt.Errorf("%w: %s has no author", ErrMalformedIssue, i.Key())
	case i.Pledged < 0:
		return fmt.Errorf("%w: %s has negative pledge %d", ErrMalformedIssue, i.Key(), i.Pledged)
	}
	return nil
}

// AddUpvote records an upvoter. Returns false if the account already upvoted.
func (i *Issue) AddUpvote(a *Account) bool {
	if i.upvoteSet == nil {
		i.upvoteSet = make(map[AccountKey]bool)
	}
	if i.upvoteSet[a.Key()] {
		return false
	}
	i.upvoteSet[a.Key()] = true
	i.upvotes = append(i.upvotes, a)
	return true
}

// Upvotes returns the unique upvoters in the order they were added
func (i *Issue) Upvotes() []*Account {
	out := make([]*Account, len(i.upvotes))
	copy(out, i.upvotes)
	return out
}

// UpvoteCount returns the number of unique upvoters
func (i *Issue) UpvoteCount() int {
	return len(i.upvotes)
}

// AddLabel adds a label to the issue
func (i *Issue) AddLabel(name string) {
	if i.labels == nil {
		i.labels = make(map[string]bool)
	}
	i.labels[name] = true
}

// HasLabel reports whether the issue carries the label
func (i *Issue) HasLabel(name string) bool {
	return i.labels[name]
}

// Labels returns the labels sorted by name
func (i *Issue) Labels() []string {
	out := make([]string, 0, len(i.labels))
	for name := range i.labels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// InterestedUsers returns the author followed by every upvoter, deduplicated
func (i *Issue) InterestedUsers() []*Account {
	users := make([]*Account, 0, len(i.upvotes)+1)
	if i.Author != nil {
		users = append(users, i.Author)
	}
	for _, a := range i.upvotes {
		if i.Author != nil && a.Key() == i.Author.Key() {
			continue
		}
		users = append(users, a)
	}
	return users
}

// Sponsorships returns the set of sponsorships behind the interested users.
// A sponsorship reached through several users is listed once.
func (i *Issue) Sponsorships() []*Sponsorship {
	seen := make(map[AccountKey]bool)
	var out []*Sponsorship
	for _, user := range i.InterestedUsers() {
		for _, s := range user.sponsorships {
			if seen[s.Key()] {
				continue
			}
			seen[s.Key()] = true
			out = append(out, s)
		}
	}
	return out
}

// Funding is the total monthly sponsorship amount behind the issue
func (i *Issue) Funding() int {
	total := 0
	for _, s := range i.Sponsorships() {
		total += s.Amount
	}
	return total
}

// UpvotersTierSum sums the tier sum of every upvoter
func (i *Issue) UpvotersTierSum() int {
	total := 0
	for _, a := range i.upvotes {
		total += a.TierSum()
	}
	return total
}

// IssueSet is an insertion-ordered collection of issues keyed by IssueKey
type IssueSet struct {
	order []IssueKey
	byKey map[IssueKey]*Issue
}

// NewIssueSet creates a set from issues, in order
func NewIssueSet(issues ...*Issue) *IssueSet {
	set := &IssueSet{byKey: make(map[IssueKey]*Issue, len(issues))}
	for _, issue := range issues {
		set.Add(issue)
	}
	return set
}

// Add inserts an issue. Re-adding a key replaces the issue but keeps its position.
func (s *IssueSet) Add(issue *Issue) {
	key := issue.Key()
	if _, exists := s.byKey[key]; !exists {
		s.order = append(s.order, key)
	}
	s.byKey[key] = issue
}

// Get looks up an issue by key
func (s *IssueSet) Get(key IssueKey) (*Issue, bool) {
	if s == nil {
		return nil, false
	}
	issue, ok := s.byKey[key]
	return issue, ok
}

// Len returns the number of issues
func (s *IssueSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Issues returns the issues in insertion order
func (s *IssueSet) Issues() []*Issue {
	if s == nil {
		return nil
	}
	out := make([]*Issue, len(s.order))
	for idx, key := range s.order {
		out[idx] = s.byKey[key]
	}
	return out
}
