package backlog

import (
	"sort"

	"github.com/skridlevsky/insiders/internal/model"
)

// Backlog is an ordered list of issues. Order means rank once sorted.
type Backlog struct {
	issues []*model.Issue
}

// New wraps issues in a backlog, keeping their order
func New(issues []*model.Issue) *Backlog {
	b := &Backlog{issues: make([]*model.Issue, len(issues))}
	copy(b.issues, issues)
	return b
}

// Issues returns the issues in their current order
func (b *Backlog) Issues() []*model.Issue {
	out := make([]*model.Issue, len(b.issues))
	copy(out, b.issues)
	return out
}

// Len returns the number of issues
func (b *Backlog) Len() int {
	return len(b.issues)
}

// Head returns the first n issues, or all of them when n <= 0
func (b *Backlog) Head(n int) []*model.Issue {
	if n <= 0 || n >= len(b.issues) {
		return b.Issues()
	}
	out := make([]*model.Issue, n)
	copy(out, b.issues[:n])
	return out
}

// Clone returns a backlog sharing the same issues in an independent order
func (b *Backlog) Clone() *Backlog {
	return New(b.issues)
}

// Sort orders the backlog in place by the strategies, applied
// lexicographically: the first strategy is the primary key, ties fall
// through to the next. The sort is stable, so full ties keep their
// previous relative order.
func (b *Backlog) Sort(strategies ...Strategy) {
	if len(strategies) == 0 {
		return
	}

	type keyed struct {
		issue *model.Issue
		key   []int64
	}
	rows := make([]keyed, len(b.issues))
	for i, issue := range b.issues {
		key := make([]int64, len(strategies))
		for j, strategy := range strategies {
			key[j] = strategy(issue)
		}
		rows[i] = keyed{issue: issue, key: key}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return compareKeys(rows[i].key, rows[j].key) < 0
	})

	for i := range rows {
		b.issues[i] = rows[i].issue
	}
}

func compareKeys(a, b []int64) int {
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}
