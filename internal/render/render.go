// Package render prints backlogs and sponsors as aligned terminal tables.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/skridlevsky/insiders/internal/model"
)

// Options controls the backlog table
type Options struct {
	Labels     map[string]string // label → glyph; labels without a glyph are not shown
	Pledges    bool
	Limit      int // 0 prints every issue
	Hyperlinks bool
}

// Backlog prints issues in the given order
func Backlog(w io.Writer, issues []*model.Issue, opts Options) error {
	if opts.Limit > 0 && len(issues) > opts.Limit {
		issues = issues[:opts.Limit]
	}

	t := &table{links: opts.Hyperlinks}
	t.headers = []string{"Issue", "Author", "Labels", "Funding"}
	if opts.Pledges {
		t.headers = append(t.headers, "Pledged")
	}
	t.headers = append(t.headers, "Upvotes", "Title")

	for _, issue := range issues {
		row := []cell{
			{text: issue.Key().String(), link: IssueURL(issue)},
			{text: issue.Author.Name, link: issue.Author.ProfileURL()},
			{text: labelGlyphs(issue, opts.Labels)},
			{text: "💖" + strconv.Itoa(issue.Funding())},
		}
		if opts.Pledges {
			row = append(row, cell{text: "💲" + strconv.Itoa(issue.Pledged)})
		}
		row = append(row,
			cell{text: "👍" + strconv.Itoa(issue.UpvoteCount())},
			cell{text: issue.Title},
		)
		t.add(row...)
	}

	return t.write(w)
}

// IssueURL links to the issue on GitHub, where every tracked issue lives
func IssueURL(issue *model.Issue) string {
	return fmt.Sprintf("https://github.com/%s/issues/%d", issue.Repository, issue.Number)
}

func labelGlyphs(issue *model.Issue, glyphs map[string]string) string {
	var b strings.Builder
	for _, label := range issue.Labels() {
		if glyph, ok := glyphs[label]; ok {
			b.WriteString(glyph)
		}
	}
	return b.String()
}

// Sponsors prints every sponsorship and the monthly total
func Sponsors(w io.Writer, sponsors *model.Sponsors, hyperlinks bool) error {
	t := &table{links: hyperlinks}
	t.headers = []string{"Account", "Platform", "Amount", "Private", "Created"}

	if sponsors != nil {
		for _, sp := range sponsors.Sponsorships {
			private, link := "", sp.Account.ProfileURL()
			if sp.Private {
				private, link = "yes", ""
			}
			name := sp.Account.Name
			if sp.Account.IsOrg {
				name += " (org)"
			}
			t.add(
				cell{text: name, link: link},
				cell{text: string(sp.Account.Platform)},
				cell{text: "$" + strconv.Itoa(sp.Amount)},
				cell{text: private},
				cell{text: sp.Created.Format("2006-01-02")},
			)
		}
	}

	if err := t.write(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d sponsorships, $%d/month\n", sponsors.Len(), sponsors.Total())
	return err
}
