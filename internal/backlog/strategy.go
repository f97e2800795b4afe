package backlog

import (
	"regexp"
	"strings"

	"github.com/skridlevsky/insiders/internal/model"
)

// Strategy maps an issue to one component of its sort key.
// Keys sort ascending, so strategies encode their own direction.
type Strategy func(issue *model.Issue) int64

// factor returns -1 when reverse is set so that higher values sort first
func factor(reverse bool) int64 {
	if reverse {
		return -1
	}
	return 1
}

// gate zeroes values below amount (inclusive boundary)
func gate(value, amount int) int {
	if value >= amount {
		return value
	}
	return 0
}

func authorTierSum(issue *model.Issue) int {
	if issue.Author == nil {
		return 0
	}
	return issue.Author.TierSum()
}

// AuthorSponsorships ranks by the author's tier sum
func AuthorSponsorships(reverse bool) Strategy {
	f := factor(reverse)
	return func(issue *model.Issue) int64 {
		return f * int64(authorTierSum(issue))
	}
}

// MinAuthorSponsorships ranks by the author's tier sum, counting sums below amount as 0
func MinAuthorSponsorships(amount int, reverse bool) Strategy {
	f := factor(reverse)
	return func(issue *model.Issue) int64 {
		return f * int64(gate(authorTierSum(issue), amount))
	}
}

// UpvotersSponsorships ranks by the sum of the upvoters' tier sums
func UpvotersSponsorships(reverse bool) Strategy {
	f := factor(reverse)
	return func(issue *model.Issue) int64 {
		return f * int64(issue.UpvotersTierSum())
	}
}

// MinUpvotersSponsorships is UpvotersSponsorships gated at amount
func MinUpvotersSponsorships(amount int, reverse bool) Strategy {
	f := factor(reverse)
	return func(issue *model.Issue) int64 {
		return f * int64(gate(issue.UpvotersTierSum(), amount))
	}
}

// Sponsorships ranks by the issue's funding
func Sponsorships(reverse bool) Strategy {
	f := factor(reverse)
	return func(issue *model.Issue) int64 {
		return f * int64(issue.Funding())
	}
}

// MinSponsorships is Sponsorships gated at amount
func MinSponsorships(amount int, reverse bool) Strategy {
	f := factor(reverse)
	return func(issue *model.Issue) int64 {
		return f * int64(gate(issue.Funding(), amount))
	}
}

// Pledge ranks by the amount pledged on the issue
func Pledge(reverse bool) Strategy {
	f := factor(reverse)
	return func(issue *model.Issue) int64 {
		return f * int64(issue.Pledged)
	}
}

// MinPledge is Pledge gated at amount
func MinPledge(amount int, reverse bool) Strategy {
	f := factor(reverse)
	return func(issue *model.Issue) int64 {
		return f * int64(gate(issue.Pledged, amount))
	}
}

// Upvotes ranks by the number of upvoters
func Upvotes(reverse bool) Strategy {
	f := factor(reverse)
	return func(issue *model.Issue) int64 {
		return f * int64(issue.UpvoteCount())
	}
}

// MinUpvotes is Upvotes gated at amount
func MinUpvotes(amount int, reverse bool) Strategy {
	f := factor(reverse)
	return func(issue *model.Issue) int64 {
		return f * int64(gate(issue.UpvoteCount(), amount))
	}
}

// Created ranks by creation time in seconds. Unlike the other strategies,
// callers usually want reverse=false (oldest first).
func Created(reverse bool) Strategy {
	f := factor(reverse)
	return func(issue *model.Issue) int64 {
		return f * issue.Created.Unix()
	}
}

// Label boosts issues carrying the label
func Label(name string, reverse bool) Strategy {
	f := factor(reverse)
	return func(issue *model.Issue) int64 {
		if issue.HasLabel(name) {
			return f
		}
		return 0
	}
}

// Repository boosts issues whose repository matches a shell-style pattern
func Repository(pattern string, reverse bool) Strategy {
	f := factor(reverse)
	re := globToRegexp(pattern)
	return func(issue *model.Issue) int64 {
		if re.MatchString(issue.Repository) {
			return f
		}
		return 0
	}
}

// matchNothing is a set that no character belongs to
const matchNothing = `[^\x00-\x{10FFFF}]`

// globToRegexp translates an fnmatch pattern: * and ? match any character
// including "/", [seq] and [!seq] are character sets, and an unterminated
// [ is literal.
func globToRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString("(?s:.*)")
		case '?':
			b.WriteString("(?s:.)")
		case '[':
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j >= len(pattern) {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(setToRegexp([]rune(pattern[i+1 : j])))
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return regexp.MustCompile(matchNothing)
	}
	return re
}

// setToRegexp translates the inside of a [...] set. Like fnmatch, it drops
// reversed ranges such as z-a; a set left empty matches nothing and a
// lone "!" matches any character. Every other character is literal, so
// "[:alpha:]" is a set of letters and punctuation, not a POSIX class.
func setToRegexp(set []rune) string {
	var chunks [][]rune
	if !containsRune(set, '-') {
		chunks = [][]rune{set}
	} else {
		// a '-' right after "[" or "[!" is literal
		start, k := 0, 1
		if set[0] == '!' {
			k = 2
		}
		for {
			dash := indexRuneFrom(set, '-', k)
			if dash < 0 {
				break
			}
			chunks = append(chunks, set[start:dash])
			start, k = dash+1, dash+3
		}
		if last := set[start:]; len(last) > 0 {
			chunks = append(chunks, last)
		} else {
			prev := chunks[len(chunks)-1]
			chunks[len(chunks)-1] = append(prev[:len(prev):len(prev)], '-')
		}
		for k := len(chunks) - 1; k > 0; k-- {
			prev, cur := chunks[k-1], chunks[k]
			if len(prev) > 0 && prev[len(prev)-1] > cur[0] {
				merged := append([]rune{}, prev[:len(prev)-1]...)
				chunks[k-1] = append(merged, cur[1:]...)
				chunks = append(chunks[:k], chunks[k+1:]...)
			}
		}
	}

	negate := len(chunks[0]) > 0 && chunks[0][0] == '!'
	if negate {
		chunks[0] = chunks[0][1:]
	}
	parts := make([]string, len(chunks))
	for idx, chunk := range chunks {
		var b strings.Builder
		for _, r := range chunk {
			if strings.ContainsRune(`\[]^-`, r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		parts[idx] = b.String()
	}
	body := strings.Join(parts, "-")

	switch {
	case negate && body == "":
		return "(?s:.)"
	case negate:
		return "[^" + body + "]"
	case body == "":
		return matchNothing
	}
	return "[" + body + "]"
}

func containsRune(rs []rune, r rune) bool {
	return indexRuneFrom(rs, r, 0) >= 0
}

func indexRuneFrom(rs []rune, r rune, from int) int {
	for i := from; i < len(rs); i++ {
		if rs[i] == r {
			return i
		}
	}
	return -1
}
