package backlog

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Descriptor documents a strategy of the catalog
type Descriptor struct {
	Name           string   `json:"name"`
	Params         []string `json:"params,omitempty"`
	DefaultReverse bool     `json:"defaultReverse"`
	Description    string   `json:"description"`
}

// params holds the parsed, typed arguments of a strategy call
type params struct {
	amount int
	name   string
}

type entry struct {
	Descriptor
	build func(p params, reverse bool) Strategy
}

var catalog = map[string]entry{}

func register(d Descriptor, build func(p params, reverse bool) Strategy) {
	catalog[normalizeName(d.Name)] = entry{Descriptor: d, build: build}
}

func init() {
	register(Descriptor{Name: "authorSponsorships", DefaultReverse: true,
		Description: "Sum of the author's sponsorships"},
		func(_ params, r bool) Strategy { return AuthorSponsorships(r) })
	register(Descriptor{Name: "minAuthorSponsorships", Params: []string{"amount"}, DefaultReverse: true,
		Description: "Author's sponsorships, 0 below amount"},
		func(p params, r bool) Strategy { return MinAuthorSponsorships(p.amount, r) })
	register(Descriptor{Name: "upvotersSponsorships", DefaultReverse: true,
		Description: "Sum of the upvoters' sponsorships"},
		func(_ params, r bool) Strategy { return UpvotersSponsorships(r) })
	register(Descriptor{Name: "minUpvotersSponsorships", Params: []string{"amount"}, DefaultReverse: true,
		Description: "Upvoters' sponsorships, 0 below amount"},
		func(p params, r bool) Strategy { return MinUpvotersSponsorships(p.amount, r) })
	register(Descriptor{Name: "sponsorships", DefaultReverse: true,
		Description: "Issue funding from the author and upvoters"},
		func(_ params, r bool) Strategy { return Sponsorships(r) })
	register(Descriptor{Name: "minSponsorships", Params: []string{"amount"}, DefaultReverse: true,
		Description: "Issue funding, 0 below amount"},
		func(p params, r bool) Strategy { return MinSponsorships(p.amount, r) })
	register(Descriptor{Name: "pledge", DefaultReverse: true,
		Description: "Amount pledged on the issue"},
		func(_ params, r bool) Strategy { return Pledge(r) })
	register(Descriptor{Name: "minPledge", Params: []string{"amount"}, DefaultReverse: true,
		Description: "Amount pledged, 0 below amount"},
		func(p params, r bool) Strategy { return MinPledge(p.amount, r) })
	register(Descriptor{Name: "upvotes", DefaultReverse: true,
		Description: "Number of upvoters"},
		func(_ params, r bool) Strategy { return Upvotes(r) })
	register(Descriptor{Name: "minUpvotes", Params: []string{"amount"}, DefaultReverse: true,
		Description: "Number of upvoters, 0 below amount"},
		func(p params, r bool) Strategy { return MinUpvotes(p.amount, r) })
	register(Descriptor{Name: "created", DefaultReverse: false,
		Description: "Creation time, oldest first"},
		func(_ params, r bool) Strategy { return Created(r) })
	register(Descriptor{Name: "label", Params: []string{"name"}, DefaultReverse: true,
		Description: "Issues with the label first"},
		func(p params, r bool) Strategy { return Label(p.name, r) })
	register(Descriptor{Name: "repository", Params: []string{"name"}, DefaultReverse: true,
		Description: "Issues of repositories matching the glob first"},
		func(p params, r bool) Strategy { return Repository(p.name, r) })
}

// Catalog lists the available strategies sorted by name
func Catalog() []Descriptor {
	out := make([]Descriptor, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, e.Descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// normalizeName makes "min_pledge", "minPledge" and "min-pledge" equivalent
func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", "")
	return strings.ReplaceAll(name, "-", "")
}

// Build turns a parsed call into a strategy
func Build(call Call) (Strategy, error) {
	e, ok := catalog[normalizeName(call.Name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, call.Name)
	}

	if len(call.Args) > len(e.Params) {
		return nil, fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrInvalidStrategy, e.Name, len(e.Params), len(call.Args))
	}

	values := make(map[string]string, len(e.Params))
	for i, arg := range call.Args {
		values[e.Params[i]] = arg
	}

	reverse := e.DefaultReverse
	for key, value := range call.Kwargs {
		if key == "reverse" {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: reverse must be a boolean, got %q", ErrInvalidStrategy, e.Name, value)
			}
			reverse = b
			continue
		}
		if !slices.Contains(e.Params, key) {
			return nil, fmt.Errorf("%w: %s has no parameter %q", ErrInvalidStrategy, e.Name, key)
		}
		if _, dup := values[key]; dup {
			return nil, fmt.Errorf("%w: %s: %s given twice", ErrInvalidStrategy, e.Name, key)
		}
		values[key] = value
	}

	var p params
	for _, name := range e.Params {
		value, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s requires %s", ErrInvalidStrategy, e.Name, name)
		}
		switch name {
		case "amount":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: amount must be an integer, got %q", ErrInvalidStrategy, e.Name, value)
			}
			p.amount = n
		case "name":
			p.name = value
		}
	}

	return e.build(p, reverse), nil
}

// Resolve parses and builds every expression. Each expression may itself
// hold several comma-separated calls. Unknown names fail before any
// issue is fetched.
func Resolve(exprs []string) ([]Strategy, error) {
	var strategies []Strategy
	for _, expr := range exprs {
		for _, part := range SplitExpressions(expr) {
			call, err := ParseCall(part)
			if err != nil {
				return nil, err
			}
			strategy, err := Build(call)
			if err != nil {
				return nil, err
			}
			strategies = append(strategies, strategy)
		}
	}
	return strategies, nil
}
