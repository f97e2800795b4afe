package model

import (
	"fmt"
	"time"
)

// Beneficiary is a named recipient of shared sponsorship credit, for
// example a member of a sponsoring organization
type Beneficiary struct {
	User *Account `json:"user"`
	Org  *Account `json:"org,omitempty"`
	// Grant is an explicit access grant, independent of voting weight.
	// nil means the sponsorship did not say.
	Grant *bool `json:"grant,omitempty"`
}

// Granted reports whether access was explicitly granted
func (b *Beneficiary) Granted() bool {
	return b.Grant != nil && *b.Grant
}

// Sponsorship is a recurring funding relationship from one account
type Sponsorship struct {
	Account *Account  `json:"account"`
	Amount  int       `json:"amount"` // currency units per month
	Created time.Time `json:"created"`
	Private bool      `json:"private"`

	beneficiaries map[string]*Beneficiary
	names         []string
}

// NewSponsorship validates a sponsorship record and attaches it to the
// sponsor's account
func NewSponsorship(account *Account, amount int, created time.Time, private bool) (*Sponsorship, error) {
	if account == nil {
		return nil, fmt.Errorf("%w: missing account", ErrMalformedSponsorship)
	}
	if account.Name == "" {
		return nil, fmt.Errorf("%w: account has no name", ErrMalformedSponsorship)
	}
	if !account.Platform.Valid() {
		return nil, fmt.Errorf("%w: account %s has unknown platform %q", ErrMalformedSponsorship, account.Name, account.Platform)
	}
	if amount < 0 {
		return nil, fmt.Errorf("%w: negative amount %d for %s", ErrMalformedSponsorship, amount, account.Name)
	}

	s := &Sponsorship{
		Account:       account,
		Amount:        amount,
		Created:       created,
		Private:       private,
		beneficiaries: make(map[string]*Beneficiary),
	}
	account.attach(s)
	return s, nil
}

// Key returns the identity of the sponsorship, which is its sponsor's identity
func (s *Sponsorship) Key() AccountKey {
	return s.Account.Key()
}

// AddBeneficiary shares the sponsorship with user. The user's account gets
// the sponsorship attached so it counts towards their tier sum.
func (s *Sponsorship) AddBeneficiary(user, org *Account, grant *bool) *Beneficiary {
	b := &Beneficiary{User: user, Org: org, Grant: grant}
	if _, exists := s.beneficiaries[user.Name]; !exists {
		s.names = append(s.names, user.Name)
	}
	s.beneficiaries[user.Name] = b
	user.attach(s)
	return b
}

// Beneficiaries returns a copy of the beneficiary map
func (s *Sponsorship) Beneficiaries() map[string]*Beneficiary {
	out := make(map[string]*Beneficiary, len(s.beneficiaries))
	for name, b := range s.beneficiaries {
		out[name] = b
	}
	return out
}

// Sponsors aggregates sponsorships from one or more platforms
type Sponsors struct {
	Sponsorships []*Sponsorship
}

// NewSponsors wraps a list of sponsorships
func NewSponsors(sponsorships ...*Sponsorship) *Sponsors {
	return &Sponsors{Sponsorships: sponsorships}
}

// Merge appends other's sponsorships into s and returns s.
// Entries are never deduplicated: two platforms reporting the same sponsor
// keep two entries, even though Accounts collapses them.
func (s *Sponsors) Merge(other *Sponsors) *Sponsors {
	if other == nil {
		return s
	}
	s.Sponsorships = append(s.Sponsorships, other.Sponsorships...)
	return s
}

// Len returns the number of sponsorship entries
func (s *Sponsors) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Sponsorships)
}

// Accounts returns the unique sponsor accounts, in first-seen order
func (s *Sponsors) Accounts() []*Account {
	if s == nil {
		return nil
	}
	seen := make(map[AccountKey]bool)
	var out []*Account
	for _, sp := range s.Sponsorships {
		if seen[sp.Key()] {
			continue
		}
		seen[sp.Key()] = true
		out = append(out, sp.Account)
	}
	return out
}

// Beneficiaries merges every sponsorship's beneficiaries.
// When two sponsorships name the same beneficiary, a granted one wins.
func (s *Sponsors) Beneficiaries() map[string]*Beneficiary {
	out := make(map[string]*Beneficiary)
	if s == nil {
		return out
	}
	for _, sp := range s.Sponsorships {
		for _, name := range sp.names {
			b := sp.beneficiaries[name]
			if _, exists := out[name]; !exists || b.Granted() {
				out[name] = b
			}
		}
	}
	return out
}

// Grantees returns every account with a stake in the sponsorships:
// sponsors themselves and all beneficiary users, deduplicated
func (s *Sponsors) Grantees() []*Account {
	if s == nil {
		return nil
	}
	seen := make(map[AccountKey]bool)
	var out []*Account
	add := func(a *Account) {
		if a == nil || seen[a.Key()] {
			return
		}
		seen[a.Key()] = true
		out = append(out, a)
	}
	for _, sp := range s.Sponsorships {
		add(sp.Account)
		for _, name := range sp.names {
			add(sp.beneficiaries[name].User)
		}
	}
	return out
}

// Public returns a new collection without private sponsorships.
// Accounts keep their back-references, so funding still counts private
// sponsorships; sources drop them at fetch time when that matters.
func (s *Sponsors) Public() *Sponsors {
	out := &Sponsors{}
	if s == nil {
		return out
	}
	for _, sp := range s.Sponsorships {
		if !sp.Private {
			out.Sponsorships = append(out.Sponsorships, sp)
		}
	}
	return out
}

// Total sums the amount of every entry
func (s *Sponsors) Total() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, sp := range s.Sponsorships {
		total += sp.Amount
	}
	return total
}
