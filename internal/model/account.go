package model

// AccountKey is the identity of an account: two accounts are the same
// account iff their keys are equal.
type AccountKey struct {
	Platform Platform
	Name     string
}

// Account represents a sponsor or issue-author identity on one platform.
//
// Identity fields are fixed at construction. The sponsorships list is the
// only thing that grows afterwards, and only through NewSponsorship and
// Sponsorship.AddBeneficiary.
type Account struct {
	Name     string   `json:"name"`
	Platform Platform `json:"platform"`
	IsOrg    bool     `json:"isOrg"`
	Image    string   `json:"image,omitempty"`
	URL      string   `json:"url,omitempty"`

	sponsorships []*Sponsorship
}

// Key returns the identity key of the account
func (a *Account) Key() AccountKey {
	return AccountKey{Platform: a.Platform, Name: a.Name}
}

// Equal compares identity only
func (a *Account) Equal(other *Account) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.Key() == other.Key()
}

// IsUser is the inverse of IsOrg
func (a *Account) IsUser() bool {
	return !a.IsOrg
}

// ImageURL returns the explicit image, or the platform avatar template
func (a *Account) ImageURL() string {
	if a.Image != "" {
		return a.Image
	}
	return formatTemplate(imageURLTemplates, a.Platform, a.Name)
}

// ProfileURL returns the explicit URL, or the platform profile template
func (a *Account) ProfileURL() string {
	if a.URL != "" {
		return a.URL
	}
	return formatTemplate(profileURLTemplates, a.Platform, a.Name)
}

// Sponsorships returns the sponsorships attached to the account, either
// created by it or naming it as a beneficiary
func (a *Account) Sponsorships() []*Sponsorship {
	out := make([]*Sponsorship, len(a.sponsorships))
	copy(out, a.sponsorships)
	return out
}

// DirectSponsor reports whether the account created at least one of its
// listed sponsorships, as opposed to only benefiting from someone else's
func (a *Account) DirectSponsor() bool {
	for _, s := range a.sponsorships {
		if s.Account.Key() == a.Key() {
			return true
		}
	}
	return false
}

// HighestTier returns the largest single sponsorship amount (0 if none)
func (a *Account) HighestTier() int {
	highest := 0
	for _, s := range a.sponsorships {
		if s.Amount > highest {
			highest = s.Amount
		}
	}
	return highest
}

// TierSum returns the sum of all sponsorship amounts
func (a *Account) TierSum() int {
	total := 0
	for _, s := range a.sponsorships {
		total += s.Amount
	}
	return total
}

func (a *Account) attach(s *Sponsorship) {
	for _, existing := range a.sponsorships {
		if existing == s {
			return
		}
	}
	a.sponsorships = append(a.sponsorships, s)
}

// Accounts is the lookup table that maps identities to their canonical
// Account for one run. Sources resolve every handle through it so the
// same person is never represented by two objects.
type Accounts struct {
	byKey map[AccountKey]*Account
	order []*Account
}

// NewAccounts creates a registry seeded with already-known accounts
func NewAccounts(seed ...*Account) *Accounts {
	r := &Accounts{byKey: make(map[AccountKey]*Account, len(seed))}
	for _, a := range seed {
		r.Add(a)
	}
	return r
}

// Add registers an account and returns the canonical one.
// The first observation of a key wins.
func (r *Accounts) Add(a *Account) *Account {
	if a == nil {
		return nil
	}
	if existing, ok := r.byKey[a.Key()]; ok {
		return existing
	}
	r.byKey[a.Key()] = a
	r.order = append(r.order, a)
	return a
}

// Resolve returns the canonical account for (platform, name), creating a
// bare user account on first sight
func (r *Accounts) Resolve(platform Platform, name string) *Account {
	if a, ok := r.byKey[AccountKey{Platform: platform, Name: name}]; ok {
		return a
	}
	return r.Add(&Account{Name: name, Platform: platform})
}

// Lookup returns the account for (platform, name) if it was seen
func (r *Accounts) Lookup(platform Platform, name string) (*Account, bool) {
	a, ok := r.byKey[AccountKey{Platform: platform, Name: name}]
	return a, ok
}

// All returns every registered account in registration order
func (r *Accounts) All() []*Account {
	out := make([]*Account, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered accounts
func (r *Accounts) Len() int {
	return len(r.order)
}
