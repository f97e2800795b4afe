package model

import (
	"errors"
	"testing"
	"time"
)

func boolPtr(b bool) *bool { return &b }

func TestNewSponsorship_Malformed(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name    string
		account *Account
		amount  int
	}{
		{"nil account", nil, 10},
		{"empty name", &Account{Platform: PlatformGitHub}, 10},
		{"unknown platform", &Account{Name: "x", Platform: "patreon"}, 10},
		{"negative amount", &Account{Name: "x", Platform: PlatformGitHub}, -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSponsorship(tc.account, tc.amount, now, false)
			if !errors.Is(err, ErrMalformedSponsorship) {
				t.Errorf("Expected ErrMalformedSponsorship, got %v", err)
			}
		})
	}
}

func TestSponsors_MergeKeepsDuplicates(t *testing.T) {
	gh := &Account{Name: "carol", Platform: PlatformGitHub}
	s1 := mustSponsorship(t, gh, 10)
	s2 := mustSponsorship(t, gh, 20)

	github := NewSponsors(s1)
	polar := NewSponsors(s2)

	merged := github.Merge(polar)
	if merged != github {
		t.Error("Expected Merge to return the receiver")
	}
	if merged.Len() != 2 {
		t.Errorf("Len = %d, want 2 (no dedup at merge time)", merged.Len())
	}
	if got := len(merged.Accounts()); got != 1 {
		t.Errorf("Accounts = %d, want 1 (set semantics)", got)
	}
	if got := merged.Total(); got != 30 {
		t.Errorf("Total = %d, want 30", got)
	}

	merged.Merge(nil)
	if merged.Len() != 2 {
		t.Error("Merging nil should be a no-op")
	}
}

func TestSponsors_MergeOrderDoesNotAffectMembership(t *testing.T) {
	a := &Account{Name: "a", Platform: PlatformGitHub}
	b := &Account{Name: "b", Platform: PlatformPolar}
	sa := mustSponsorship(t, a, 5)
	sb := mustSponsorship(t, b, 7)

	ab := NewSponsors(sa).Merge(NewSponsors(sb))
	ba := NewSponsors(sb).Merge(NewSponsors(sa))

	members := func(s *Sponsors) map[AccountKey]bool {
		out := map[AccountKey]bool{}
		for _, acc := range s.Accounts() {
			out[acc.Key()] = true
		}
		return out
	}
	m1, m2 := members(ab), members(ba)
	if len(m1) != len(m2) {
		t.Fatalf("Membership differs: %v vs %v", m1, m2)
	}
	for k := range m1 {
		if !m2[k] {
			t.Errorf("Missing %v after reversed merge", k)
		}
	}
}

func TestSponsors_BeneficiaryGrantIsSticky(t *testing.T) {
	orgA := &Account{Name: "org-a", Platform: PlatformGitHub, IsOrg: true}
	orgB := &Account{Name: "org-b", Platform: PlatformGitHub, IsOrg: true}
	orgC := &Account{Name: "org-c", Platform: PlatformGitHub, IsOrg: true}
	dave := &Account{Name: "dave", Platform: PlatformGitHub}

	sA := mustSponsorship(t, orgA, 10)
	sB := mustSponsorship(t, orgB, 500)
	sC := mustSponsorship(t, orgC, 20)
	sA.AddBeneficiary(dave, orgA, nil)
	sB.AddBeneficiary(dave, orgB, boolPtr(true))
	sC.AddBeneficiary(dave, orgC, boolPtr(false))

	beneficiaries := NewSponsors(sA, sB, sC).Beneficiaries()
	got, ok := beneficiaries["dave"]
	if !ok {
		t.Fatal("Expected dave to be a beneficiary")
	}
	if got.Org != orgB || !got.Granted() {
		t.Errorf("Expected granted beneficiary from org-b, got org=%s grant=%v", got.Org.Name, got.Grant)
	}

	// Without any grant, the first mention wins.
	eve := &Account{Name: "eve", Platform: PlatformGitHub}
	sA.AddBeneficiary(eve, orgA, nil)
	sC.AddBeneficiary(eve, orgC, boolPtr(false))
	if b := NewSponsors(sA, sC).Beneficiaries()["eve"]; b.Org != orgA {
		t.Errorf("Expected first mention to win, got %s", b.Org.Name)
	}
}

func TestSponsors_GranteesAndPublic(t *testing.T) {
	org := &Account{Name: "acme", Platform: PlatformGitHub, IsOrg: true}
	member := &Account{Name: "frank", Platform: PlatformGitHub}
	private := &Account{Name: "secret", Platform: PlatformGitHub}

	s := mustSponsorship(t, org, 100)
	s.AddBeneficiary(member, org, boolPtr(true))
	hidden, err := NewSponsorship(private, 5, time.Now(), true)
	if err != nil {
		t.Fatal(err)
	}

	sponsors := NewSponsors(s, hidden)
	grantees := sponsors.Grantees()
	if len(grantees) != 3 {
		t.Fatalf("Grantees = %d, want 3", len(grantees))
	}
	if grantees[0] != org || grantees[1] != member || grantees[2] != private {
		t.Errorf("Unexpected grantee order: %s, %s, %s", grantees[0].Name, grantees[1].Name, grantees[2].Name)
	}

	public := sponsors.Public()
	if public.Len() != 1 || public.Sponsorships[0] != s {
		t.Errorf("Expected only the public sponsorship, got %d entries", public.Len())
	}
}

func TestSponsorship_AddBeneficiaryAttachesOnce(t *testing.T) {
	org := &Account{Name: "acme", Platform: PlatformGitHub, IsOrg: true}
	s := mustSponsorship(t, org, 40)
	s.AddBeneficiary(org, org, nil)

	if got := len(org.Sponsorships()); got != 1 {
		t.Errorf("Expected sponsorship attached once, got %d", got)
	}
	if got := len(s.Beneficiaries()); got != 1 {
		t.Errorf("Beneficiaries = %d, want 1", got)
	}
}
