package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/skridlevsky/insiders/internal/model"
)

const defaultGraphQLEndpoint = "https://api.github.com/graphql"

// GraphQLClient posts queries to the GitHub GraphQL API
type GraphQLClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewGraphQLClient creates a GraphQL client. httpClient carries the
// authentication, see NewHTTPClient.
func NewGraphQLClient(httpClient *http.Client) *GraphQLClient {
	return &GraphQLClient{
		endpoint:   defaultGraphQLEndpoint,
		httpClient: httpClient,
	}
}

// SetEndpoint points the client at another GraphQL endpoint (GHES, tests)
func (c *GraphQLClient) SetEndpoint(endpoint string) {
	c.endpoint = endpoint
}

// GraphQLRequest is the body of a GraphQL POST
type GraphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// GraphQLError is one entry of a response's errors list
type GraphQLError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// GraphQLErrors is returned when a response carries errors. GitHub may
// send partial data alongside them; it is discarded.
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	messages := make([]string, len(e))
	for i, err := range e {
		messages[i] = err.Message
		if err.Type != "" {
			messages[i] = err.Type + ": " + err.Message
		}
	}
	return "graphql: " + strings.Join(messages, "; ")
}

// query runs a GraphQL query and decodes its data into out
func (c *GraphQLClient) query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(GraphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "insiders")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graphql request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("github GraphQL returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	envelope := struct {
		Data   json.RawMessage `json:"data"`
		Errors GraphQLErrors   `json:"errors"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return envelope.Errors
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}

const sponsorshipsQuery = `
query($after: String) {
  viewer {
    sponsorshipsAsMaintainer(first: 100, after: $after, includePrivate: true) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        createdAt
        isOneTimePayment
        privacyLevel
        sponsorEntity {
          __typename
          ... on Organization { login }
          ... on User { login }
        }
        tier {
          monthlyPriceInDollars
        }
      }
    }
  }
}`

type sponsorshipNode struct {
	CreatedAt        time.Time `json:"createdAt"`
	IsOneTimePayment bool      `json:"isOneTimePayment"`
	PrivacyLevel     string    `json:"privacyLevel"`
	SponsorEntity    struct {
		Typename string `json:"__typename"`
		Login    string `json:"login"`
	} `json:"sponsorEntity"`
	Tier struct {
		MonthlyPriceInDollars int `json:"monthlyPriceInDollars"`
	} `json:"tier"`
}

type sponsorshipsData struct {
	Viewer struct {
		SponsorshipsAsMaintainer struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []sponsorshipNode `json:"nodes"`
		} `json:"sponsorshipsAsMaintainer"`
	} `json:"viewer"`
}

// SponsorSource reads the sponsorships of the authenticated maintainer
type SponsorSource struct {
	client *GraphQLClient

	// OrgMembers maps a sponsoring organization to the users it covers
	OrgMembers map[string][]string
	// MinimumAmount is the monthly amount from which members are granted access
	MinimumAmount int
	// ExcludePrivate drops sponsorships whose sponsor chose to stay private
	ExcludePrivate bool
}

// NewSponsorSource creates a sponsor source on top of a GraphQL client
func NewSponsorSource(client *GraphQLClient) *SponsorSource {
	return &SponsorSource{client: client}
}

// Name identifies the source in logs
func (s *SponsorSource) Name() string {
	return "GitHub"
}

// GetSponsors fetches every recurring sponsorship. Members of sponsoring
// organizations become beneficiaries of the organization's sponsorship.
func (s *SponsorSource) GetSponsors(ctx context.Context) (*model.Sponsors, error) {
	accounts := model.NewAccounts()
	sponsors := model.NewSponsors()

	var after interface{}
	for page := 1; ; page++ {
		slog.Debug("Fetching sponsorships from GitHub", "page", page)
		var data sponsorshipsData
		if err := s.client.query(ctx, sponsorshipsQuery, map[string]interface{}{"after": after}, &data); err != nil {
			return nil, fmt.Errorf("failed to fetch sponsorships: %w", err)
		}

		conn := data.Viewer.SponsorshipsAsMaintainer
		for _, node := range conn.Nodes {
			sponsorship, err := s.convert(node, accounts)
			if err != nil {
				return nil, err
			}
			if sponsorship != nil {
				sponsors.Sponsorships = append(sponsors.Sponsorships, sponsorship)
			}
		}

		if !conn.PageInfo.HasNextPage {
			break
		}
		after = conn.PageInfo.EndCursor
	}

	slog.Debug("Got sponsorships", "source", s.Name(), "count", sponsors.Len())
	return sponsors, nil
}

func (s *SponsorSource) convert(node sponsorshipNode, accounts *model.Accounts) (*model.Sponsorship, error) {
	if node.IsOneTimePayment {
		return nil, nil
	}
	private := node.PrivacyLevel == "PRIVATE"
	if private && s.ExcludePrivate {
		return nil, nil
	}

	login := node.SponsorEntity.Login
	isOrg := node.SponsorEntity.Typename == "Organization"
	account, ok := accounts.Lookup(model.PlatformGitHub, login)
	if !ok {
		account = accounts.Add(&model.Account{Name: login, Platform: model.PlatformGitHub, IsOrg: isOrg})
	} else if isOrg {
		// first seen as a member of another sponsoring organization
		account.IsOrg = true
	}

	amount := node.Tier.MonthlyPriceInDollars
	sponsorship, err := model.NewSponsorship(account, amount, node.CreatedAt, private)
	if err != nil {
		return nil, fmt.Errorf("failed to read sponsorship of %s: %w", login, err)
	}

	if isOrg {
		grant := amount >= s.MinimumAmount
		for _, member := range s.OrgMembers[login] {
			user := accounts.Resolve(model.PlatformGitHub, member)
			sponsorship.AddBeneficiary(user, account, &grant)
		}
	}

	return sponsorship, nil
}
