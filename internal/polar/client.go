package polar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skridlevsky/insiders/internal/model"
)

const (
	defaultBaseURL = "https://api.polar.sh"
	pageSize       = 100
)

// Client wraps the Polar API
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Polar API client
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBaseURL points the client at another API host (sandbox, tests)
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// Name identifies the source in logs and errors
func (c *Client) Name() string {
	return "Polar"
}

// doRequest makes an authenticated GET request to the Polar API
func (c *Client) doRequest(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "insiders")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// readAndClose reads the body and closes it. Use in paginated loops
// instead of defer resp.Body.Close() to avoid leaking connections.
func readAndClose(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// readErrorAndClose reads an error body and closes it.
func readErrorAndClose(resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("polar API error %d: %s", resp.StatusCode, string(body))
}

// getPages collects items of a paginated listing until a short page
func getPages[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	var items []T
	for page := 1; ; page++ {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("page", strconv.Itoa(page))

		slog.Debug("Fetching page from Polar", "path", path, "page", page)
		resp, err := c.doRequest(ctx, path, q)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, readErrorAndClose(resp)
		}

		var body struct {
			Items []T `json:"items"`
		}
		if err := readAndClose(resp, &body); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}

		items = append(items, body.Items...)
		if len(body.Items) < pageSize {
			break
		}
	}
	return items, nil
}

// Issue is an issue as listed by Polar
type Issue struct {
	Number         int    `json:"number"`
	Title          string `json:"title"`
	State          string `json:"state"`
	IssueCreatedAt string `json:"issue_created_at"`
	Author         struct {
		Login string `json:"login"`
	} `json:"author"`
	Repository struct {
		Name         string `json:"name"`
		Organization struct {
			Name string `json:"name"`
		} `json:"organization"`
	} `json:"repository"`
	Funding struct {
		PledgesSum *struct {
			Amount int `json:"amount"`
		} `json:"pledges_sum"`
	} `json:"funding"`
}

// GetIssues fetches the open issues Polar tracks for GitHub namespaces.
// Polar only mirrors GitHub issues, so authors are GitHub accounts.
func (c *Client) GetIssues(ctx context.Context, namespaces []string, known []*model.Account, _ []string) (*model.IssueSet, error) {
	issues := model.NewIssueSet()
	if len(namespaces) == 0 {
		return issues, nil
	}

	params := url.Values{}
	for _, ns := range namespaces {
		params.Add("external_organization_name", ns)
	}
	// newest first keeps the order stable across pages
	params.Set("sorting", "-created_at")

	items, err := getPages[Issue](ctx, c, "/v1/issues/", params)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	accounts := model.NewAccounts(known...)
	slog.Debug("Processing issues from Polar", "count", len(items))
	for _, item := range items {
		if item.State != "open" {
			continue
		}
		created, err := time.Parse(time.RFC3339, item.IssueCreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse creation date of issue #%d: %w", item.Number, err)
		}

		pledged := 0
		if item.Funding.PledgesSum != nil {
			pledged = item.Funding.PledgesSum.Amount / 100
		}

		issues.Add(&model.Issue{
			Repository: item.Repository.Organization.Name + "/" + item.Repository.Name,
			Number:     item.Number,
			Title:      item.Title,
			Created:    created,
			Author:     accounts.Resolve(model.PlatformGitHub, strings.TrimSuffix(item.Author.Login, "[bot]")),
			Pledged:    pledged,
			Platform:   model.PlatformPolar,
		})
	}

	return issues, nil
}

// Subscription is a recurring payment to the organization
type Subscription struct {
	Amount            int    `json:"amount"` // cents
	RecurringInterval string `json:"recurring_interval"`
	CreatedAt         string `json:"created_at"`
	User              *struct {
		PublicName string `json:"public_name"`
		AvatarURL  string `json:"avatar_url"`
	} `json:"user"`
	Customer *struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"customer"`
}

// account returns the name identifying the subscriber and whether it may be
// shown publicly. Only the public name is; customer names and emails are
// billing data and keep the sponsorship private.
func (s Subscription) account() (name string, public bool) {
	if s.User != nil && s.User.PublicName != "" {
		return s.User.PublicName, true
	}
	if s.Customer != nil {
		if s.Customer.Name != "" {
			return s.Customer.Name, false
		}
		return s.Customer.Email, false
	}
	return "", false
}

// MonthlyDollars converts the subscription amount to whole dollars per month
func (s Subscription) MonthlyDollars() int {
	dollars := s.Amount / 100
	if s.RecurringInterval == "year" {
		return dollars / 12
	}
	return dollars
}

// GetSponsors fetches active subscriptions as sponsorships on the polar platform
func (c *Client) GetSponsors(ctx context.Context) (*model.Sponsors, error) {
	params := url.Values{}
	params.Set("active", "true")

	items, err := getPages[Subscription](ctx, c, "/v1/subscriptions/", params)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	accounts := model.NewAccounts()
	sponsors := model.NewSponsors()
	for _, item := range items {
		name, public := item.account()
		if name == "" {
			slog.Warn("Skipping anonymous Polar subscription", "created_at", item.CreatedAt)
			continue
		}
		created, err := time.Parse(time.RFC3339, item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse creation date of subscription: %w", err)
		}

		account, ok := accounts.Lookup(model.PlatformPolar, name)
		if !ok {
			account = accounts.Add(&model.Account{Name: name, Platform: model.PlatformPolar})
			if item.User != nil {
				account.Image = item.User.AvatarURL
			}
		}

		sponsorship, err := model.NewSponsorship(account, item.MonthlyDollars(), created, !public)
		if err != nil {
			return nil, fmt.Errorf("failed to read subscription of %s: %w", name, err)
		}
		sponsors.Sponsorships = append(sponsors.Sponsorships, sponsorship)
	}

	slog.Debug("Got sponsorships", "source", c.Name(), "count", sponsors.Len())
	return sponsors, nil
}
