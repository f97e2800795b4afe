package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skridlevsky/insiders/internal/backlog"
	"github.com/skridlevsky/insiders/internal/model"
	"github.com/skridlevsky/insiders/internal/refresh"
	"github.com/skridlevsky/insiders/internal/render"
	"github.com/skridlevsky/insiders/internal/snapshot"
)

const maxLimit = 500

// BacklogProvider exposes the latest ranked backlog; *refresh.Refresher implements it
type BacklogProvider interface {
	Latest() *refresh.Result
	Status() *refresh.Status
}

// SnapshotReader reads persisted snapshots; *snapshot.Store implements it
type SnapshotReader interface {
	List(ctx context.Context, limit int) ([]*snapshot.Snapshot, error)
	Get(ctx context.Context, id uuid.UUID) (*snapshot.Snapshot, error)
}

// BacklogHandler handles backlog, sponsor and snapshot requests
type BacklogHandler struct {
	backlog   BacklogProvider
	snapshots SnapshotReader
}

// NewBacklogHandler creates a new backlog handler
func NewBacklogHandler(provider BacklogProvider, snapshots SnapshotReader) *BacklogHandler {
	return &BacklogHandler{
		backlog:   provider,
		snapshots: snapshots,
	}
}

// IssueView is an issue as served by the API
type IssueView struct {
	Rank       int       `json:"rank"`
	Repository string    `json:"repository"`
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Author     string    `json:"author"`
	AuthorURL  string    `json:"authorUrl"`
	Platform   string    `json:"platform"`
	Created    time.Time `json:"created"`
	Labels     []string  `json:"labels"`
	Funding    int       `json:"funding"`
	Pledged    int       `json:"pledged"`
	Upvotes    int       `json:"upvotes"`
}

// BacklogResponse represents the ranked backlog
type BacklogResponse struct {
	Issues     []IssueView `json:"issues"`
	Sort       []string    `json:"sort"`
	FetchedAt  time.Time   `json:"fetchedAt"`
	TotalCount int         `json:"totalCount"`
}

func (h *BacklogHandler) latest(w http.ResponseWriter) *refresh.Result {
	result := h.backlog.Latest()
	if result == nil {
		w.Header().Set("Retry-After", "30")
		respondError(w, http.StatusServiceUnavailable, "backlog not ready yet")
	}
	return result
}

// List handles GET /api/backlog?sort=&limit=
func (h *BacklogHandler) List(w http.ResponseWriter, r *http.Request) {
	result := h.latest(w)
	if result == nil {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = min(n, maxLimit)
	}

	b := result.Backlog
	sort := result.Sort
	if expr := r.URL.Query().Get("sort"); expr != "" {
		strategies, err := backlog.Resolve([]string{expr})
		if err != nil {
			status := http.StatusBadRequest
			if !errors.Is(err, backlog.ErrUnknownStrategy) && !errors.Is(err, backlog.ErrInvalidStrategy) {
				status = http.StatusInternalServerError
			}
			respondError(w, status, err.Error())
			return
		}
		// the shared backlog stays in its configured order
		b = b.Clone()
		b.Sort(strategies...)
		sort = []string{expr}
	}

	issues := b.Head(limit)
	views := make([]IssueView, 0, len(issues))
	for i, issue := range issues {
		views = append(views, issueView(i+1, issue))
	}

	respondJSON(w, http.StatusOK, BacklogResponse{
		Issues:     views,
		Sort:       sort,
		FetchedAt:  result.FetchedAt,
		TotalCount: b.Len(),
	})
}

func issueView(rank int, issue *model.Issue) IssueView {
	return IssueView{
		Rank:       rank,
		Repository: issue.Repository,
		Number:     issue.Number,
		Title:      issue.Title,
		URL:        render.IssueURL(issue),
		Author:     issue.Author.Name,
		AuthorURL:  issue.Author.ProfileURL(),
		Platform:   string(issue.Platform),
		Created:    issue.Created,
		Labels:     issue.Labels(),
		Funding:    issue.Funding(),
		Pledged:    issue.Pledged,
		Upvotes:    issue.UpvoteCount(),
	}
}

// Strategies handles GET /api/backlog/strategies
func (h *BacklogHandler) Strategies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": backlog.Catalog(),
	})
}

// StatusResponse represents the refresh loop state
type StatusResponse struct {
	Status       string   `json:"status"`
	LastRun      *string  `json:"lastRun,omitempty"`
	LastDuration string   `json:"lastDuration"`
	Runs         int      `json:"runs"`
	Sort         []string `json:"sort"`
	Interval     string   `json:"interval"`
	Issues       int      `json:"issues"`
}

// Status handles GET /api/backlog/status
func (h *BacklogHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.backlog.Status()
	response := StatusResponse{
		Status:       status.Status,
		LastDuration: status.LastDuration.String(),
		Runs:         status.Runs,
		Sort:         status.Sort,
		Interval:     status.Interval.String(),
	}
	if !status.LastRun.IsZero() {
		lastRun := status.LastRun.Format(time.RFC3339)
		response.LastRun = &lastRun
	}
	if result := h.backlog.Latest(); result != nil {
		response.Issues = result.Backlog.Len()
	}
	respondJSON(w, http.StatusOK, response)
}

// SponsorView is a sponsorship as served by the API. Private sponsors are anonymized.
type SponsorView struct {
	Account  string    `json:"account"`
	URL      string    `json:"url,omitempty"`
	Image    string    `json:"image,omitempty"`
	Platform string    `json:"platform"`
	IsOrg    bool      `json:"isOrg"`
	Amount   int       `json:"amount"`
	Private  bool      `json:"private"`
	Created  time.Time `json:"created"`
}

// SponsorsResponse lists sponsorships and their monthly total
type SponsorsResponse struct {
	Sponsors []SponsorView `json:"sponsors"`
	Count    int           `json:"count"`
	Total    int           `json:"total"`
}

// Sponsors handles GET /api/sponsors
func (h *BacklogHandler) Sponsors(w http.ResponseWriter, r *http.Request) {
	result := h.latest(w)
	if result == nil {
		return
	}

	views := make([]SponsorView, 0, result.Sponsors.Len())
	for _, sp := range result.Sponsors.Sponsorships {
		view := SponsorView{
			Platform: string(sp.Account.Platform),
			IsOrg:    sp.Account.IsOrg,
			Amount:   sp.Amount,
			Private:  sp.Private,
			Created:  sp.Created,
		}
		if !sp.Private {
			view.Account = sp.Account.Name
			view.URL = sp.Account.ProfileURL()
			view.Image = sp.Account.ImageURL()
		}
		views = append(views, view)
	}

	respondJSON(w, http.StatusOK, SponsorsResponse{
		Sponsors: views,
		Count:    result.Sponsors.Len(),
		Total:    result.Sponsors.Total(),
	})
}

// ListSnapshots handles GET /api/snapshots?limit=
func (h *BacklogHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	snapshots, err := h.snapshots.List(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
	})
}

// GetSnapshot handles GET /api/snapshots/{id}
func (h *BacklogHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid snapshot id")
		return
	}

	snap, err := h.snapshots.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			respondError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get snapshot")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}
