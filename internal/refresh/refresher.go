package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skridlevsky/insiders/internal/backlog"
	"github.com/skridlevsky/insiders/internal/snapshot"
)

// SnapshotSaver persists ranked backlogs
type SnapshotSaver interface {
	Save(ctx context.Context, snap *snapshot.Snapshot) error
}

// Runner produces a ranked backlog; *Pipeline implements it
type Runner interface {
	Run(ctx context.Context, sort []string) (*Result, error)
}

// Refresher keeps the latest ranked backlog in memory, rebuilding it on an interval
type Refresher struct {
	runner     Runner
	sort       []string
	namespaces []string
	interval   time.Duration
	snapshots  SnapshotSaver

	mu     sync.RWMutex
	latest *Result

	// Status tracking for health endpoint
	lastRun      time.Time
	lastDuration time.Duration
	lastStatus   string
	runs         int
	statusMu     sync.RWMutex

	// Lifecycle
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRefresher creates a refresher. snapshots may be nil.
// Returns an error if the sort expressions are invalid or interval is not positive.
func NewRefresher(runner Runner, sort, namespaces []string, interval time.Duration, snapshots SnapshotSaver) (*Refresher, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid refresh interval: %s", interval)
	}
	if _, err := backlog.Resolve(sort); err != nil {
		return nil, err
	}

	return &Refresher{
		runner:     runner,
		sort:       append([]string{}, sort...),
		namespaces: append([]string{}, namespaces...),
		interval:   interval,
		snapshots:  snapshots,
		lastStatus: "pending",
		stopCh:     make(chan struct{}),
	}, nil
}

// Run starts the polling loop
func (r *Refresher) Run(ctx context.Context) {
	slog.Info("Refresher starting", "interval", r.interval, "sort", r.sort)

	r.wg.Add(1)
	go r.poll(ctx)
}

// Stop gracefully shuts down the refresher. Safe to call multiple times.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		slog.Info("Refresher stopping...")
		close(r.stopCh)
		r.wg.Wait()
		slog.Info("Refresher stopped")
	})
}

func (r *Refresher) poll(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Refresh immediately on startup
	_ = r.Refresh(ctx)

	for {
		select {
		case <-ticker.C:
			_ = r.Refresh(ctx)
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Refresh runs one cycle. On failure the previous backlog stays in place.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.statusMu.Lock()
	r.lastRun = time.Now()
	r.lastStatus = "running"
	r.statusMu.Unlock()

	result, err := r.runner.Run(ctx, r.sort)
	if err != nil {
		slog.Error("Failed to refresh backlog", "error", err)
		r.setStatus("error: "+err.Error(), 0)
		return err
	}

	r.mu.Lock()
	r.latest = result
	r.mu.Unlock()

	if r.snapshots != nil {
		snap := snapshot.FromBacklog(result.Backlog.Issues(), snapshot.Meta{
			Sort:       result.Sort,
			Namespaces: r.namespaces,
			Sponsors:   result.Sponsors,
			TakenAt:    result.FetchedAt,
		})
		if err := r.snapshots.Save(ctx, snap); err != nil {
			// the in-memory backlog is still fresh
			slog.Error("Failed to save snapshot", "error", err)
		} else {
			slog.Debug("Snapshot saved", "id", snap.ID, "issues", snap.IssueCount)
		}
	}

	r.setStatus("ok", result.Duration)
	return nil
}

func (r *Refresher) setStatus(status string, duration time.Duration) {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	r.lastStatus = status
	r.lastDuration = duration
	r.runs++
}

// Latest returns the most recent successful result, nil before the first one
func (r *Refresher) Latest() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Status represents the state of the refresh loop
type Status struct {
	LastRun      time.Time
	LastDuration time.Duration
	Status       string
	Runs         int
	Sort         []string
	Interval     time.Duration
}

// Status returns the current status of the refresher
func (r *Refresher) Status() *Status {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()

	return &Status{
		LastRun:      r.lastRun,
		LastDuration: r.lastDuration,
		Status:       r.lastStatus,
		Runs:         r.runs,
		Sort:         append([]string{}, r.sort...),
		Interval:     r.interval,
	}
}
