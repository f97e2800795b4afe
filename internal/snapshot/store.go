package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("snapshot not found")

// Store persists snapshots in Postgres
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new snapshot store
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var entryColumns = []string{
	"snapshot_id", "rank", "repository", "number", "title", "author",
	"platform", "created_at", "funding", "pledged", "upvotes", "labels",
}

// Save inserts the snapshot header and bulk-copies its entries in one transaction
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO backlog_snapshots (id, taken_at, sort, namespaces, issue_count, sponsor_count, sponsor_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, snap.ID, snap.TakenAt, snap.Sort, snap.Namespaces, snap.IssueCount, snap.SponsorCount, snap.SponsorTotal)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}

		rows := make([][]any, 0, len(snap.Entries))
		for _, e := range snap.Entries {
			labels := e.Labels
			if labels == nil {
				labels = []string{}
			}
			rows = append(rows, []any{
				snap.ID, e.Rank, e.Repository, e.Number, e.Title, e.Author,
				e.Platform, e.CreatedAt, e.Funding, e.Pledged, e.Upvotes, labels,
			})
		}

		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"backlog_snapshot_entries"}, entryColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to copy snapshot entries: %w", err)
		}
		return nil
	})
}

const snapshotColumns = `id, taken_at, sort, namespaces, issue_count, sponsor_count, sponsor_total`

func scanSnapshot(row pgx.Row) (*Snapshot, error) {
	snap := &Snapshot{}
	err := row.Scan(&snap.ID, &snap.TakenAt, &snap.Sort, &snap.Namespaces,
		&snap.IssueCount, &snap.SponsorCount, &snap.SponsorTotal)
	return snap, err
}

// List returns the most recent snapshots without their entries
func (s *Store) List(ctx context.Context, limit int) ([]*Snapshot, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `SELECT `+snapshotColumns+` FROM backlog_snapshots ORDER BY taken_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []*Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snapshots, nil
}

// Get returns a snapshot with its entries in rank order
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	snap, err := scanSnapshot(s.pool.QueryRow(ctx, `SELECT `+snapshotColumns+` FROM backlog_snapshots WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT rank, repository, number, title, author, platform, created_at, funding, pledged, upvotes, labels
		FROM backlog_snapshot_entries
		WHERE snapshot_id = $1
		ORDER BY rank
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot entries: %w", err)
	}

	snap.Entries, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.Rank, &e.Repository, &e.Number, &e.Title, &e.Author, &e.Platform,
			&e.CreatedAt, &e.Funding, &e.Pledged, &e.Upvotes, &e.Labels)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot entries: %w", err)
	}
	return snap, nil
}
