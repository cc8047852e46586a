package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/domain"
)

// SnapshotStore invokes the destination's stored procedures. All parameters
// are bound positionally; nothing is ever interpolated into SQL text.
type SnapshotStore struct {
	db *pgxpool.Pool
}

func NewSnapshotStore(ctx context.Context, connStr string) (*SnapshotStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *SnapshotStore) Close() {
	s.db.Close()
}

// Truncate clears the destination table ahead of a fresh snapshot. The
// procedure returns 0 on success.
func (s *SnapshotStore) Truncate(ctx context.Context) error {
	var rc int
	err := s.db.QueryRow(ctx,
		`SELECT Testing.TruncateOutstandingFollowUpSnapshot()`,
	).Scan(&rc)
	if err != nil {
		return fmt.Errorf("%w: truncate snapshot: %v", domain.ErrPersistence, err)
	}
	if rc != 0 {
		return fmt.Errorf("%w: truncate snapshot returned %d", domain.ErrPersistence, rc)
	}
	return nil
}

// Insert writes one record with the batch timestamp. The procedure looks up
// the location's Lcode server-side and returns it alongside the generated
// identity; a nil Lcode means the mapping tables had no match, which is not
// an error.
func (s *SnapshotStore) Insert(ctx context.Context, dtSnapshot time.Time, rec domain.FollowUpRecord) (domain.InsertResult, error) {
	var res domain.InsertResult
	err := s.db.QueryRow(ctx,
		`SELECT inserted_id, lcode FROM Testing.GetOutstandingCPFollowUps($1, $2, $3, $4)`,
		dtSnapshot, rec.LocationName, rec.UnprocessedFollowUps, rec.UnprocessedCalls,
	).Scan(&res.InsertedID, &res.Lcode)
	if err != nil {
		return domain.InsertResult{}, fmt.Errorf("%w: insert %q at %s: %v",
			domain.ErrPersistence, rec.LocationName, dtSnapshot.Format(time.RFC3339), err)
	}
	return res, nil
}

// DeleteTestRecords removes rows matching a location name and reports how
// many went away. Used to clean up after integration exercises.
func (s *SnapshotStore) DeleteTestRecords(ctx context.Context, locationName string) (int64, error) {
	var removed int64
	err := s.db.QueryRow(ctx,
		`SELECT Testing.DeleteTestFollowUpRecords($1)`,
		locationName,
	).Scan(&removed)
	if err != nil {
		return 0, fmt.Errorf("%w: delete test records for %q: %v", domain.ErrPersistence, locationName, err)
	}
	return removed, nil
}
