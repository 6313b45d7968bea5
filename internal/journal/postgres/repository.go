package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/Sh00ty/network-lb/eip-failover-node/internal/models"
	"github.com/Sh00ty/network-lb/eip-failover-node/internal/pgerror"
)

const (
	journalTable = "failover_journal"
	// unique on (snapshot_version, eip, kind): replayed decisions after
	// a resync dedupe at the database instead of at the engine.
	dedupeConstraint = "failover_journal_dedupe"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepo(ctx context.Context, user, password, addr string, port uint16) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(
		fmt.Sprintf(
			"user=%s password=%s host=%s port=%d dbname=postgres sslmode=disable pool_max_conns=5",
			user, password, addr, port,
		),
	)
	if cfg == nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	err = pool.Ping(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &Repository{
		db: pool,
	}, nil
}

// AppendDecisions writes the events in order and returns how many of
// the leading events are settled (written or deduped), so the caller
// can keep an unsent tail on partial failure.
func (r *Repository) AppendDecisions(ctx context.Context, events []models.DecisionEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, event := range events {
		sql, args, err := squirrel.
			Insert(journalTable).
			Columns("occurred_at", "snapshot_version", "eip", "kind", "instance", "detail").
			Values(event.At, event.SnapshotVersion, event.EIP.String(), event.Kind.String(), event.Instance.String(), event.Detail).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("failed to build journal insert: %w", err)
		}
		batch.Queue(sql, args...)
	}

	bResult := r.db.SendBatch(ctx, batch)
	defer bResult.Close()

	done := 0
	for _, event := range events {
		_, err := bResult.Exec()
		if err != nil {
			if pgerror.IsUniqueViolation(err, dedupeConstraint) {
				log.Debug().Msgf(
					"journal already has %s of %s at snapshot %d",
					event.Kind, event.EIP, event.SnapshotVersion,
				)
				done++
				continue
			}
			return done, fmt.Errorf("failed to append journal event: %w", err)
		}
		done++
	}
	return done, nil
}

// RecentDecisions returns the latest journal entries, newest first.
func (r *Repository) RecentDecisions(ctx context.Context, limit uint64) ([]models.DecisionEvent, error) {
	sql, args, err := squirrel.
		Select("occurred_at", "snapshot_version", "eip", "kind", "instance", "detail").
		From(journalTable).
		OrderBy("occurred_at desc").
		Limit(limit).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build journal select: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var events []models.DecisionEvent
	for rows.Next() {
		var (
			occurredAt time.Time
			version    uint64
			eip        string
			kind       string
			instance   string
			detail     string
		)
		if err := rows.Scan(&occurredAt, &version, &eip, &kind, &instance, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		events = append(events, models.DecisionEvent{
			Kind:            decisionKindFromString(kind),
			EIP:             models.EIPID(eip),
			Instance:        models.NodeID(instance),
			Detail:          detail,
			SnapshotVersion: version,
			At:              occurredAt,
		})
	}
	return events, rows.Err()
}

func decisionKindFromString(kind string) models.DecisionKind {
	for k := models.DecisionAcquire; k <= models.DecisionActuationFailed; k++ {
		if k.String() == kind {
			return k
		}
	}
	return models.DecisionUnknown
}
