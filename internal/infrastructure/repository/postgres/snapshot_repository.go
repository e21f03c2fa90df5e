package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/granada-os/personalization/internal/domain/location"
	qb "github.com/granada-os/personalization/internal/platform/querybuilder"
)

type SnapshotRepository struct {
	db *sqlx.DB
}

func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) GetSnapshot(ctx context.Context, clientKey string) (location.Snapshot, bool, error) {
	query, args, err := qb.Select(snapshotColumns...).
		From(snapshotTable).
		Where(qb.Eq("client_key", clientKey)).
		Limit(1).
		ToSQL()
	if err != nil {
		return location.Snapshot{}, false, fmt.Errorf("build get location snapshot query: %w", err)
	}

	var row snapshotTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return location.Snapshot{}, false, nil
		}
		return location.Snapshot{}, false, wrapQueryError("get location snapshot", err)
	}

	snap := location.Snapshot{ClientKey: row.ClientKey, StoredAt: row.StoredAt}
	if err := unmarshalJSONB(row.Guess, &snap.Guess); err != nil {
		return location.Snapshot{}, false, fmt.Errorf("decode location snapshot: %w", err)
	}
	return snap, true, nil
}

func (r *SnapshotRepository) PutSnapshot(ctx context.Context, snapshot location.Snapshot) error {
	guess, err := marshalJSONB(snapshot.Guess)
	if err != nil {
		return fmt.Errorf("encode location snapshot: %w", err)
	}

	query, args, err := qb.UpsertModel(snapshotTable, snapshotTableModel{
		ClientKey: snapshot.ClientKey,
		Guess:     guess,
		StoredAt:  snapshot.StoredAt.UTC(),
	}, "client_key")
	if err != nil {
		return fmt.Errorf("build upsert location snapshot query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapQueryError("upsert location snapshot", err)
	}
	return nil
}
