package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/granada-os/personalization/internal/domain/onboarding"
	qb "github.com/granada-os/personalization/internal/platform/querybuilder"
)

// ProgressRepository mirrors the progress cookie server-side. Passwords are never part of the payload.
type ProgressRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db, now: time.Now}
}

func (r *ProgressRepository) GetProgress(ctx context.Context, sessionID string) (onboarding.Progress, bool, error) {
	query, args, err := qb.Select(progressColumns...).
		From(progressTable).
		Where(qb.Eq("session_id", strings.TrimSpace(sessionID))).
		Limit(1).
		ToSQL()
	if err != nil {
		return onboarding.Progress{}, false, fmt.Errorf("build get onboarding progress query: %w", err)
	}

	var row progressTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return onboarding.Progress{}, false, nil
		}
		return onboarding.Progress{}, false, wrapQueryError("get onboarding progress", err)
	}

	progress, err := progressFromRow(row)
	if err != nil {
		return onboarding.Progress{}, false, err
	}
	return progress, true, nil
}

func (r *ProgressRepository) UpsertProgress(ctx context.Context, sessionID string, progress onboarding.Progress) error {
	model, err := progressToModel(strings.TrimSpace(sessionID), progress, r.now().UTC())
	if err != nil {
		return err
	}

	query, args, err := qb.UpsertModel(progressTable, model, "session_id")
	if err != nil {
		return fmt.Errorf("build upsert onboarding progress query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapQueryError("upsert onboarding progress", err)
	}
	return nil
}

func (r *ProgressRepository) DeleteProgress(ctx context.Context, sessionID string) error {
	query, args, err := qb.DeleteFrom(progressTable).
		Where(qb.Eq("session_id", strings.TrimSpace(sessionID))).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete onboarding progress query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapQueryError("delete onboarding progress", err)
	}
	return nil
}

func progressToModel(sessionID string, p onboarding.Progress, now time.Time) (progressUpsertModel, error) {
	profile, err := marshalJSONB(p.UserProfile)
	if err != nil {
		return progressUpsertModel{}, fmt.Errorf("encode onboarding progress profile: %w", err)
	}

	var loc *string
	if p.UserLocation != nil {
		raw, err := marshalJSONB(p.UserLocation)
		if err != nil {
			return progressUpsertModel{}, fmt.Errorf("encode onboarding progress location: %w", err)
		}
		loc = &raw
	}

	return progressUpsertModel{
		SessionID:    sessionID,
		CurrentStep:  p.CurrentStep,
		UserProfile:  profile,
		UserLocation: loc,
		SavedAt:      p.SavedAt().UTC(),
		UpdatedAt:    now,
	}, nil
}

func progressFromRow(row progressTableModel) (onboarding.Progress, error) {
	out := onboarding.Progress{
		CurrentStep: row.CurrentStep,
		Timestamp:   row.SavedAt.UnixMilli(),
	}
	if err := unmarshalJSONB(row.UserProfile, &out.UserProfile); err != nil {
		return onboarding.Progress{}, fmt.Errorf("decode onboarding progress profile: %w", err)
	}
	if row.UserLocation.Valid {
		var loc onboarding.ProgressLocation
		if err := unmarshalJSONB(row.UserLocation.String, &loc); err != nil {
			return onboarding.Progress{}, fmt.Errorf("decode onboarding progress location: %w", err)
		}
		out.UserLocation = &loc
	}
	return out, nil
}
