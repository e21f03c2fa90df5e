package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/lib/pq"
)

const pqUndefinedTable = "42P01"

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUndefinedTable
}

// wrapQueryError adds a migration hint when the table is missing.
func wrapQueryError(op string, err error) error {
	if isUndefinedTable(err) {
		return fmt.Errorf("%s: %w (run cmd/migration up)", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func marshalJSONB(v any) (string, error) {
	raw, err := sonic.MarshalString(v)
	if err != nil {
		return "", fmt.Errorf("marshal jsonb: %w", err)
	}
	return raw, nil
}

func unmarshalJSONB(raw string, target any) error {
	if raw == "" || raw == "null" {
		return nil
	}
	if err := sonic.UnmarshalString(raw, target); err != nil {
		return fmt.Errorf("unmarshal jsonb: %w", err)
	}
	return nil
}
