package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestIsUndefinedTable(t *testing.T) {
	t.Run("matches wrapped pq error", func(t *testing.T) {
		err := fmt.Errorf("query: %w", &pq.Error{Code: pqUndefinedTable, Message: `relation "onboarding_progress" does not exist`})
		if !isUndefinedTable(err) {
			t.Fatalf("expected true for undefined table error")
		}
	})

	t.Run("ignores other pq codes", func(t *testing.T) {
		if isUndefinedTable(&pq.Error{Code: "23505"}) {
			t.Fatalf("expected false for unique violation")
		}
	})

	t.Run("ignores plain errors", func(t *testing.T) {
		if isUndefinedTable(errors.New("pq: relation does not exist")) {
			t.Fatalf("expected false for non pq error")
		}
	})
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(fmt.Errorf("get: %w", sql.ErrNoRows)) {
		t.Fatalf("expected wrapped sql.ErrNoRows to be not found")
	}
	if isNotFound(errors.New("boom")) {
		t.Fatalf("expected unrelated error to be found")
	}
}

func TestUnmarshalJSONB_IgnoresNull(t *testing.T) {
	target := map[string]string{"keep": "me"}
	for _, raw := range []string{"", "null"} {
		if err := unmarshalJSONB(raw, &target); err != nil {
			t.Fatalf("unmarshal %q: %v", raw, err)
		}
	}
	if target["keep"] != "me" {
		t.Fatalf("target should be untouched, got %v", target)
	}
	if err := unmarshalJSONB("{", &target); err == nil {
		t.Fatalf("expected error for malformed jsonb")
	}
}
