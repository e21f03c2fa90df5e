package postgres

import (
	"database/sql"
	"time"
)

const progressTable = "onboarding_progress"

type progressTableModel struct {
	SessionID    string         `db:"session_id"`
	CurrentStep  string         `db:"current_step"`
	UserProfile  string         `db:"user_profile"`
	UserLocation sql.NullString `db:"user_location"`
	SavedAt      time.Time      `db:"saved_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

type progressUpsertModel struct {
	SessionID    string    `db:"session_id"`
	CurrentStep  string    `db:"current_step"`
	UserProfile  string    `db:"user_profile"`
	UserLocation *string   `db:"user_location"`
	SavedAt      time.Time `db:"saved_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

var progressColumns = []string{"session_id", "current_step", "user_profile", "user_location", "saved_at", "updated_at"}
