package postgres

import "time"

const snapshotTable = "location_snapshots"

type snapshotTableModel struct {
	ClientKey string    `db:"client_key"`
	Guess     string    `db:"guess"`
	StoredAt  time.Time `db:"stored_at"`
}

var snapshotColumns = []string{"client_key", "guess", "stored_at"}
