// Package db ships the SQL migrations with the binary.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsRoot is the directory inside Migrations that holds the files.
const MigrationsRoot = "migrations"
