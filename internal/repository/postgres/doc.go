// Package postgres implements every pipeline stage's Repository interface
// against PostgreSQL via database/sql and lib/pq: one file per aggregate,
// raw SQL with $N placeholders, sql.ErrNoRows translated to the owning
// package's sentinel error.
package postgres

import (
	"database/sql"
	"strings"
)

// nullString/stringOrEmpty helpers keep the per-file adapters terse when a
// column is nullable but the domain field is a plain string or *time.Time.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func stringOrEmpty(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

// joinComma renders a comma-separated SET clause list.
func joinComma(parts []string) string {
	return strings.Join(parts, ", ")
}
