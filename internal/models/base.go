package models

import "github.com/google/uuid"

// assignID gives a record a fresh UUID unless the caller already set one.
// IDs are generated in Go so the schema works on both Postgres and SQLite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
