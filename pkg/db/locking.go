package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockForUpdate applies a SELECT ... FOR UPDATE clause on dialects that
// support row locks. SQLite (used by the test suite) serializes writers at
// the database level, so the clause is omitted there.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() != "postgres" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// LockSkipLocked claims rows with FOR UPDATE SKIP LOCKED so concurrent
// pollers never contend on the same batch.
func LockSkipLocked(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() != "postgres" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
}
