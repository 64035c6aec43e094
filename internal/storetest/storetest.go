// Package storetest opens throwaway SQLite databases carrying the fincoach
// schema, for repository and service tests.
package storetest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE profiles (
		user_id TEXT PRIMARY KEY,
		first_name TEXT,
		last_name TEXT,
		age INTEGER,
		email TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE credit_data (
		user_id TEXT PRIMARY KEY,
		credit_score INTEGER,
		total_debt REAL,
		late_payments INTEGER DEFAULT 0,
		credit_utilization REAL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE goals (
		id BIGINT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		target_amount REAL,
		target_date DATE,
		priority TEXT NOT NULL DEFAULT 'medium',
		status TEXT NOT NULL DEFAULT 'active',
		notes TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE chat_messages (
		id BIGINT PRIMARY KEY,
		user_id TEXT NOT NULL,
		message TEXT NOT NULL,
		is_user BOOLEAN NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

// Open returns an in-memory database with every table created. A single
// connection is used so all statements see the same memory database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}
