package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// ScanRecord is one row of the submission ledger: what was submitted, and
// the disposition the engine reached, kept outside the core (spec.md §6.4)
// so the tested C1-C6 pipeline never depends on a database being reachable.
type ScanRecord struct {
	RootUUID    string
	Source      string
	Disposition string
	Reason      string
	ObjectCount int
	SubmittedAt time.Time
}

// Ledger records scan outcomes. Two constructors exist because the pack
// donates both a MySQL and a Postgres driver (bryanwahyu-automaton-sec
// wires both, one per repository implementation) and this demo keeps that
// choice, rather than picking one and dropping the other dependency.
type Ledger struct {
	db     *sql.DB
	driver string
}

// ConnectMySQL opens a MySQL-backed ledger, grounded on
// bryanwahyu-automaton-sec's internal/infra/db/mysql/connect.go pool
// settings.
func ConnectMySQL(ctx context.Context, dsn string) (*Ledger, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("worker: open mysql: %w", err)
	}
	return finishConnect(ctx, db, "mysql")
}

// ConnectPostgres opens a Postgres-backed ledger, the lib/pq counterpart of
// ConnectMySQL.
func ConnectPostgres(ctx context.Context, dsn string) (*Ledger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("worker: open postgres: %w", err)
	}
	return finishConnect(ctx, db, "postgres")
}

func finishConnect(ctx context.Context, db *sql.DB, driver string) (*Ledger, error) {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("worker: ping %s: %w", driver, err)
	}
	return &Ledger{db: db, driver: driver}, nil
}

// EnsureSchema creates the ledger table if it does not already exist. The
// two dialects' AUTO_INCREMENT/SERIAL syntax differ enough that this
// switches on l.driver rather than sharing one statement string.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	var stmt string
	if l.driver == "mysql" {
		stmt = `CREATE TABLE IF NOT EXISTS scan_records (
			id INT AUTO_INCREMENT PRIMARY KEY,
			root_uuid VARCHAR(36) NOT NULL UNIQUE,
			source VARCHAR(255) NOT NULL,
			disposition VARCHAR(64) NOT NULL,
			reason TEXT,
			object_count INT NOT NULL,
			submitted_at DATETIME NOT NULL
		)`
	} else {
		stmt = `CREATE TABLE IF NOT EXISTS scan_records (
			id SERIAL PRIMARY KEY,
			root_uuid VARCHAR(36) NOT NULL UNIQUE,
			source VARCHAR(255) NOT NULL,
			disposition VARCHAR(64) NOT NULL,
			reason TEXT,
			object_count INT NOT NULL,
			submitted_at TIMESTAMP NOT NULL
		)`
	}
	_, err := l.db.ExecContext(ctx, stmt)
	return err
}

func (l *Ledger) Insert(ctx context.Context, rec ScanRecord) error {
	placeholder := "(?, ?, ?, ?, ?, ?)"
	if l.driver == "postgres" {
		placeholder = "($1, $2, $3, $4, $5, $6)"
	}
	query := "INSERT INTO scan_records (root_uuid, source, disposition, reason, object_count, submitted_at) VALUES " + placeholder
	_, err := l.db.ExecContext(ctx, query, rec.RootUUID, rec.Source, rec.Disposition, rec.Reason, rec.ObjectCount, rec.SubmittedAt)
	if err != nil {
		return fmt.Errorf("worker: insert scan record: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error { return l.db.Close() }
