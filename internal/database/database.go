// Package database opens the SQL pool shared by the credential and
// recruiting stores and hides the few MySQL/Postgres differences they hit.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Open connects and pings. Callers own the returned pool and must Close it.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// IsPostgres reports whether db speaks the Postgres dialect.
func IsPostgres(db *sqlx.DB) bool {
	switch db.DriverName() {
	case DriverPostgres, "pgx":
		return true
	default:
		return false
	}
}

// DDL picks the CREATE statement matching the pool's dialect.
func DDL(db *sqlx.DB, mysql, postgres string) string {
	if IsPostgres(db) {
		return postgres
	}
	return mysql
}

// InsertID runs an INSERT written with ? placeholders and returns the new
// row id. Postgres has no LastInsertId so the statement gets RETURNING id.
func InsertID(ctx context.Context, db *sqlx.DB, query string, args ...any) (int64, error) {
	if IsPostgres(db) {
		var id int64
		if err := db.QueryRowxContext(ctx, db.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read insert id: %w", err)
	}
	return id, nil
}
