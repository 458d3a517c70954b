// Command waitformysql blocks until the integration database accepts
// connections.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"recruitportal/portal-api/internal/database"
)

const retryInterval = 2 * time.Second

func main() {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_DSN")
	}
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "TEST_MYSQL_DSN or DATABASE_DSN is required")
		os.Exit(2)
	}
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = database.DriverMySQL
	}

	timeout := 60 * time.Second
	if raw := os.Getenv("WAIT_FOR_MYSQL_TIMEOUT_SEC"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			fmt.Fprintf(os.Stderr, "invalid WAIT_FOR_MYSQL_TIMEOUT_SEC: %q\n", raw)
			os.Exit(2)
		}
		timeout = time.Duration(secs) * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	attempts, err := waitReady(ctx, retryInterval, func(ctx context.Context) (io.Closer, error) {
		return database.Open(ctx, driver, dsn)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s not ready within %s after %d attempts: %v\n", driver, timeout, attempts, err)
		os.Exit(1)
	}
	fmt.Printf("%s ready after %d attempts\n", driver, attempts)
}

// waitReady calls open until it succeeds or ctx ends, sleeping interval
// between attempts. The last open error is returned on timeout.
func waitReady(ctx context.Context, interval time.Duration, open func(context.Context) (io.Closer, error)) (int, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, interval)
		db, err := open(attemptCtx)
		cancel()
		if err == nil {
			_ = db.Close()
			return attempt, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return attempt, errors.Join(ctx.Err(), lastErr)
		case <-time.After(interval):
		}
	}
}
