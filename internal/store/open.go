package store

import (
	"context"
	"fmt"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options selects and configures a storage backend.
type Options struct {
	// Driver is "postgres" (default) or "sqlite".
	Driver string
	// Path is the SQLite database file, used only with the sqlite driver.
	Path string
	// Postgres carries the server connection parameters.
	Postgres PostgresConfig
}

// Open connects the configured storage backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverSQLite:
		return NewSQLiteStore(opts.Path)
	case DriverPostgres, "":
		return NewPostgresStore(ctx, opts.Postgres)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
