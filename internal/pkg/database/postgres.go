package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Database records published thermostat state in Postgres. It is a telemetry
// sink only; the gateway never reads it back to restore state.
type Database struct {
	conn *pgx.Conn
}

func NewDatabase(conn *pgx.Conn) *Database {
	return &Database{
		conn: conn,
	}
}

func (d *Database) Close(ctx context.Context) error {
	return d.conn.Close(ctx)
}
