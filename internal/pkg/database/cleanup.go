package database

import (
	"context"
	"time"
)

// Cleanup removes state-history rows older than a week.
func (d *Database) Cleanup(ctx context.Context) error {
	if _, err := d.conn.Exec(ctx, "DELETE FROM thermostat_state WHERE time_stamp < $1", time.Now().AddDate(0, 0, -8)); err != nil {
		return err
	}
	return nil
}
