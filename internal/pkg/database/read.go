package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// StateRow is one recorded state-history entry.
type StateRow struct {
	ID                 int64
	TimeStamp          time.Time
	SerialNumber       string
	Mode               string
	TargetTemperature  float64
	CurrentTemperature float64
}

// GetStates returns the recorded history for a serial number between from
// and to, newest first. A nil range defaults to the last two days.
func (d *Database) GetStates(ctx context.Context, serial string, from, to *time.Time) ([]StateRow, error) {
	if from == nil || to == nil {
		f := time.Now().AddDate(0, 0, -2)
		t := time.Now()
		from, to = &f, &t
	}

	rows, err := d.conn.Query(ctx, `
		SELECT id, time_stamp, serial_number, mode, target_temperature, current_temperature
		FROM thermostat_state
		WHERE serial_number = $1 AND time_stamp BETWEEN $2 AND $3
		ORDER BY time_stamp DESC;`, serial, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStates(rows)
}

// GetLatestStates returns the most recent entry per serial number.
func (d *Database) GetLatestStates(ctx context.Context) ([]StateRow, error) {
	rows, err := d.conn.Query(ctx, `
		SELECT DISTINCT ON (serial_number) id, time_stamp, serial_number, mode, target_temperature, current_temperature
		FROM thermostat_state
		ORDER BY serial_number, time_stamp DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStates(rows)
}

func scanStates(rows pgx.Rows) ([]StateRow, error) {
	var states []StateRow
	for rows.Next() {
		var s StateRow
		if err := rows.Scan(&s.ID, &s.TimeStamp, &s.SerialNumber, &s.Mode, &s.TargetTemperature, &s.CurrentTemperature); err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return states, nil
}
