package database

import (
	"context"
	"time"

	"github.com/gosimple/slug"

	"github.com/anicoll/microtemp-integration/internal/pkg/hass"
	"github.com/anicoll/microtemp-integration/internal/pkg/model"
)

// RegisterThermostat records the device row once per serial number.
func (d *Database) RegisterThermostat(ctx context.Context, t model.Thermostat) error {
	_, err := d.conn.Exec(ctx, `
		INSERT INTO thermostat (serial_number, group_name, group_slug)
		VALUES ($1, $2, $3)
		ON CONFLICT (serial_number) DO UPDATE
		SET group_name = EXCLUDED.group_name, group_slug = EXCLUDED.group_slug;`,
		t.SerialNumber, t.GroupName, slug.Make(t.GroupName))
	return err
}

// PublishState appends one state-history row, mirroring exactly what went to
// the bus (mode string, decimal temperatures).
func (d *Database) PublishState(ctx context.Context, t model.Thermostat, now time.Time) error {
	state := hass.StateFor(t, now)
	_, err := d.conn.Exec(ctx, `
		INSERT INTO thermostat_state (time_stamp, serial_number, mode, target_temperature, current_temperature)
		VALUES ($1, $2, $3, $4, $5);`,
		now, t.SerialNumber, state.Mode,
		float64(state.TargetTemperature)/100, float64(state.CurrentTemperature)/100)
	return err
}

// PublishAvailability updates the device's last-known availability.
func (d *Database) PublishAvailability(ctx context.Context, serial string, availability model.Availability) error {
	_, err := d.conn.Exec(ctx, `
		UPDATE thermostat SET availability = $2, updated_at = $3 WHERE serial_number = $1;`,
		serial, availability.String(), time.Now())
	return err
}
