package hass

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/anicoll/microtemp-integration/internal/pkg/model"
	"github.com/anicoll/microtemp-integration/internal/pkg/schedule"
)

// Temperature is a temperature in hundredths of a degree that marshals as
// decimal degrees with one decimal place, e.g. 2200 -> 22.0. The platform's
// value templates expect the decimal form.
type Temperature int

func (t Temperature) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(t)/100, 'f', 1, 64)), nil
}

func (t *Temperature) UnmarshalJSON(data []byte) error {
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*t = Temperature(f * 100)
	return nil
}

// StateMessage is the payload published on a thermostat's state topic.
type StateMessage struct {
	Mode               string      `json:"mode"`
	TargetTemperature  Temperature `json:"target_temperature"`
	CurrentTemperature Temperature `json:"current_temperature"`
}

// StateFor derives the bus state of a thermostat at the given instant. In
// automatic mode the target comes from the weekly schedule; the last-known
// manual room target covers schedules with no active events at all.
func StateFor(t model.Thermostat, now time.Time) StateMessage {
	target := t.ManuelRoomTemperature
	if t.RegulationMode == model.ModeAuto {
		target = schedule.EffectiveTarget(t.Schedule, now, t.ManuelRoomTemperature)
	}
	return StateMessage{
		Mode:               t.RegulationMode.String(),
		TargetTemperature:  Temperature(target),
		CurrentTemperature: Temperature(t.TemperatureRoom),
	}
}

// CommandMessage is the payload the platform publishes on a command topic.
// TargetTemperature is optional; mode-only commands omit it.
type CommandMessage struct {
	UniqueID          string   `json:"unique_id"`
	Mode              string   `json:"mode"`
	TargetTemperature *float64 `json:"target_temperature,omitempty"`
}

// ParseCommand decodes a command payload.
func ParseCommand(payload []byte) (CommandMessage, error) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return CommandMessage{}, err
	}
	return cmd, nil
}
