package hass

import (
	"fmt"

	"github.com/anicoll/microtemp-integration/internal/pkg/model"
)

const (
	minTemp  = 12.0
	maxTemp  = 32.5
	tempStep = 0.5

	manufacturer = "Micromatic"
	deviceModel  = "MSD4"
)

// DiscoveryDevice is the device metadata block of a discovery document.
type DiscoveryDevice struct {
	Identifiers  string `json:"identifiers"`
	Manufacturer string `json:"manufacturer"`
	Name         string `json:"name"`
	Model        string `json:"model"`
}

// DiscoveryMessage is the climate discovery document published retained on
// the config topic. Field set and values match what the automation platform
// already consumes, including the misspelled "precicion" key.
type DiscoveryMessage struct {
	AvailabilityTopic          string          `json:"availability_topic"`
	CurrentTemperatureTemplate string          `json:"current_temperature_template"`
	CurrentTemperatureTopic    string          `json:"current_temperature_topic"`
	Device                     DiscoveryDevice `json:"device"`
	Initial                    float64         `json:"initial"`
	Icon                       string          `json:"icon"`
	MaxTemp                    float64         `json:"max_temp"`
	MinTemp                    float64         `json:"min_temp"`
	ModeCommandTopic           string          `json:"mode_command_topic"`
	ModeCommandTemplate        string          `json:"mode_command_template"`
	ModeStateTemplate          string          `json:"mode_state_template"`
	ModeStateTopic             string          `json:"mode_state_topic"`
	Modes                      []string        `json:"modes"`
	ObjectID                   string          `json:"object_id"`
	Precision                  float64         `json:"precicion"`
	TemperatureCommandTopic    string          `json:"temperature_command_topic"`
	TemperatureCommandTemplate string          `json:"temperature_command_template"`
	TemperatureStateTemplate   string          `json:"temperature_state_template"`
	TemperatureStateTopic      string          `json:"temperature_state_topic"`
	TemperatureUnit            string          `json:"temperature_unit"`
	TempStep                   float64         `json:"temp_step"`
	UniqueID                   string          `json:"unique_id"`
	Name                       string          `json:"name"`
}

// DiscoveryFor builds the discovery document for a thermostat and its topic
// set. The command templates wrap the platform's raw values into the JSON
// command payload the gateway subscribes to.
func DiscoveryFor(t model.Thermostat, topics Topics) DiscoveryMessage {
	return DiscoveryMessage{
		AvailabilityTopic:          topics.Availability,
		CurrentTemperatureTemplate: "{{ value_json.current_temperature }}",
		CurrentTemperatureTopic:    topics.State,
		Device: DiscoveryDevice{
			Identifiers:  t.SerialNumber,
			Manufacturer: manufacturer,
			Name:         fmt.Sprintf("Micromatic Thermostat %s", t.SerialNumber),
			Model:        deviceModel,
		},
		Initial:             22,
		Icon:                "mdi:thermostat",
		MaxTemp:             maxTemp,
		MinTemp:             minTemp,
		ModeCommandTopic:    topics.Command,
		ModeCommandTemplate: fmt.Sprintf(`{%% set command = {"unique_id": %q, "mode": value } %%} {{ command|to_json }}`, t.SerialNumber),
		ModeStateTemplate:   "{{ value_json.mode }}",
		ModeStateTopic:      topics.State,
		Modes:               []string{"auto", "heat", "off"},
		ObjectID:            ObjectID(t.SerialNumber),
		Precision:           tempStep,
		TemperatureCommandTopic:    topics.Command,
		TemperatureCommandTemplate: fmt.Sprintf(`{%% set command = {"unique_id": %q, "target_temperature": value | round(1), "mode": "heat" } %%} {{ command|to_json }}`, t.SerialNumber),
		TemperatureStateTemplate:   "{{ value_json.target_temperature }}",
		TemperatureStateTopic:      topics.State,
		TemperatureUnit:            "c",
		TempStep:                   tempStep,
		UniqueID:                   t.SerialNumber,
		Name:                       fmt.Sprintf("Micromatic Thermostat %s", t.GroupName),
	}
}
