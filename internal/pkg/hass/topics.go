package hass

import "fmt"

// deviceType is the fixed entity slug used in every topic and object id.
const deviceType = "micromatic_thermostat"

// Topics is the set of bus topics for one thermostat. Derivation is pure
// string formatting over the discovery prefix and the serial number, so
// topics can be recomputed on every publish instead of being cached.
type Topics struct {
	Config       string
	Availability string
	State        string
	Command      string
}

// TopicsFor derives the topic set for a serial number under prefix.
func TopicsFor(prefix, serial string) Topics {
	base := fmt.Sprintf("%s/climate/%s_%s", prefix, deviceType, serial)
	return Topics{
		Config:       base + "/config",
		Availability: base + "/available",
		State:        base + "/state",
		Command:      base + "/set",
	}
}

// ObjectID returns the unique entity id for a serial number.
func ObjectID(serial string) string {
	return fmt.Sprintf("%s_%s", deviceType, serial)
}
