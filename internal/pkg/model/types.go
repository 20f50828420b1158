package model

// RegulationMode is the vendor's regulation mode code.
type RegulationMode int

const (
	ModeAuto RegulationMode = 1
	ModeHeat RegulationMode = 3
	ModeOff  RegulationMode = 5
)

// modeNames maps vendor codes to the mode strings used on the bus.
var modeNames = map[RegulationMode]string{
	ModeAuto: "auto",
	ModeHeat: "heat",
	ModeOff:  "off",
}

func (m RegulationMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether m is one of the known vendor codes.
func (m RegulationMode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// ModeFromString parses a bus mode string into a vendor code.
func ModeFromString(name string) (RegulationMode, bool) {
	for mode, n := range modeNames {
		if n == name {
			return mode, true
		}
	}
	return 0, false
}

type Availability string

const (
	AvailabilityOnline  Availability = "online"
	AvailabilityOffline Availability = "offline"
)

func (a Availability) String() string {
	return string(a)
}
