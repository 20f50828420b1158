package model

// Thermostat mirrors the full vendor record. Every field the API returns is
// kept so that a change request round-trips the exact document the vendor
// sent, with only the locally mutated fields differing.
type Thermostat struct {
	SerialNumber          string   `json:"SerialNumber"`
	GroupName             string   `json:"GroupName"`
	GroupID               int      `json:"GroupId"`
	TemperatureRoom       int      `json:"TemperatureRoom"`
	TemperatureFloor      int      `json:"TemperatureFloor"`
	SensorApplication     int      `json:"SensorApplication"`
	Address               string   `json:"Address"`
	SateliteType          int      `json:"SateliteType"`
	ErrorCode             int      `json:"ErrorCode"`
	RelayOn2Days          int      `json:"RelayOn2Days"`
	RelayOn30Days         int      `json:"RelayOn30Days"`
	RelayOn365Days        int      `json:"RelayOn365Days"`
	RegulationMode        RegulationMode `json:"RegulationMode"`
	VacationBeginDay      string   `json:"VacationBeginDay"`
	VacationEndDay        string   `json:"VacationEndDay"`
	VacationBeginTime     string   `json:"VacationBeginTime"`
	VacationEndTime       string   `json:"VacationEndTime"`
	VacationTemperature   int      `json:"VacationTemperature"`
	ComfortTime           string   `json:"ComfortTime"`
	ManuelRoomTemperature int      `json:"ManuelRoomTemperature"`
	ManuelFloorTemperature int     `json:"ManuelFloorTemperature"`
	ManuelRegulator       int      `json:"ManuelRegulator"`
	FrostRoomTemperature  int      `json:"FrostRoomTemperature"`
	FrostFloorTemperature int      `json:"FrostFloorTemperature"`
	LosEnabled            bool     `json:"LosEnabled"`
	LosTempAuto           int      `json:"LosTempAuto"`
	LosTempFrost          int      `json:"LosTempFrost"`
	IdentifyThermo        bool     `json:"IdentifyThermo"`
	UtcOffset             int      `json:"UtcOffset"`
	Schedule              Schedule `json:"Schedule"`
}

// Schedule is the weekly program of a thermostat. Days are indexed 0-6
// starting on Monday, matching the vendor's ordering.
type Schedule struct {
	Days                   []ScheduleDay `json:"Days"`
	ComfortTemperatureRoom int           `json:"ComfortTemperatureRoom"`
	SetbackTemperatureRoom int           `json:"SetbackTemperatureRoom"`
	ComfortTemperatureFloor int          `json:"ComfortTemperatureFloor"`
	SetbackTemperatureFloor int          `json:"SetbackTemperatureFloor"`
}

type ScheduleDay struct {
	WeekDay int             `json:"WeekDay"`
	Events  []ScheduleEvent `json:"Events"`
}

// ScheduleEvent is one switching point within a day. Clock is a time of day
// formatted as "15:04:05".
type ScheduleEvent struct {
	Clock              string `json:"Clock"`
	Active             bool   `json:"Active"`
	EventIsComfortTemp bool   `json:"EventIsComfortTemp"`
}
