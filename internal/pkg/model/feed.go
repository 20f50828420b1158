package model

// FeedEnvelope is the outer document of a push notification frame. The
// elements of M are string-typed and each contains a second JSON layer.
type FeedEnvelope struct {
	MessageID string   `json:"C"`
	M         []string `json:"M"`
}

// FeedItem is the inner layer of one M element. Thermostat is optional;
// frames without it carry nothing of interest.
type FeedItem struct {
	Thermostat *Thermostat `json:"Thermostat"`
}
