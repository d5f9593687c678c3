// Package feed talks to the upstream live-map endpoint: it fetches one tile's
// raw alert set and filters it down to the police sightings we persist.
package feed

import (
	"bytes"
	"encoding/json"
)

// TypePolice is the category discriminator for police sighting reports.
const TypePolice = "POLICE"

// StringBool tolerates the upstream's inconsistent boolean encoding: the same
// field arrives sometimes as a JSON boolean and sometimes as the string
// literal "true"/"false". The string "true" decodes to true; any other value,
// including absence, is false.
type StringBool bool

func (b *StringBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte(`"true"`)):
		*b = true
	default:
		*b = false
	}
	return nil
}

// Location is the upstream coordinate pair: x is longitude, y is latitude.
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Alert is one raw upstream report. Instances are ephemeral: they live from
// fetch to filter and are never persisted directly. Not every report
// populates every field, so the optional integers are pointers.
type Alert struct {
	UUID                     string     `json:"uuid"`
	Country                  string     `json:"country"`
	InScale                  bool       `json:"inscale"`
	City                     string     `json:"city"`
	ReportRating             int        `json:"reportRating"`
	ReportByMunicipalityUser StringBool `json:"reportByMunicipalityUser"`
	Confidence               int        `json:"confidence"`
	Reliability              int        `json:"reliability"`
	Type                     string     `json:"type"`
	Speed                    *int       `json:"speed,omitempty"`
	ReportMood               *int       `json:"reportMood,omitempty"`
	RoadType                 int        `json:"roadType"`
	Magvar                   int        `json:"magvar"`
	Street                   string     `json:"street"`
	AdditionalInfo           string     `json:"additionalInfo"`
	Location                 Location   `json:"location"`
	PubMillis                int64      `json:"pubMillis"`
}

// envelope is the top-level feed response. Only the alerts array is consumed;
// traffic jams and irrelevant keys are ignored by the decoder.
type envelope struct {
	Alerts []Alert `json:"alerts"`
}

func decodeEnvelope(data []byte) ([]Alert, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return env.Alerts, nil
}
