// Package model holds the domain types persisted by the harvester.
package model

import "time"

// Alert is a normalized police sighting as stored in the alerts table.
// The upstream UUID is the primary key; a row is written once and never
// updated, so the fields reflect the first sweep that observed the report.
type Alert struct {
	UUID                     string    `json:"uuid"`
	Country                  string    `json:"country"`
	InScale                  bool      `json:"inscale"`
	City                     string    `json:"city"`
	ReportRating             int       `json:"report_rating"`
	ReportByMunicipalityUser bool      `json:"report_by_municipality_user"`
	Confidence               int       `json:"confidence"`
	Reliability              int       `json:"reliability"`
	Type                     string    `json:"type"`
	Speed                    *int      `json:"speed,omitempty"`
	ReportMood               *int      `json:"report_mood,omitempty"`
	RoadType                 int       `json:"road_type"`
	Magvar                   int       `json:"magvar"`
	Street                   string    `json:"street"`
	AdditionalInfo           string    `json:"additional_info"`
	LocationX                float64   `json:"location_x"`
	LocationY                float64   `json:"location_y"`
	PubMillis                int64     `json:"pub_millis"`
	Timestamp                time.Time `json:"timestamp"`
}

// SweepEntry is one append-only provenance row in the import_log table,
// written after each completed sweep regardless of how many of the presented
// alerts were actually new.
type SweepEntry struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	AlertCount int       `json:"alert_count"`
}
