package feed

import (
	"time"

	"github.com/cacher300/Massive-Webscraping-operation/internal/model"
)

// FilterPolice keeps only police sightings and normalizes them into storable
// alerts, stamped with the sweep's observation time. It is a pure transform:
// no I/O, no retry, and applying it twice yields the same result.
func FilterPolice(alerts []Alert, observedAt time.Time) []model.Alert {
	var out []model.Alert
	for _, a := range alerts {
		if a.Type != TypePolice {
			continue
		}
		out = append(out, model.Alert{
			UUID:                     a.UUID,
			Country:                  a.Country,
			InScale:                  a.InScale,
			City:                     a.City,
			ReportRating:             a.ReportRating,
			ReportByMunicipalityUser: bool(a.ReportByMunicipalityUser),
			Confidence:               a.Confidence,
			Reliability:              a.Reliability,
			Type:                     a.Type,
			Speed:                    a.Speed,
			ReportMood:               a.ReportMood,
			RoadType:                 a.RoadType,
			Magvar:                   a.Magvar,
			Street:                   a.Street,
			AdditionalInfo:           a.AdditionalInfo,
			LocationX:                a.Location.X,
			LocationY:                a.Location.Y,
			PubMillis:                a.PubMillis,
			Timestamp:                observedAt,
		})
	}
	return out
}
