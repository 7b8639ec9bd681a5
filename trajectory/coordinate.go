package trajectory

import (
	"encoding/json"
	"errors"
)

// Coordinate is a single GPS fix. Lat and Lon are degrees, Time is seconds
// since an arbitrary epoch. The JSON field names are the wire contract shared
// with producers and downstream consumers.
type Coordinate struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Time int64   `json:"time"`
}

// coordinateWire distinguishes absent fields from zero values.
type coordinateWire struct {
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
	Time *int64   `json:"time"`
}

var (
	errMissingLat  = errors.New("coordinate missing lat")
	errMissingLon  = errors.New("coordinate missing lon")
	errMissingTime = errors.New("coordinate missing time")
)

// UnmarshalJSON rejects records that omit any of lat, lon or time.
// Out-of-range values are accepted as-is; the corrector evaluates them
// numerically rather than rejecting them.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var w coordinateWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.Lat == nil:
		return errMissingLat
	case w.Lon == nil:
		return errMissingLon
	case w.Time == nil:
		return errMissingTime
	}
	c.Lat, c.Lon, c.Time = *w.Lat, *w.Lon, *w.Time
	return nil
}
