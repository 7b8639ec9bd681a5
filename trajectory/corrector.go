package trajectory

// Config holds anomaly classification parameters.
type Config struct {
	// SpeedThreshold is the implied speed, in meters per time unit, above
	// which an interior point is classified as anomalous. With second
	// timestamps the default of 200 m/s is roughly 720 km/h, far beyond
	// any plausible ground movement.
	SpeedThreshold float64
}

// DefaultConfig returns the production classification parameters.
func DefaultConfig() Config {
	return Config{
		SpeedThreshold: 200.0,
	}
}

// Result is the output of a correction pass. The JSON field names are the
// wire contract shared with downstream consumers.
type Result struct {
	CorrectedPoints    []Coordinate `json:"corrected_points"`
	AnomaliesDetected  int          `json:"anomalies_detected"`
	AnomaliesCorrected int          `json:"anomalies_corrected"`
}

// Corrector detects and repairs localized positional anomalies in an
// ordered trajectory. It is stateless and safe for concurrent use.
type Corrector struct {
	cfg Config
}

// NewCorrector creates a corrector with the given configuration.
func NewCorrector(cfg Config) *Corrector {
	return &Corrector{cfg: cfg}
}

// Correct examines every interior point of the trajectory over a 3-point
// sliding window. A point whose implied speed to either neighbor exceeds the
// threshold is replaced by the arithmetic midpoint of its original neighbors,
// keeping its own timestamp. Endpoints always pass through unchanged, the
// output has the same length as the input, and the input is never mutated.
//
// Neighbor lookups always use the original sequence, so consecutive
// anomalies are each interpolated independently; corrections never cascade.
func (c *Corrector) Correct(points []Coordinate) Result {
	out := make([]Coordinate, len(points))
	copy(out, points)

	res := Result{CorrectedPoints: out}
	for i := 1; i < len(points)-1; i++ {
		prev, curr, next := points[i-1], points[i], points[i+1]

		if !c.exceeds(Distance(curr, prev), curr.Time-prev.Time) &&
			!c.exceeds(Distance(curr, next), next.Time-curr.Time) {
			continue
		}

		out[i] = Coordinate{
			Lat:  (prev.Lat + next.Lat) / 2,
			Lon:  (prev.Lon + next.Lon) / 2,
			Time: curr.Time,
		}
		res.AnomaliesDetected++
		res.AnomaliesCorrected++
	}
	return res
}

// exceeds reports whether covering dist meters in dt time units implies a
// speed above the threshold. Duplicate timestamps with nonzero displacement
// count as infinite speed; duplicate timestamps without displacement
// contribute nothing.
func (c *Corrector) exceeds(dist float64, dt int64) bool {
	if dt == 0 {
		return dist > 0
	}
	return dist/float64(dt) > c.cfg.SpeedThreshold
}
