package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// BulkInsertTrackPoints inserts corrected points via COPY. Trajectory
// batches routinely carry thousands of fixes, so per-row INSERTs are too
// slow on the hot path.
func (q *Queries) BulkInsertTrackPoints(ctx context.Context, points []TrackPoint) error {
	_, err := q.db.CopyFrom(
		ctx,
		pgx.Identifier{"track_points"},
		[]string{"time", "device_id", "lat", "lon", "interpolated"},
		pgx.CopyFromSlice(len(points), func(i int) ([]any, error) {
			p := points[i]
			return []any{p.Time, p.DeviceID, p.Lat, p.Lon, p.Interpolated}, nil
		}),
	)
	return err
}
