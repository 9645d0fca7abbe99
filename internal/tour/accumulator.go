package tour

import "backend-tourguide/internal/shared/geo"

// Accumulator decides how much distance a move between the anchor and a new
// fix adds, and whether the fix becomes the new anchor.
type Accumulator interface {
	Delta(anchor, next Position) (meters float64, advance bool)
}

// GreatCircle adds the full haversine distance, GPS jitter included.
type GreatCircle struct{}

func (GreatCircle) Delta(anchor, next Position) (float64, bool) {
	return geo.HaversineMeters(anchor.Lat, anchor.Lng, next.Lat, next.Lng), true
}

// MinDisplacement ignores moves shorter than Meters and keeps the anchor,
// so slow progress still adds up once it clears the threshold.
type MinDisplacement struct {
	Meters float64
}

func (m MinDisplacement) Delta(anchor, next Position) (float64, bool) {
	d := geo.HaversineMeters(anchor.Lat, anchor.Lng, next.Lat, next.Lng)
	if d < m.Meters {
		return 0, false
	}
	return d, true
}

// NewAccumulator returns GreatCircle unless a positive threshold is configured.
func NewAccumulator(minDisplacementM float64) Accumulator {
	if minDisplacementM > 0 {
		return MinDisplacement{Meters: minDisplacementM}
	}
	return GreatCircle{}
}
