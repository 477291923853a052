package sampler

import (
	"github.com/paulmach/orb"

	"streetview-randomizer/internal/geo"
)

// SamplePoint draws a coordinate uniformly from the bounding box.
// It does not test containment; a zero-width or zero-height box yields its edge deterministically.
func SamplePoint(r Rand, b orb.Bound) geo.Coordinate {
	lon := b.Min[0] + r.Float64()*(b.Max[0]-b.Min[0])
	lat := b.Min[1] + r.Float64()*(b.Max[1]-b.Min[1])
	return geo.Coordinate{Lat: lat, Lon: lon}
}
