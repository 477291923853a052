package sampler

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streetview-randomizer/internal/geo"
)

type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

func box(code string, minLon, minLat, maxLon, maxLat float64) *geo.Country {
	return geo.NewCountry(code, code+" land", orb.MultiPolygon{{{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}}})
}

func triangle() *geo.Country {
	return geo.NewCountry("TRI", "Triangle", orb.MultiPolygon{{{{0, 0}, {10, 0}, {0, 10}, {0, 0}}}})
}

func TestAreaWeightsSumToOne(t *testing.T) {
	countries := []*geo.Country{
		box("AAA", 0, 0, 1, 1),
		box("BBB", 10, 40, 15, 45),
		box("CCC", -70, -20, -50, 0),
	}
	set, err := NewCountrySet(countries, WeightOptions{UseArea: true})
	require.NoError(t, err)
	require.True(t, set.Weighted())

	sum := 0.0
	for _, c := range set.Countries() {
		assert.Greater(t, c.Area, 0.0)
		sum += c.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	for _, c := range countries {
		assert.Zero(t, c.Area, "input countries must not be mutated")
		assert.Zero(t, c.Weight)
	}
}

func TestLowCoverageClamped(t *testing.T) {
	countries := []*geo.Country{
		box("ATA", -180, -90, 180, -60),
		box("FRA", 0, 43, 7, 50),
		box("LUX", 5.7, 49.4, 6.5, 50.2),
	}
	set, err := NewCountrySet(countries, WeightOptions{UseArea: true})
	require.NoError(t, err)

	byCode := map[string]*geo.Country{}
	for _, c := range set.Countries() {
		byCode[c.Code] = c
	}
	assert.Equal(t, byCode["LUX"].Area, byCode["ATA"].Area)
	assert.LessOrEqual(t, byCode["ATA"].Weight, byCode["LUX"].Weight+1e-12)
	assert.LessOrEqual(t, byCode["ATA"].Weight, byCode["FRA"].Weight)

	custom, err := NewCountrySet(countries, WeightOptions{UseArea: true, LowCoverage: []string{"fra"}})
	require.NoError(t, err)
	for _, c := range custom.Countries() {
		if c.Code == "ATA" {
			assert.Greater(t, c.Weight, 0.5)
		}
	}
}

func TestSingleCountryWeight(t *testing.T) {
	set, err := NewCountrySet([]*geo.Country{box("ATA", -180, -90, 180, -60)}, WeightOptions{UseArea: true})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, set.Countries()[0].Weight, 1e-12)
}

func TestZeroAreaFallsBackToUniform(t *testing.T) {
	flat := geo.NewCountry("FLT", "Flat", orb.MultiPolygon{{{{0, 0}, {5, 0}, {10, 0}, {0, 0}}}})
	set, err := NewCountrySet([]*geo.Country{flat}, WeightOptions{UseArea: true})
	require.NoError(t, err)
	assert.False(t, set.Weighted())
	assert.Same(t, flat, set.Sample(&seqRand{vals: []float64{0.3}}))
}

func TestEmptyCountrySet(t *testing.T) {
	_, err := NewCountrySet(nil, WeightOptions{})
	assert.ErrorIs(t, err, ErrEmptyCountrySet)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSamplePicksByCumulativeWeight(t *testing.T) {
	a, b := box("AAA", 0, 0, 1, 1), box("BBB", 1, 1, 2, 2)
	set := &CountrySet{countries: []*geo.Country{a, b}, cum: []float64{0.25, 1.0}, weighted: true}

	tests := []struct {
		u    float64
		want *geo.Country
	}{
		{0, a},
		{0.1, a},
		{0.25, b},
		{0.9999, b},
	}
	for _, tc := range tests {
		assert.Same(t, tc.want, set.Sample(&seqRand{vals: []float64{tc.u}}), "u=%v", tc.u)
	}
}

func TestSampleUniform(t *testing.T) {
	countries := []*geo.Country{box("AAA", 0, 0, 1, 1), box("BBB", 0, 0, 1, 1), box("CCC", 0, 0, 1, 1), box("DDD", 0, 0, 1, 1)}
	set, err := NewCountrySet(countries, WeightOptions{})
	require.NoError(t, err)
	assert.False(t, set.Weighted())
	assert.Same(t, countries[0], set.Sample(&seqRand{vals: []float64{0}}))
	assert.Same(t, countries[2], set.Sample(&seqRand{vals: []float64{0.5}}))
	assert.Same(t, countries[3], set.Sample(&seqRand{vals: []float64{0.9999}}))
}

func TestWeightedFrequencies(t *testing.T) {
	countries := []*geo.Country{box("AAA", 0, 0, 10, 10), box("BBB", 0, 50, 10, 60), box("CCC", 20, 0, 25, 5)}
	set, err := NewCountrySet(countries, WeightOptions{UseArea: true})
	require.NoError(t, err)

	r := NewRand(42)
	const draws = 20000
	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		counts[set.Sample(r).Code]++
	}
	for _, c := range set.Countries() {
		assert.InDelta(t, c.Weight, float64(counts[c.Code])/draws, 0.02, c.Code)
	}
}

func TestSquareNeverRejects(t *testing.T) {
	sq := box("SQR", 0, 0, 10, 10)
	r := NewRand(7)
	for i := 0; i < 1000; i++ {
		assert.True(t, sq.Contains(SamplePoint(r, sq.Bound)))
	}
}

func TestTriangleRejectsHalf(t *testing.T) {
	tri := triangle()
	r := NewRand(2024)
	const trials = 10000
	rejected := 0
	for i := 0; i < trials; i++ {
		if !tri.Contains(SamplePoint(r, tri.Bound)) {
			rejected++
		}
	}
	assert.InDelta(t, 0.5, float64(rejected)/trials, 0.03)
}

func TestSamplePointStaysInBound(t *testing.T) {
	b := orb.Bound{Min: orb.Point{-73.5, 40.1}, Max: orb.Point{-71.9, 41.3}}
	r := NewRand(1)
	for i := 0; i < 500; i++ {
		c := SamplePoint(r, b)
		assert.True(t, c.Lon >= b.Min[0] && c.Lon <= b.Max[0])
		assert.True(t, c.Lat >= b.Min[1] && c.Lat <= b.Max[1])
	}
}

func TestSamplePointDegenerateBound(t *testing.T) {
	b := orb.Bound{Min: orb.Point{5, -3}, Max: orb.Point{5, -3}}
	assert.Equal(t, geo.Coordinate{Lat: -3, Lon: 5}, SamplePoint(NewRand(3), b))
}

func TestValidateRadius(t *testing.T) {
	for _, r := range []int{0, -1, 1_000_000, 5_000_000} {
		err := ValidateRadius(r)
		assert.ErrorIs(t, err, ErrInvalidRadius, "radius %d", r)
		assert.ErrorIs(t, err, ErrConfiguration)
	}
	for _, r := range []int{1, 50, 5000, 999_999} {
		assert.NoError(t, ValidateRadius(r))
	}
}

func TestValidateSamples(t *testing.T) {
	assert.ErrorIs(t, ValidateSamples(0), ErrInvalidSamples)
	assert.ErrorIs(t, ValidateSamples(28000), ErrConfiguration)
	assert.NoError(t, ValidateSamples(1))
	assert.NoError(t, ValidateSamples(27999))
}

func TestNewRandSeeded(t *testing.T) {
	a, b := NewRand(99), NewRand(99)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
	assert.False(t, math.IsNaN(NewRand(0).Float64()))
}
