package matcher

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm_SamePointIsZero(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{12.9716, 77.5946},
		{-33.8688, 151.2093},
		{90, 0},
		{-90, 180},
	}

	for _, p := range points {
		assert.Equal(t, 0.0, HaversineKm(p[0], p[1], p[0], p[1]), "point %v", p)
	}
}

func TestHaversineKm_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{12.9716, 77.5946, 13.0827, 80.2707},
		{51.5074, -0.1278, 40.7128, -74.0060},
		{-33.8688, 151.2093, 35.6762, 139.6503},
	}

	for _, p := range pairs {
		ab := HaversineKm(p[0], p[1], p[2], p[3])
		ba := HaversineKm(p[2], p[3], p[0], p[1])
		assert.InDelta(t, ab, ba, 1e-9)
	}
}

func TestHaversineKm_KnownDistances(t *testing.T) {
	// One degree of latitude on a 6371 km sphere
	assert.InDelta(t, 111.195, HaversineKm(0, 0, 1, 0), 0.001)

	// Bengaluru to Chennai
	assert.InDelta(t, 290, HaversineKm(12.9716, 77.5946, 13.0827, 80.2707), 5)
}

func TestHaversineKm_Antipodal(t *testing.T) {
	d := HaversineKm(0, 0, 0, 180)

	assert.False(t, math.IsNaN(d))
	assert.InDelta(t, math.Pi*earthRadiusKm, d, 1e-6)

	d = HaversineKm(45, 30, -45, -150)
	assert.InDelta(t, math.Pi*earthRadiusKm, d, 1e-6)
}

func TestHaversineKm_TinySeparation(t *testing.T) {
	d := HaversineKm(12.9716, 77.5946, 12.9716+1e-9, 77.5946)

	assert.False(t, math.IsNaN(d))
	assert.Greater(t, d, 0.0)
	assert.Less(t, d, 1e-3)
}
