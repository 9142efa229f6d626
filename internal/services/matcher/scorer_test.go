package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blood-bank-matcher/internal/models"
)

func TestWeights_SumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, WeightProximity+WeightExactABO+WeightExactRh+WeightShortage, 1e-12)
}

func TestScoreDonor_UniversalDonorScenario(t *testing.T) {
	// O- donor on site, O+ recipient needing 2 units with none in stock
	donor := mockDonor(nil)
	recipient := mockRecipient(map[string]interface{}{"units_needed": 2})

	s := ScoreDonor(&donor, &recipient, 0)

	assert.InDelta(t, 0.0, s.DistanceKm, 1e-9)
	assert.InDelta(t, 1.0, s.Proximity, 1e-9)
	assert.True(t, s.ExactABO)
	assert.False(t, s.ExactRh)
	assert.Equal(t, 2, s.Shortage)
	assert.InDelta(t, 1.0, s.ShortageFactor, 1e-9)
	assert.InDelta(t, 0.90, s.Value, 1e-9)
}

func TestScoreDonor_ProximityClampedBeyondRange(t *testing.T) {
	donor := mockDonor(map[string]interface{}{"location": north(450)})
	recipient := mockRecipient(nil)

	s := ScoreDonor(&donor, &recipient, 0)

	assert.Greater(t, s.DistanceKm, ProximityRangeKm)
	assert.Equal(t, 0.0, s.Proximity)
}

func TestScoreDonor_ProximityLinear(t *testing.T) {
	donor := mockDonor(map[string]interface{}{"location": north(100)})
	recipient := mockRecipient(nil)

	s := ScoreDonor(&donor, &recipient, 0)

	assert.InDelta(t, 100, s.DistanceKm, 0.01)
	assert.InDelta(t, 0.5, s.Proximity, 0.001)
}

func TestScoreDonor_ShortageFactor(t *testing.T) {
	tests := []struct {
		name           string
		unitsNeeded    int
		inventory      int
		shortage       int
		shortageFactor float64
	}{
		{"no stock", 4, 0, 4, 1.0},
		{"partial stock", 4, 1, 3, 0.75},
		{"fully stocked", 4, 4, 0, 0.0},
		{"overstocked", 4, 9, 0, 0.0},
		{"nothing needed", 0, 0, 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			donor := mockDonor(nil)
			recipient := mockRecipient(map[string]interface{}{"units_needed": tt.unitsNeeded})

			s := ScoreDonor(&donor, &recipient, tt.inventory)

			assert.Equal(t, tt.shortage, s.Shortage)
			assert.InDelta(t, tt.shortageFactor, s.ShortageFactor, 1e-9)
		})
	}
}

func TestScoreDonor_WithinUnitInterval(t *testing.T) {
	groups := []struct {
		bt models.BloodType
		rh models.RhFactor
	}{
		{models.BloodTypeO, models.RhNegative},
		{models.BloodTypeA, models.RhPositive},
		{models.BloodTypeB, models.RhNegative},
		{models.BloodTypeAB, models.RhPositive},
	}
	distances := []float64{0, 15, 199, 200, 1500}
	needs := [][2]int{{0, 0}, {2, 0}, {5, 3}, {1, 10}}

	for _, g := range groups {
		for _, km := range distances {
			for _, n := range needs {
				donor := mockDonor(map[string]interface{}{"blood_type": g.bt, "rh": g.rh, "location": north(km)})
				recipient := mockRecipient(map[string]interface{}{
					"blood_type":   models.BloodTypeAB,
					"units_needed": n[0],
				})

				s := ScoreDonor(&donor, &recipient, n[1])

				assert.GreaterOrEqual(t, s.Value, 0.0)
				assert.LessOrEqual(t, s.Value, 1.0+1e-12)
			}
		}
	}
}

func TestExplain_UniversalDonor(t *testing.T) {
	donor := mockDonor(map[string]interface{}{"location": north(12.34)})
	recipient := mockRecipient(nil)

	s := ScoreDonor(&donor, &recipient, 0)
	facts := Explain(&donor, &recipient, 0, s)

	require.Len(t, facts, 5)
	assert.Equal(t, "ABO O→O ✓", facts[0])
	assert.Equal(t, "Rh -→+ ✓ (Rh- universal)", facts[1])
	assert.Equal(t, "Distance 12.3 km", facts[2])
	assert.Equal(t, "Inventory for O+: 0 units (shortage 2)", facts[3])
	assert.Equal(t, "Exact ABO match +", facts[4])
}

func TestExplain_ExactMatch(t *testing.T) {
	donor := mockDonor(map[string]interface{}{"blood_type": models.BloodTypeA, "rh": models.RhPositive})
	recipient := mockRecipient(map[string]interface{}{"blood_type": models.BloodTypeA, "units_needed": 3})

	s := ScoreDonor(&donor, &recipient, 5)
	facts := Explain(&donor, &recipient, 5, s)

	assert.Equal(t, []string{
		"ABO A→A ✓",
		"Rh +→+ ✓",
		"Distance 0.0 km",
		"Inventory for A+: 5 units (shortage 0)",
		"Exact ABO match +",
		"Exact Rh match +",
	}, facts)
}

func TestExplain_Reproducible(t *testing.T) {
	donor := mockDonor(map[string]interface{}{"location": north(57.5)})
	recipient := mockRecipient(map[string]interface{}{"blood_type": models.BloodTypeB})

	first := Explain(&donor, &recipient, 1, ScoreDonor(&donor, &recipient, 1))
	second := Explain(&donor, &recipient, 1, ScoreDonor(&donor, &recipient, 1))

	assert.Equal(t, first, second)
	assert.NotContains(t, first, "Exact ABO match +")
}
