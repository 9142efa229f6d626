package matcher

import (
	"fmt"
	"math"

	"blood-bank-matcher/internal/models"
)

// Score weights. They sum to 1.0 so every score lands in [0, 1].
const (
	WeightProximity = 0.55
	WeightExactABO  = 0.20
	WeightExactRh   = 0.10
	WeightShortage  = 0.15

	// ProximityRangeKm is the distance at which proximity falls to zero.
	ProximityRangeKm = 200.0
)

// Score is the breakdown of a donor's weighted score.
type Score struct {
	Value          float64
	DistanceKm     float64
	Proximity      float64
	ExactABO       bool
	ExactRh        bool
	Shortage       int
	ShortageFactor float64
}

// ScoreDonor scores an eligible donor against a recipient, given the units
// on hand for the recipient's blood group.
func ScoreDonor(d *models.Donor, r *models.Recipient, inventoryUnits int) Score {
	distance := DistanceKm(d.Location, r.Location)
	proximity := math.Max(0, 1-distance/ProximityRangeKm)

	exactABO := d.BloodType == r.BloodType
	exactRh := d.Rh == r.Rh

	// Lower stock means a more urgent need
	shortage := r.UnitsNeeded - inventoryUnits
	if shortage < 0 {
		shortage = 0
	}
	needed := r.UnitsNeeded
	if needed < 1 {
		needed = 1
	}
	shortageFactor := math.Min(1, float64(shortage)/float64(needed))

	value := WeightProximity*proximity +
		WeightExactABO*indicator(exactABO) +
		WeightExactRh*indicator(exactRh) +
		WeightShortage*shortageFactor

	return Score{
		Value:          value,
		DistanceKm:     distance,
		Proximity:      proximity,
		ExactABO:       exactABO,
		ExactRh:        exactRh,
		Shortage:       shortage,
		ShortageFactor: shortageFactor,
	}
}

// Explain lists the facts behind a score in a fixed order. The output is
// identical for identical inputs.
func Explain(d *models.Donor, r *models.Recipient, inventoryUnits int, s Score) []string {
	rhNote := "✓"
	if !s.ExactRh && d.Rh == models.RhNegative {
		rhNote = "✓ (Rh- universal)"
	}

	facts := []string{
		fmt.Sprintf("ABO %s→%s ✓", d.BloodType, r.BloodType),
		fmt.Sprintf("Rh %s→%s %s", d.Rh, r.Rh, rhNote),
		fmt.Sprintf("Distance %.1f km", s.DistanceKm),
		fmt.Sprintf("Inventory for %s: %d units (shortage %d)", r.Group(), inventoryUnits, s.Shortage),
	}
	if s.ExactABO {
		facts = append(facts, "Exact ABO match +")
	}
	if s.ExactRh {
		facts = append(facts, "Exact Rh match +")
	}

	return facts
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
