package matcher

import (
	"time"

	"go.uber.org/zap"

	"blood-bank-matcher/internal/models"
)

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

// mockDonor creates a test donor with default values
func mockDonor(overrides map[string]interface{}) models.Donor {
	donor := models.Donor{
		ID:           1,
		Name:         "Asha Rao",
		BloodType:    models.BloodTypeO,
		Rh:           models.RhNegative,
		Location:     models.GeoPoint{Lat: 12.9716, Lon: 77.5946},
		Available:    true,
		LastDonation: testNow.AddDate(0, 0, -120),
	}

	if v, ok := overrides["id"]; ok {
		donor.ID = v.(int64)
	}
	if v, ok := overrides["blood_type"]; ok {
		donor.BloodType = v.(models.BloodType)
	}
	if v, ok := overrides["rh"]; ok {
		donor.Rh = v.(models.RhFactor)
	}
	if v, ok := overrides["location"]; ok {
		donor.Location = v.(models.GeoPoint)
	}
	if v, ok := overrides["available"]; ok {
		donor.Available = v.(bool)
	}
	if v, ok := overrides["last_donation"]; ok {
		donor.LastDonation = v.(time.Time)
	}

	return donor
}

// mockRecipient creates a test recipient with default values
func mockRecipient(overrides map[string]interface{}) models.Recipient {
	recipient := models.Recipient{
		ID:          100,
		BloodType:   models.BloodTypeO,
		Rh:          models.RhPositive,
		Location:    models.GeoPoint{Lat: 12.9716, Lon: 77.5946},
		UnitsNeeded: 2,
	}

	if v, ok := overrides["id"]; ok {
		recipient.ID = v.(int64)
	}
	if v, ok := overrides["blood_type"]; ok {
		recipient.BloodType = v.(models.BloodType)
	}
	if v, ok := overrides["rh"]; ok {
		recipient.Rh = v.(models.RhFactor)
	}
	if v, ok := overrides["location"]; ok {
		recipient.Location = v.(models.GeoPoint)
	}
	if v, ok := overrides["units_needed"]; ok {
		recipient.UnitsNeeded = v.(int)
	}

	return recipient
}

func newTestService() *Service {
	return NewService(
		WithLogger(zap.NewNop()),
		WithClock(func() time.Time { return testNow }),
	)
}

// north returns a point km kilometers due north of the default location.
func north(km float64) models.GeoPoint {
	return models.GeoPoint{Lat: 12.9716 + km/111.195, Lon: 77.5946}
}
