package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blood-bank-matcher/internal/models"
)

func TestMatchDonors_RecipientNotFound(t *testing.T) {
	donors := []models.Donor{mockDonor(nil)}
	recipients := []models.Recipient{mockRecipient(nil)}

	run, err := newTestService().MatchDonors(donors, recipients, nil, 999, 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRecipientNotFound)
	assert.Contains(t, err.Error(), "999")
	assert.Nil(t, run)
}

func TestMatchDonors_UniversalDonorScore(t *testing.T) {
	donors := []models.Donor{mockDonor(nil)}
	recipients := []models.Recipient{mockRecipient(map[string]interface{}{"units_needed": 2})}
	inventory := []models.InventoryEntry{{BloodType: models.BloodTypeO, Rh: models.RhPositive, UnitsAvailable: 0}}

	run, err := newTestService().MatchDonors(donors, recipients, inventory, 100, 5)

	require.NoError(t, err)
	require.Len(t, run.Results, 1)
	assert.Equal(t, int64(1), run.Results[0].DonorID)
	assert.InDelta(t, 0.90, run.Results[0].Score, 1e-9)
	assert.NotEmpty(t, run.RequestID)
	assert.Equal(t, "O+", run.RecipientGroup)
}

func TestMatchDonors_DeferredDonorExcluded(t *testing.T) {
	donors := []models.Donor{
		mockDonor(map[string]interface{}{"id": int64(1), "last_donation": testNow.AddDate(0, 0, -10)}),
	}
	recipients := []models.Recipient{mockRecipient(nil)}

	run, err := newTestService().MatchDonors(donors, recipients, nil, 100, 5)

	require.NoError(t, err)
	assert.Empty(t, run.Results)
	assert.Equal(t, 1, run.Skipped[models.ReasonDeferral])
}

func TestMatchDonors_IneligibleNeverReturned(t *testing.T) {
	donors := []models.Donor{
		mockDonor(map[string]interface{}{"id": int64(1), "blood_type": models.BloodTypeA}),
		mockDonor(map[string]interface{}{"id": int64(2), "rh": models.RhPositive}),
		mockDonor(map[string]interface{}{"id": int64(3), "available": false}),
		mockDonor(map[string]interface{}{"id": int64(4), "last_donation": testNow.AddDate(0, 0, -1)}),
		mockDonor(map[string]interface{}{"id": int64(5), "location": north(150)}),
	}
	recipients := []models.Recipient{mockRecipient(map[string]interface{}{"rh": models.RhNegative})}

	run, err := newTestService().MatchDonors(donors, recipients, nil, 100, 10)

	require.NoError(t, err)
	require.Len(t, run.Results, 1)
	assert.Equal(t, int64(5), run.Results[0].DonorID)
	assert.Equal(t, 5, run.DonorsConsidered)
	assert.Equal(t, 1, run.EligibleDonors)
	assert.Equal(t, map[string]int{
		models.ReasonABOIncompatible: 1,
		models.ReasonRhIncompatible:  1,
		models.ReasonUnavailable:     1,
		models.ReasonDeferral:        1,
	}, run.Skipped)
}

func TestMatchDonors_OrderedByScoreThenDistance(t *testing.T) {
	donors := []models.Donor{
		// beyond proximity range: identical zero proximity, tie on score
		mockDonor(map[string]interface{}{"id": int64(1), "location": north(400)}),
		mockDonor(map[string]interface{}{"id": int64(2), "location": north(300)}),
		mockDonor(map[string]interface{}{"id": int64(3), "location": north(20)}),
		mockDonor(map[string]interface{}{"id": int64(4), "location": north(5)}),
		mockDonor(map[string]interface{}{"id": int64(5), "rh": models.RhPositive, "location": north(60)}),
	}
	recipients := []models.Recipient{mockRecipient(nil)}

	run, err := newTestService().MatchDonors(donors, recipients, nil, 100, 10)

	require.NoError(t, err)
	require.Len(t, run.Results, 5)

	ids := make([]int64, 0, len(run.Results))
	for _, r := range run.Results {
		ids = append(ids, r.DonorID)
	}
	assert.Equal(t, []int64{4, 3, 5, 2, 1}, ids)

	for i := 1; i < len(run.Results); i++ {
		prev, cur := run.Results[i-1], run.Results[i]
		if prev.Score == cur.Score {
			assert.LessOrEqual(t, prev.DistanceKm, cur.DistanceKm)
		} else {
			assert.Greater(t, prev.Score, cur.Score)
		}
	}
}

func TestMatchDonors_TopNTruncates(t *testing.T) {
	var donors []models.Donor
	for i := 1; i <= 8; i++ {
		donors = append(donors, mockDonor(map[string]interface{}{
			"id":       int64(i),
			"location": north(float64(i * 10)),
		}))
	}
	recipients := []models.Recipient{mockRecipient(nil)}

	run, err := newTestService().MatchDonors(donors, recipients, nil, 100, 3)

	require.NoError(t, err)
	require.Len(t, run.Results, 3)
	assert.Equal(t, int64(1), run.Results[0].DonorID)
	assert.Equal(t, 8, run.EligibleDonors)
}

func TestMatchDonors_FewerEligibleThanTopN(t *testing.T) {
	donors := []models.Donor{
		mockDonor(map[string]interface{}{"id": int64(1)}),
		mockDonor(map[string]interface{}{"id": int64(2), "location": north(30)}),
		mockDonor(map[string]interface{}{"id": int64(3), "location": north(60)}),
		mockDonor(map[string]interface{}{"id": int64(4), "available": false}),
	}
	recipients := []models.Recipient{mockRecipient(nil)}

	run, err := newTestService().MatchDonors(donors, recipients, nil, 100, 5)

	require.NoError(t, err)
	assert.Len(t, run.Results, 3)
}

func TestMatchDonors_NoEligibleDonors(t *testing.T) {
	donors := []models.Donor{mockDonor(map[string]interface{}{"blood_type": models.BloodTypeAB})}
	recipients := []models.Recipient{mockRecipient(nil)}

	run, err := newTestService().MatchDonors(donors, recipients, nil, 100, 5)

	require.NoError(t, err)
	assert.NotNil(t, run.Results)
	assert.Empty(t, run.Results)
}

func TestMatchDonors_TopNBelowOneUsesDefault(t *testing.T) {
	var donors []models.Donor
	for i := 1; i <= 7; i++ {
		donors = append(donors, mockDonor(map[string]interface{}{"id": int64(i)}))
	}
	recipients := []models.Recipient{mockRecipient(nil)}

	run, err := newTestService().MatchDonors(donors, recipients, nil, 100, 0)

	require.NoError(t, err)
	assert.Len(t, run.Results, DefaultTopN)
	assert.Equal(t, DefaultTopN, run.TopN)
}

func TestMatchDonors_InventoryLookup(t *testing.T) {
	donors := []models.Donor{mockDonor(nil)}
	recipients := []models.Recipient{mockRecipient(map[string]interface{}{"units_needed": 4})}
	inventory := []models.InventoryEntry{
		{BloodType: models.BloodTypeO, Rh: models.RhNegative, UnitsAvailable: 50},
		{BloodType: models.BloodTypeO, Rh: models.RhPositive, UnitsAvailable: 3},
		{BloodType: models.BloodTypeO, Rh: models.RhPositive, UnitsAvailable: 40},
	}

	run, err := newTestService().MatchDonors(donors, recipients, inventory, 100, 5)

	require.NoError(t, err)
	assert.Equal(t, 3, run.InventoryUnits, "first matching row wins")
	require.Len(t, run.Results, 1)
	assert.Contains(t, run.Results[0].Explanation, "Inventory for O+: 3 units (shortage 1)")

	run, err = newTestService().MatchDonors(donors, recipients, inventory[:1], 100, 5)

	require.NoError(t, err)
	assert.Equal(t, 0, run.InventoryUnits, "missing group is out of stock")
	assert.Contains(t, run.Results[0].Explanation, "Inventory for O+: 0 units (shortage 4)")
}

func TestMatchDonors_DoesNotMutateInputs(t *testing.T) {
	donors := []models.Donor{
		mockDonor(map[string]interface{}{"id": int64(1), "location": north(80)}),
		mockDonor(map[string]interface{}{"id": int64(2)}),
	}
	recipients := []models.Recipient{mockRecipient(nil)}
	before := append([]models.Donor(nil), donors...)

	_, err := newTestService().MatchDonors(donors, recipients, nil, 100, 5)

	require.NoError(t, err)
	assert.Equal(t, before, donors)
}

func TestMatchDonors_PackageFunction(t *testing.T) {
	donors := []models.Donor{mockDonor(map[string]interface{}{"last_donation": models.NeverDonated})}
	recipients := []models.Recipient{mockRecipient(nil)}

	results, err := MatchDonors(donors, recipients, nil, 100, 5)

	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = MatchDonors(donors, recipients, nil, 7, 5)
	assert.ErrorIs(t, err, models.ErrRecipientNotFound)
}
