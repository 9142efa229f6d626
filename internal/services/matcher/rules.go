package matcher

import (
	"time"

	"blood-bank-matcher/internal/models"
)

// WholeBloodDeferralDays is the minimum gap between whole-blood donations.
const WholeBloodDeferralDays = 56

// aboCompat lists the recipient groups each donor group can give to.
var aboCompat = map[models.BloodType][]models.BloodType{
	models.BloodTypeO:  {models.BloodTypeO, models.BloodTypeA, models.BloodTypeB, models.BloodTypeAB},
	models.BloodTypeA:  {models.BloodTypeA, models.BloodTypeAB},
	models.BloodTypeB:  {models.BloodTypeB, models.BloodTypeAB},
	models.BloodTypeAB: {models.BloodTypeAB},
}

// RhCompatible reports whether a donor Rh factor can be given to a recipient.
// Rh- donors are universal; Rh+ donors only give to Rh+ recipients.
func RhCompatible(donor, recipient models.RhFactor) bool {
	if donor == models.RhNegative {
		return true
	}
	return recipient == models.RhPositive
}

// ABOCompatible reports whether a donor ABO group can be given to a recipient.
func ABOCompatible(donor, recipient models.BloodType) bool {
	for _, bt := range aboCompat[donor] {
		if bt == recipient {
			return true
		}
	}
	return false
}

// Eligible gates a donor for a recipient. Checks run in order (ABO, Rh,
// availability, deferral) and the first failure is the reported reason.
func Eligible(d *models.Donor, r *models.Recipient, now time.Time) (bool, string) {
	if !ABOCompatible(d.BloodType, r.BloodType) {
		return false, models.ReasonABOIncompatible
	}
	if !RhCompatible(d.Rh, r.Rh) {
		return false, models.ReasonRhIncompatible
	}
	if !d.Available {
		return false, models.ReasonUnavailable
	}
	if d.DaysSinceDonation(now) < WholeBloodDeferralDays {
		return false, models.ReasonDeferral
	}
	return true, ""
}
