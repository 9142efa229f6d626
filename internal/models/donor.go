// Package models defines the data structures for the blood bank matcher.
package models

import (
	"time"
)

// Donor represents a registered blood donor.
type Donor struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	BloodType    BloodType `json:"blood_type" db:"blood_type"`
	Rh           RhFactor  `json:"rh" db:"rh"`
	Location     GeoPoint  `json:"location"`
	Available    bool      `json:"available" db:"available"`
	LastDonation time.Time `json:"last_donation_date" db:"last_donation_date"`
}

// Group returns the donor's blood group label, e.g. "O-".
func (d *Donor) Group() string {
	return GroupLabel(d.BloodType, d.Rh)
}

// HasDonated reports whether the donor has a known last donation date.
func (d *Donor) HasDonated() bool {
	return d.LastDonation.After(NeverDonated)
}

// DaysSinceDonation returns whole days elapsed between the last donation
// and now. Partial days are truncated.
func (d *Donor) DaysSinceDonation(now time.Time) int {
	last := d.LastDonation
	if last.IsZero() {
		last = NeverDonated
	}
	return int(now.Sub(last).Hours() / 24)
}

// IndexDonors builds an id lookup over a donor table.
func IndexDonors(donors []Donor) map[int64]*Donor {
	index := make(map[int64]*Donor, len(donors))
	for i := range donors {
		if _, seen := index[donors[i].ID]; !seen {
			index[donors[i].ID] = &donors[i]
		}
	}
	return index
}

// BulkInsertResult contains the results of a bulk insert operation.
type BulkInsertResult struct {
	InsertedCount int      `json:"inserted_count"`
	FailedCount   int      `json:"failed_count"`
	Errors        []string `json:"errors,omitempty"`
}
