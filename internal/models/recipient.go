// Package models defines the data structures for the blood bank matcher.
package models

// Recipient represents a patient waiting for blood.
type Recipient struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name,omitempty" db:"name"`
	BloodType   BloodType `json:"blood_type" db:"blood_type"`
	Rh          RhFactor  `json:"rh" db:"rh"`
	Location    GeoPoint  `json:"location"`
	UnitsNeeded int       `json:"units_needed" db:"units_needed"`
}

// Group returns the recipient's blood group label, e.g. "A+".
func (r *Recipient) Group() string {
	return GroupLabel(r.BloodType, r.Rh)
}

// FindRecipient returns the first recipient with the given id.
func FindRecipient(recipients []Recipient, id int64) (*Recipient, bool) {
	for i := range recipients {
		if recipients[i].ID == id {
			return &recipients[i], true
		}
	}
	return nil, false
}

// InventoryEntry is the stock level for one blood group.
type InventoryEntry struct {
	BloodType      BloodType `json:"blood_type" db:"blood_type"`
	Rh             RhFactor  `json:"rh" db:"rh"`
	UnitsAvailable int       `json:"units_available" db:"units_available"`
}

// Group returns the inventory row's blood group label.
func (e *InventoryEntry) Group() string {
	return GroupLabel(e.BloodType, e.Rh)
}

// UnitsFor returns units on hand for a blood group. The first matching row
// wins; a group with no row has zero units.
func UnitsFor(inventory []InventoryEntry, bt BloodType, rh RhFactor) (units int, found bool) {
	for _, e := range inventory {
		if e.BloodType == bt && e.Rh == rh {
			return e.UnitsAvailable, true
		}
	}
	return 0, false
}
