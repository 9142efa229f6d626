// Package models defines the data structures for the blood bank matcher.
package models

import (
	"errors"
	"strings"
	"time"
)

// Common errors
var (
	ErrRecipientNotFound  = errors.New("recipient not found")
	ErrInvalidBloodType   = errors.New("blood type must be one of O, A, B, AB")
	ErrInvalidRhFactor    = errors.New("rh factor must be + or -")
	ErrInvalidLatitude    = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude   = errors.New("longitude must be between -180 and 180")
	ErrInvalidUnits       = errors.New("units cannot be negative")
	ErrInvalidID          = errors.New("id must be a positive integer")
	ErrDuplicateDonorID   = errors.New("duplicate donor id")
	ErrDuplicateRecipient = errors.New("duplicate recipient id")
)

// DonationDateLayout is the calendar date format used in donor tables.
const DonationDateLayout = "2006-01-02"

// unpaddedDateLayout also accepts single-digit months and days, e.g. 2025-3-4.
const unpaddedDateLayout = "2006-1-2"

// NeverDonated is the far-past sentinel for donors with no usable
// last-donation date. Such donors are always outside the deferral window.
var NeverDonated = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseAvailability interprets a raw availability cell. Only "0", "false"
// and "no" (any case) mean unavailable; blanks and anything else count as
// available.
func ParseAvailability(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "false", "no":
		return false
	default:
		return true
	}
}

// ParseDonationDate parses a YYYY-MM-DD date. Blank or malformed values
// return NeverDonated with ok=false.
func ParseDonationDate(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NeverDonated, false
	}

	for _, layout := range []string{DonationDateLayout, unpaddedDateLayout} {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return NeverDonated, false
}

// ValidateDonor validates a parsed donor record.
func ValidateDonor(d *Donor) error {
	if d.ID <= 0 {
		return ErrInvalidID
	}
	if !d.BloodType.IsValid() {
		return ErrInvalidBloodType
	}
	if !d.Rh.IsValid() {
		return ErrInvalidRhFactor
	}
	return validateLocation(d.Location)
}

// ValidateRecipient validates a parsed recipient record.
func ValidateRecipient(r *Recipient) error {
	if r.ID <= 0 {
		return ErrInvalidID
	}
	if !r.BloodType.IsValid() {
		return ErrInvalidBloodType
	}
	if !r.Rh.IsValid() {
		return ErrInvalidRhFactor
	}
	if r.UnitsNeeded < 0 {
		return ErrInvalidUnits
	}
	return validateLocation(r.Location)
}

// ValidateInventoryEntry validates a parsed inventory row.
func ValidateInventoryEntry(e *InventoryEntry) error {
	if !e.BloodType.IsValid() {
		return ErrInvalidBloodType
	}
	if !e.Rh.IsValid() {
		return ErrInvalidRhFactor
	}
	if e.UnitsAvailable < 0 {
		return ErrInvalidUnits
	}
	return nil
}

func validateLocation(p GeoPoint) error {
	if p.Lat < -90 || p.Lat > 90 {
		return ErrInvalidLatitude
	}
	if p.Lon < -180 || p.Lon > 180 {
		return ErrInvalidLongitude
	}
	return nil
}
