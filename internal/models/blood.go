// Package models defines the data structures for the blood bank matcher.
package models

import (
	"strings"
)

// BloodType represents an ABO blood group.
type BloodType string

const (
	BloodTypeO  BloodType = "O"
	BloodTypeA  BloodType = "A"
	BloodTypeB  BloodType = "B"
	BloodTypeAB BloodType = "AB"
)

// ValidBloodTypes returns all valid ABO blood groups.
func ValidBloodTypes() []BloodType {
	return []BloodType{
		BloodTypeO,
		BloodTypeA,
		BloodTypeB,
		BloodTypeAB,
	}
}

// IsValid checks if the blood type is one of O, A, B or AB.
func (b BloodType) IsValid() bool {
	for _, valid := range ValidBloodTypes() {
		if b == valid {
			return true
		}
	}
	return false
}

// ParseBloodType normalizes a raw ABO value such as " ab" or "o".
func ParseBloodType(s string) (BloodType, error) {
	bt := BloodType(strings.ToUpper(strings.TrimSpace(s)))
	if !bt.IsValid() {
		return "", ErrInvalidBloodType
	}
	return bt, nil
}

// RhFactor represents the Rh(D) antigen marker.
type RhFactor string

const (
	RhPositive RhFactor = "+"
	RhNegative RhFactor = "-"
)

// ValidRhFactors returns all valid Rh factors.
func ValidRhFactors() []RhFactor {
	return []RhFactor{RhPositive, RhNegative}
}

// IsValid checks if the Rh factor is + or -.
func (r RhFactor) IsValid() bool {
	for _, valid := range ValidRhFactors() {
		if r == valid {
			return true
		}
	}
	return false
}

// ParseRhFactor normalizes common spellings of the Rh factor.
func ParseRhFactor(s string) (RhFactor, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))

	rhMap := map[string]RhFactor{
		"+":        RhPositive,
		"pos":      RhPositive,
		"positive": RhPositive,
		"-":        RhNegative,
		"neg":      RhNegative,
		"negative": RhNegative,
	}

	if mapped, ok := rhMap[normalized]; ok {
		return mapped, nil
	}
	return "", ErrInvalidRhFactor
}

// GroupLabel renders a blood group the way blood banks write it, e.g. "AB-".
func GroupLabel(bt BloodType, rh RhFactor) string {
	return string(bt) + string(rh)
}

// GeoPoint is a WGS 84 coordinate in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
