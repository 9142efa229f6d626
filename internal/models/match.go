// Package models defines the data structures for the blood bank matcher.
package models

import (
	"math"
	"strings"
	"time"
)

// Ineligibility reasons reported by the donation gate.
const (
	ReasonABOIncompatible = "ABO incompatible"
	ReasonRhIncompatible  = "Rh incompatible"
	ReasonUnavailable     = "Donor unavailable"
	ReasonDeferral        = "Within deferral window"
)

// MatchResult is one ranked donor recommendation.
type MatchResult struct {
	DonorID     int64    `json:"donor_id"`
	Score       float64  `json:"score"`
	DistanceKm  float64  `json:"distance_km"`
	Explanation []string `json:"explanation"`
}

// ExplanationText joins the explanation facts into a single line.
func (m *MatchResult) ExplanationText() string {
	return strings.Join(m.Explanation, "; ")
}

// MatchRun summarizes a single match request.
type MatchRun struct {
	RequestID        string         `json:"request_id"`
	RecipientID      int64          `json:"recipient_id"`
	RecipientGroup   string         `json:"recipient_group"`
	InventoryUnits   int            `json:"inventory_units"`
	TopN             int            `json:"top_n"`
	DonorsConsidered int            `json:"donors_considered"`
	EligibleDonors   int            `json:"eligible_donors"`
	Skipped          map[string]int `json:"skipped,omitempty"`
	Results          []MatchResult  `json:"results"`
	RanAt            time.Time      `json:"ran_at"`
}

// MatchRow is a display-ready result enriched with donor details.
type MatchRow struct {
	DonorID     int64   `json:"donor_id"`
	Name        string  `json:"name"`
	Blood       string  `json:"blood"`
	DistanceKm  float64 `json:"distance_km"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// Rows joins the run's results with donor names and groups, rounding the
// distance to 0.1 km and the score to 3 decimals.
func (r *MatchRun) Rows(donors []Donor) []MatchRow {
	index := IndexDonors(donors)
	rows := make([]MatchRow, 0, len(r.Results))

	for _, res := range r.Results {
		row := MatchRow{
			DonorID:     res.DonorID,
			DistanceKm:  roundTo(res.DistanceKm, 1),
			Score:       roundTo(res.Score, 3),
			Explanation: res.ExplanationText(),
		}
		if d, ok := index[res.DonorID]; ok {
			row.Name = d.Name
			row.Blood = d.Group()
		}
		rows = append(rows, row)
	}

	return rows
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
