// Package matcher ranks eligible blood donors for a recipient.
package matcher

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blood-bank-matcher/internal/models"
	"blood-bank-matcher/internal/utils"
)

// DefaultTopN is used when a request asks for fewer than one result.
const DefaultTopN = 5

// Service runs match requests. It holds no per-request state and is safe
// for concurrent use.
type Service struct {
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for run summaries.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the clock used for deferral checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new matcher service
func NewService(opts ...Option) *Service {
	s := &Service{
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = utils.GetLogger()
	}
	return s
}

// MatchDonors ranks donors for recipientID using the wall clock and the
// global logger.
func MatchDonors(donors []models.Donor, recipients []models.Recipient, inventory []models.InventoryEntry, recipientID int64, topN int) ([]models.MatchResult, error) {
	run, err := NewService().MatchDonors(donors, recipients, inventory, recipientID, topN)
	if err != nil {
		return nil, err
	}
	return run.Results, nil
}

// MatchDonors looks up the recipient, gates every donor, scores the eligible
// ones and returns the best topN ordered by score, nearest first on ties.
func (s *Service) MatchDonors(donors []models.Donor, recipients []models.Recipient, inventory []models.InventoryEntry, recipientID int64, topN int) (*models.MatchRun, error) {
	recip, ok := models.FindRecipient(recipients, recipientID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrRecipientNotFound, recipientID)
	}

	if topN < 1 {
		topN = DefaultTopN
	}

	// A group missing from inventory is out of stock
	invUnits, _ := models.UnitsFor(inventory, recip.BloodType, recip.Rh)

	now := s.now()
	run := &models.MatchRun{
		RequestID:        uuid.New().String(),
		RecipientID:      recip.ID,
		RecipientGroup:   recip.Group(),
		InventoryUnits:   invUnits,
		TopN:             topN,
		DonorsConsidered: len(donors),
		Skipped:          make(map[string]int),
		RanAt:            now,
	}

	results := make([]models.MatchResult, 0)
	for i := range donors {
		d := &donors[i]

		ok, reason := Eligible(d, recip, now)
		if !ok {
			run.Skipped[reason]++
			s.logger.Debug("Donor skipped",
				zap.String("request_id", run.RequestID),
				zap.Int64("donor_id", d.ID),
				zap.String("reason", reason),
			)
			continue
		}

		score := ScoreDonor(d, recip, invUnits)
		results = append(results, models.MatchResult{
			DonorID:     d.ID,
			Score:       score.Value,
			DistanceKm:  score.DistanceKm,
			Explanation: Explain(d, recip, invUnits, score),
		})
	}
	run.EligibleDonors = len(results)

	rankResults(results)
	if len(results) > topN {
		results = results[:topN]
	}
	run.Results = results

	s.logger.Info("Match run complete",
		zap.String("request_id", run.RequestID),
		zap.Int64("recipient_id", recip.ID),
		zap.String("recipient_group", run.RecipientGroup),
		zap.Int("inventory_units", invUnits),
		zap.Int("donors", run.DonorsConsidered),
		zap.Int("eligible", run.EligibleDonors),
		zap.Int("returned", len(results)),
	)

	return run, nil
}

// rankResults orders by score descending, then distance ascending.
func rankResults(results []models.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].Score > results[j].Score
	})
}
