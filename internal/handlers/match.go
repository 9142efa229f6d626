// Package handlers provides the API handlers for the blood bank matcher.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"blood-bank-matcher/internal/models"
	"blood-bank-matcher/internal/services/dataset"
	"blood-bank-matcher/internal/services/matcher"
	"blood-bank-matcher/internal/utils"
)

// MaxTopN caps how many donors a single API request may ask for.
const MaxTopN = 10

// NoMatchesMessage is returned when no donor passes the eligibility gate.
const NoMatchesMessage = "No eligible donors found under current rules."

// ErrInvalidRequest marks malformed match requests.
var ErrInvalidRequest = errors.New("invalid match request")

// DatasetSource provides a snapshot of the input tables.
type DatasetSource interface {
	Load(ctx context.Context) (*dataset.Dataset, error)
}

// MatchRequest is the body of a match request.
type MatchRequest struct {
	RecipientID int64 `json:"recipient_id"`
	Top         int   `json:"top"`
}

// MatchResponse is the API view of one match run.
type MatchResponse struct {
	RequestID      string            `json:"request_id"`
	RecipientID    int64             `json:"recipient_id"`
	RecipientGroup string            `json:"recipient_group"`
	UnitsNeeded    int               `json:"units_needed"`
	InventoryUnits int               `json:"inventory_units"`
	TopN           int               `json:"top_n"`
	Eligible       int               `json:"eligible_donors"`
	Matches        []models.MatchRow `json:"matches"`
	Message        string            `json:"message,omitempty"`
}

// ClampTop bounds a requested result count to 1..MaxTopN. Zero or
// negative values use defaultTop.
func ClampTop(top, defaultTop int) int {
	if top < 1 {
		top = defaultTop
	}
	if top < 1 {
		top = matcher.DefaultTopN
	}
	if top > MaxTopN {
		top = MaxTopN
	}
	return top
}

// MatchRunner loads the tables and ranks donors for one recipient.
type MatchRunner struct {
	source     DatasetSource
	matcher    *matcher.Service
	defaultTop int
}

// NewMatchRunner creates a MatchRunner.
func NewMatchRunner(source DatasetSource, svc *matcher.Service, defaultTop int) *MatchRunner {
	return &MatchRunner{source: source, matcher: svc, defaultTop: defaultTop}
}

// Match runs the matcher for req. Unknown recipients return an error
// wrapping models.ErrRecipientNotFound.
func (m *MatchRunner) Match(ctx context.Context, req MatchRequest) (*MatchResponse, error) {
	if req.RecipientID <= 0 {
		return nil, fmt.Errorf("%w: recipient_id must be a positive integer", ErrInvalidRequest)
	}

	ds, err := m.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tables: %w", err)
	}

	top := ClampTop(req.Top, m.defaultTop)
	run, err := m.matcher.MatchDonors(ds.Donors, ds.Recipients, ds.Inventory, req.RecipientID, top)
	if err != nil {
		return nil, err
	}

	recipient, _ := models.FindRecipient(ds.Recipients, req.RecipientID)

	resp := &MatchResponse{
		RequestID:      run.RequestID,
		RecipientID:    run.RecipientID,
		RecipientGroup: run.RecipientGroup,
		UnitsNeeded:    recipient.UnitsNeeded,
		InventoryUnits: run.InventoryUnits,
		TopN:           run.TopN,
		Eligible:       run.EligibleDonors,
		Matches:        run.Rows(ds.Donors),
	}
	if len(resp.Matches) == 0 {
		resp.Message = NoMatchesMessage
	}

	return resp, nil
}

// Recipients lists the recipients table.
func (m *MatchRunner) Recipients(ctx context.Context) ([]models.Recipient, error) {
	ds, err := m.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tables: %w", err)
	}
	return ds.Recipients, nil
}

// Donors lists the donors table.
func (m *MatchRunner) Donors(ctx context.Context) ([]models.Donor, error) {
	ds, err := m.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tables: %w", err)
	}
	return ds.Donors, nil
}

// StatusFor maps a match error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrRecipientNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// MatchHandler serves match requests from API Gateway.
type MatchHandler struct {
	runner *MatchRunner
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(runner *MatchRunner) *MatchHandler {
	return &MatchHandler{runner: runner}
}

// Handle processes GET ?recipient_id=N&top=K and POST {"recipient_id":N,"top":K}.
func (h *MatchHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := utils.GetLogger()

	headers := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type",
		"Access-Control-Allow-Methods": "GET,POST,OPTIONS",
		"Content-Type":                 "application/json",
	}

	if request.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    headers,
		}, nil
	}

	req, err := parseMatchRequest(request)
	if err != nil {
		return errorResponse(headers, http.StatusBadRequest, err.Error())
	}

	resp, err := h.runner.Match(ctx, req)
	if err != nil {
		status := StatusFor(err)
		if status == http.StatusInternalServerError {
			logger.Error("Match request failed",
				zap.Int64("recipient_id", req.RecipientID),
				zap.Error(err),
			)
			return errorResponse(headers, status, "Failed to match donors")
		}
		return errorResponse(headers, status, err.Error())
	}

	body, _ := json.Marshal(resp)

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

func parseMatchRequest(request events.APIGatewayProxyRequest) (MatchRequest, error) {
	var req MatchRequest

	if request.HTTPMethod == http.MethodPost && strings.TrimSpace(request.Body) != "" {
		if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
			return req, fmt.Errorf("%w: invalid JSON body", ErrInvalidRequest)
		}
		return req, nil
	}

	if raw := request.QueryStringParameters["recipient_id"]; raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return req, fmt.Errorf("%w: recipient_id must be an integer", ErrInvalidRequest)
		}
		req.RecipientID = id
	}

	if raw := request.QueryStringParameters["top"]; raw != "" {
		top, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("%w: top must be an integer", ErrInvalidRequest)
		}
		req.Top = top
	}

	return req, nil
}

// errorResponse creates an error response.
func errorResponse(headers map[string]string, statusCode int, message string) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": message})
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}
