// Package ses provides email notification services via AWS SES
package ses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	appConfig "blood-bank-matcher/internal/config"
	"blood-bank-matcher/internal/models"
	"blood-bank-matcher/internal/utils"
)

// ErrNoSender is returned when no SES sender address is configured.
var ErrNoSender = errors.New("SES sender email not configured")

// Client is the subset of the SES API used here.
type Client interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Service handles SES email operations
type Service struct {
	client    Client
	fromEmail string
}

// EmailParams represents parameters for sending an email
type EmailParams struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	ReplyTo  string
}

// MatchReport is the data rendered into a match report email.
type MatchReport struct {
	RequestID      string
	RecipientID    int64
	RecipientName  string
	RecipientGroup string
	UnitsNeeded    int
	InventoryUnits int
	Eligible       int
	Considered     int
	Rows           []models.MatchRow
	RanAt          time.Time
}

// SendEmailResult contains the result of sending an email
type SendEmailResult struct {
	MessageID string
	SentAt    time.Time
}

// NewService creates a new SES service
func NewService(ctx context.Context, appCfg *appConfig.Config) (*Service, error) {
	if appCfg.SESSenderEmail == "" {
		return nil, ErrNoSender
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(appCfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewServiceWithClient(ses.NewFromConfig(cfg), appCfg.SESSenderEmail), nil
}

// NewServiceWithClient builds a Service around an existing client.
func NewServiceWithClient(client Client, fromEmail string) *Service {
	return &Service{client: client, fromEmail: fromEmail}
}

// SendEmail sends a basic email
func (s *Service) SendEmail(ctx context.Context, params EmailParams) (*SendEmailResult, error) {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{params.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(params.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}

	if params.HTMLBody != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(params.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.TextBody != "" {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(params.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.ReplyTo != "" {
		input.ReplyToAddresses = []string{params.ReplyTo}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		utils.GetLogger().Error("Failed to send email",
			zap.String("to", params.To),
			zap.String("subject", params.Subject),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(result.MessageId)
	utils.GetLogger().Info("Email sent successfully",
		zap.String("to", params.To),
		zap.String("subject", params.Subject),
		zap.String("messageId", messageID),
	)

	return &SendEmailResult{
		MessageID: messageID,
		SentAt:    time.Now(),
	}, nil
}

// SendMatchReport emails the ranked donors of a match run.
func (s *Service) SendMatchReport(ctx context.Context, to string, recipient *models.Recipient, run *models.MatchRun, donors []models.Donor) (*SendEmailResult, error) {
	report := BuildMatchReport(recipient, run, donors)

	htmlBody, err := renderMatchReportHTML(report)
	if err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	subject := fmt.Sprintf("Donor matches for recipient %d (%s): %d found",
		report.RecipientID, report.RecipientGroup, len(report.Rows))

	return s.SendEmail(ctx, EmailParams{
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: renderMatchReportText(report),
	})
}

// BuildMatchReport creates report data from a match run.
func BuildMatchReport(recipient *models.Recipient, run *models.MatchRun, donors []models.Donor) MatchReport {
	return MatchReport{
		RequestID:      run.RequestID,
		RecipientID:    recipient.ID,
		RecipientName:  recipient.Name,
		RecipientGroup: recipient.Group(),
		UnitsNeeded:    recipient.UnitsNeeded,
		InventoryUnits: run.InventoryUnits,
		Eligible:       run.EligibleDonors,
		Considered:     run.DonorsConsidered,
		Rows:           run.Rows(donors),
		RanAt:          run.RanAt,
	}
}

const matchReportTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; max-width: 700px; margin: 0 auto; padding: 20px; }
        .header { background: #b71c1c; color: white; padding: 24px; border-radius: 10px 10px 0 0; }
        .header h1 { margin: 0; font-size: 22px; }
        .content { background: #f9f9f9; padding: 24px; border-radius: 0 0 10px 10px; }
        table { width: 100%; border-collapse: collapse; background: white; }
        th, td { padding: 8px; border-bottom: 1px solid #eee; text-align: left; font-size: 14px; }
        th { background: #fce4ec; }
        .footer { text-align: center; margin-top: 24px; color: #999; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Donor matches for recipient {{.RecipientID}}{{if .RecipientName}} ({{.RecipientName}}){{end}}</h1>
        <p>Group {{.RecipientGroup}}, {{.UnitsNeeded}} units needed, {{.InventoryUnits}} units in stock</p>
    </div>
    <div class="content">
        {{if .Rows}}
        <table>
            <tr><th>#</th><th>Donor</th><th>Blood</th><th>Distance (km)</th><th>Score</th><th>Explanation</th></tr>
            {{range $i, $r := .Rows}}
            <tr>
                <td>{{inc $i}}</td>
                <td>{{$r.DonorID}}{{if $r.Name}} {{$r.Name}}{{end}}</td>
                <td>{{$r.Blood}}</td>
                <td>{{printf "%.1f" $r.DistanceKm}}</td>
                <td>{{printf "%.3f" $r.Score}}</td>
                <td>{{$r.Explanation}}</td>
            </tr>
            {{end}}
        </table>
        {{else}}
        <p>No eligible donors found under current rules.</p>
        {{end}}
        <p>{{.Eligible}} of {{.Considered}} donors eligible.</p>
    </div>
    <div class="footer">
        <p>Request {{.RequestID}}</p>
    </div>
</body>
</html>`

var reportFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

func renderMatchReportHTML(report MatchReport) (string, error) {
	t, err := template.New("match_report").Funcs(reportFuncs).Parse(matchReportTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func renderMatchReportText(report MatchReport) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Recipient %d", report.RecipientID)
	if report.RecipientName != "" {
		fmt.Fprintf(&buf, " (%s)", report.RecipientName)
	}
	fmt.Fprintf(&buf, ", group %s, %d units needed, %d units in stock\n\n",
		report.RecipientGroup, report.UnitsNeeded, report.InventoryUnits)

	if len(report.Rows) == 0 {
		buf.WriteString("No eligible donors found under current rules.\n")
	}

	for i, r := range report.Rows {
		fmt.Fprintf(&buf, "%d. Donor %d", i+1, r.DonorID)
		if r.Name != "" {
			fmt.Fprintf(&buf, " %s", r.Name)
		}
		fmt.Fprintf(&buf, " (%s)\n", r.Blood)
		fmt.Fprintf(&buf, "   Distance: %.1f km, Score: %.3f\n", r.DistanceKm, r.Score)
		fmt.Fprintf(&buf, "   %s\n\n", r.Explanation)
	}

	fmt.Fprintf(&buf, "%d of %d donors eligible. Request %s\n",
		report.Eligible, report.Considered, report.RequestID)

	return buf.String()
}
