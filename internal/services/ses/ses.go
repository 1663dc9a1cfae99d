// Package ses emails members about match proposals and outcomes via AWS SES.
package ses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	"matchmaking-engine/internal/config"
	"matchmaking-engine/internal/models"
	"matchmaking-engine/internal/utils"
)

// EmailClient is the subset of the SES client used here.
type EmailClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// MemberLookup resolves event recipients to addresses.
type MemberLookup interface {
	GetProfile(ctx context.Context, memberID int64) (*models.MemberProfile, error)
}

// Service sends match emails.
type Service struct {
	client       EmailClient
	members      MemberLookup
	fromEmail    string
	dashboardURL string
}

// EmailParams represents parameters for sending an email
type EmailParams struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// MatchEmail is the data rendered into a match notification.
type MatchEmail struct {
	Name         string
	Headline     string
	Body         string
	MatchID      int64
	DashboardURL string
}

// NewService creates an SES notifier using the default AWS credential chain.
func NewService(ctx context.Context, cfg *config.Config, members MemberLookup) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithClient(ses.NewFromConfig(awsCfg), members, cfg.SESSenderEmail, cfg.DashboardURL), nil
}

// NewWithClient builds a Service around an existing client.
func NewWithClient(client EmailClient, members MemberLookup, fromEmail, dashboardURL string) *Service {
	return &Service{
		client:       client,
		members:      members,
		fromEmail:    fromEmail,
		dashboardURL: dashboardURL,
	}
}

// Notify emails every recipient of the event that has an address on file.
// Members without an email are skipped; send failures are joined into one error.
func (s *Service) Notify(ctx context.Context, event models.MatchEvent) error {
	var errs []error
	for _, id := range event.Recipients {
		profile, err := s.members.GetProfile(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("recipient %d: %w", id, err))
			continue
		}
		if profile.Email == "" {
			utils.Logger.Debug("Skipping email for member without address", zap.Int64("member_id", id))
			continue
		}

		params, err := s.buildEmail(profile, event)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := s.SendEmail(ctx, params); err != nil {
			errs = append(errs, fmt.Errorf("recipient %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// SendEmail sends a basic email and returns the SES message id.
func (s *Service) SendEmail(ctx context.Context, params EmailParams) (string, error) {
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

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		utils.Logger.Error("Failed to send email",
			zap.String("to", params.To),
			zap.String("subject", params.Subject),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(result.MessageId)
	utils.Logger.Info("Email sent successfully",
		zap.String("to", params.To),
		zap.String("subject", params.Subject),
		zap.String("messageId", messageID),
	)
	return messageID, nil
}

func (s *Service) buildEmail(p *models.MemberProfile, event models.MatchEvent) (EmailParams, error) {
	data := MatchEmail{
		Name:         p.Name,
		MatchID:      event.MatchID,
		DashboardURL: s.dashboardURL,
	}
	var subject string
	switch event.Type {
	case models.EventProposalDispatched, models.EventSenderInitiated:
		subject = "You have a new match proposal"
		data.Headline = "Someone new is waiting for your answer"
		data.Body = "Open your dashboard to accept or decline before the response window closes."
	case models.EventMatchAccepted:
		subject = "It's a match!"
		data.Headline = "Both of you said yes"
		data.Body = "Your matchmaker will be in touch with the next steps."
	case models.EventMatchRejected:
		subject = "Update on your match proposal"
		data.Headline = "This proposal did not work out"
		data.Body = "We will keep looking for someone who fits what you are looking for."
	default:
		return EmailParams{}, fmt.Errorf("no email template for event type %q", event.Type)
	}

	html, err := renderHTML(data)
	if err != nil {
		return EmailParams{}, fmt.Errorf("failed to render email template: %w", err)
	}
	return EmailParams{
		To:       p.Email,
		Subject:  subject,
		HTMLBody: html,
		TextBody: renderText(data),
	}, nil
}

var matchTemplate = template.Must(template.New("match_notification").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #c2185b; color: white; padding: 24px; border-radius: 10px 10px 0 0; text-align: center; }
        .content { background: #f9f9f9; padding: 24px; border-radius: 0 0 10px 10px; }
        .cta-button { display: inline-block; background: #c2185b; color: white; padding: 12px 24px; text-decoration: none; border-radius: 8px; font-weight: bold; }
    </style>
</head>
<body>
    <div class="header"><h1>{{.Headline}}</h1></div>
    <div class="content">
        <p>Hi {{.Name}},</p>
        <p>{{.Body}}</p>
        {{if .DashboardURL}}
        <p style="text-align: center;"><a href="{{.DashboardURL}}/matches/{{.MatchID}}" class="cta-button">View proposal</a></p>
        {{end}}
    </div>
</body>
</html>`))

func renderHTML(data MatchEmail) (string, error) {
	var buf bytes.Buffer
	if err := matchTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderText(data MatchEmail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n%s.\n%s\n\n", data.Name, data.Headline, data.Body)
	if data.DashboardURL != "" {
		fmt.Fprintf(&b, "View proposal: %s/matches/%d\n\n", data.DashboardURL, data.MatchID)
	}
	b.WriteString("Best regards,\nThe matchmaking team\n")
	return b.String()
}
