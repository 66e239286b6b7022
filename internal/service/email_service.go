package service

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"kidquest/internal/models"
)

// sesAPI is the subset of the SES client the email service uses
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailConfig configures the SES sender
type EmailConfig struct {
	AWSRegion  string
	FromEmail  string
	FromName   string
	AppBaseURL string
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	logger     *zap.Logger
}

// NewEmailService creates a new email service.
// An empty FromEmail yields a disabled service that only logs.
func NewEmailService(ctx context.Context, cfg EmailConfig, logger *zap.Logger) (*EmailService, error) {
	if cfg.FromEmail == "" {
		logger.Info("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, logger: logger}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("Email service enabled",
		zap.String("from", cfg.FromEmail),
		zap.String("region", cfg.AWSRegion))

	return newEmailServiceWithClient(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
}

func newEmailServiceWithClient(client sesAPI, cfg EmailConfig, logger *zap.Logger) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		appBaseURL: cfg.AppBaseURL,
		enabled:    true,
		logger:     logger,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// NotifyLinkRequest tells target that requester wants to link accounts
func (s *EmailService) NotifyLinkRequest(ctx context.Context, target, requester *models.User) error {
	if !s.enabled {
		s.logger.Debug("Skipping email send (service disabled)",
			zap.String("kind", "link_request"), zap.Int64("to_user", target.ID))
		return nil
	}

	link := s.appBaseURL + "/dashboard"
	subject := fmt.Sprintf("%s wants to link accounts on Kid Quest", requester.Name)
	htmlBody := fmt.Sprintf(emailLayout, "New link request", fmt.Sprintf(`
			<p>Hi %s,</p>
			<p><strong>%s</strong> (%s) has asked to link their %s account with yours.</p>
			<p>Open your dashboard to approve or reject the request:</p>
			<p style="text-align:center;margin:24px 0;"><a href="%s" style="background:#6d28d9;color:#ffffff;padding:10px 22px;border-radius:6px;text-decoration:none;">Review request</a></p>`,
		html.EscapeString(target.Name), html.EscapeString(requester.Name),
		html.EscapeString(requester.Email), requester.Role, link))

	textBody := fmt.Sprintf(`Hi %s,

%s (%s) has asked to link their %s account with yours.

Open your dashboard to approve or reject the request:
%s
`+emailFooterText, target.Name, requester.Name, requester.Email, requester.Role, link)

	return s.sendEmail(ctx, target.Email, subject, htmlBody, textBody)
}

// NotifyLinkResponse tells requester how responder answered their link request
func (s *EmailService) NotifyLinkResponse(ctx context.Context, requester, responder *models.User, status string) error {
	if !s.enabled {
		s.logger.Debug("Skipping email send (service disabled)",
			zap.String("kind", "link_response"), zap.Int64("to_user", requester.ID))
		return nil
	}

	outcome := "approved"
	if status != models.LinkStatusApproved {
		outcome = "declined"
	}

	subject := fmt.Sprintf("Your link request was %s", outcome)
	htmlBody := fmt.Sprintf(emailLayout, "Link request "+outcome, fmt.Sprintf(`
			<p>Hi %s,</p>
			<p><strong>%s</strong> has %s your request to link accounts.</p>
			<p style="text-align:center;margin:24px 0;"><a href="%s/dashboard" style="background:#6d28d9;color:#ffffff;padding:10px 22px;border-radius:6px;text-decoration:none;">Open Kid Quest</a></p>`,
		html.EscapeString(requester.Name), html.EscapeString(responder.Name), outcome, s.appBaseURL))

	textBody := fmt.Sprintf(`Hi %s,

%s has %s your request to link accounts.

Open Kid Quest: %s/dashboard
`+emailFooterText, requester.Name, responder.Name, outcome, s.appBaseURL)

	return s.sendEmail(ctx, requester.Email, subject, htmlBody, textBody)
}

// emailLayout takes a heading and an HTML fragment. Styles are inline since
// many mail clients drop <style> blocks.
const emailLayout = `<!DOCTYPE html>
<html>
<body style="margin:0;background:#f4f1fb;font-family:Verdana,sans-serif;color:#2d2a32;">
<table role="presentation" width="100%%" cellpadding="0" cellspacing="0">
<tr><td align="center" style="padding:24px 12px;">
<table role="presentation" width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;">
<tr><td style="background:#6d28d9;color:#ffffff;padding:18px 24px;border-radius:8px 8px 0 0;font-size:20px;">%s</td></tr>
<tr><td style="padding:24px;line-height:1.5;">%s</td></tr>
<tr><td style="padding:12px 24px;font-size:11px;color:#7a7485;">Sent automatically by Kid Quest. Replies are not read.</td></tr>
</table>
</td></tr>
</table>
</body>
</html>
`

const emailFooterText = `
--
Sent automatically by Kid Quest. Replies are not read.
`

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	fields := []zap.Field{zap.String("to", toEmail), zap.String("subject", subject)}
	if result != nil && result.MessageId != nil {
		fields = append(fields, zap.String("message_id", *result.MessageId))
	}
	s.logger.Info("Email sent", fields...)
	return nil
}
