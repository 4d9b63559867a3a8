package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailService is the transactional-email collaborator. The identity
// service hands it a recipient, a token and an expiry; delivery is not this
// subsystem's concern.
type EmailService interface {
	SendVerificationEmail(ctx context.Context, email, name, token string, expiresAt time.Time) error
	SendPasswordResetEmail(ctx context.Context, email, name, token string, expiresAt time.Time) error
}

// AWSSESEmailService sends emails using AWS SES.
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	frontendURL string
	logger      *slog.Logger
}

func NewAWSSESEmailService(region, fromAddress, frontendURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		frontendURL: frontendURL,
		logger:      logger,
	}, nil
}

// SendVerificationEmail sends the email-verification link.
func (s *AWSSESEmailService) SendVerificationEmail(ctx context.Context, email, name, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, token)

	textBody := fmt.Sprintf(`Hi %s,

Welcome to GeekHeaven! Please verify your email address by clicking the link below:

%s

This link will expire in 24 hours. If you didn't create this account, please ignore this email.

Best regards,
GeekHeaven Team
`, name, link)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f4f4f4;">
  <div style="max-width: 600px; margin: 0 auto; background-color: #ffffff; padding: 40px;">
    <h2 style="color: #333333;">Hi %s!</h2>
    <p style="color: #666666; font-size: 16px; line-height: 1.5;">
      Welcome to GeekHeaven! Please verify your email address to complete your account setup.
    </p>
    <div style="text-align: center; margin: 30px 0;">
      <a href="%s" style="background-color: #0066cc; color: #ffffff; padding: 15px 30px; text-decoration: none; border-radius: 5px; font-weight: bold; display: inline-block;">Verify Email Address</a>
    </div>
    <p style="color: #999999; font-size: 14px;">
      This link will expire in 24 hours. If you didn't create this account, please ignore this email.
    </p>
  </div>
</body>
</html>`, name, link)

	return s.send(ctx, email, "Verify your GeekHeaven account", textBody, htmlBody)
}

// SendPasswordResetEmail sends the password-reset link.
func (s *AWSSESEmailService) SendPasswordResetEmail(ctx context.Context, email, name, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)

	textBody := fmt.Sprintf(`Hi %s,

You requested to reset your password. Click the link below to set a new password:

%s

This link will expire in 30 minutes. If you didn't request this, please ignore this email.

Best regards,
GeekHeaven Team
`, name, link)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f4f4f4;">
  <div style="max-width: 600px; margin: 0 auto; background-color: #ffffff; padding: 40px;">
    <h2 style="color: #333333;">Hi %s!</h2>
    <p style="color: #666666; font-size: 16px; line-height: 1.5;">
      You requested to reset your GeekHeaven password. Click the button below to set a new one.
    </p>
    <div style="text-align: center; margin: 30px 0;">
      <a href="%s" style="background-color: #0066cc; color: #ffffff; padding: 15px 30px; text-decoration: none; border-radius: 5px; font-weight: bold; display: inline-block;">Reset Password</a>
    </div>
    <p style="color: #999999; font-size: 14px;">
      This link will expire in 30 minutes. If you didn't request this, please ignore this email.
    </p>
  </div>
</body>
</html>`, name, link)

	return s.send(ctx, email, "Reset your GeekHeaven password", textBody, htmlBody)
}

func (s *AWSSESEmailService) send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send email via SES", slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}
