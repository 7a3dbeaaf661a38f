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

// emailDispatchTimeout bounds SES calls so a slow dispatcher fails with a
// retryable error rather than hanging the request.
const emailDispatchTimeout = 10 * time.Second

// EmailSender dispatches account lifecycle mail. Tokens are passed in plain
// form here and only here; everything persisted is a one-way hash.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error
	SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error
}

// SESEmailService sends emails using AWS SES.
type SESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

func NewSESEmailService(region, fromAddress, baseURL string, logger *slog.Logger) (*SESEmailService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}, nil
}

// SendVerificationEmail mails the email verification link.
func (s *SESEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, token)

	textBody := fmt.Sprintf(`Verify your email address

Welcome to Centsible! To finish setting up your account, open the link below:

%s

The link expires at %s. If you didn't create this account, you can ignore this email.
`, link, expiresAt.UTC().Format(time.RFC1123))

	htmlBody := fmt.Sprintf(`<p>Welcome to Centsible!</p>
<p>To finish setting up your account, <a href="%s">verify your email address</a>, or open this link:</p>
<p><code>%s</code></p>
<p>The link expires at %s. If you didn't create this account, you can ignore this email.</p>`,
		link, link, expiresAt.UTC().Format(time.RFC1123))

	return s.send(ctx, email, "Verify your email address", textBody, htmlBody)
}

// SendPasswordResetEmail mails the password reset link.
func (s *SESEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)

	textBody := fmt.Sprintf(`Reset your password

Someone requested a password reset for your Centsible account. Open the link below to choose a new password:

%s

The link expires at %s. If you didn't request this, no action is needed; your password is unchanged.
`, link, expiresAt.UTC().Format(time.RFC1123))

	htmlBody := fmt.Sprintf(`<p>Someone requested a password reset for your Centsible account.</p>
<p><a href="%s">Choose a new password</a>, or open this link:</p>
<p><code>%s</code></p>
<p>The link expires at %s. If you didn't request this, no action is needed; your password is unchanged.</p>`,
		link, link, expiresAt.UTC().Format(time.RFC1123))

	return s.send(ctx, email, "Reset your password", textBody, htmlBody)
}

func (s *SESEmailService) send(ctx context.Context, email, subject, textBody, htmlBody string) error {
	ctx, cancel := context.WithTimeout(ctx, emailDispatchTimeout)
	defer cancel()

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
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
		s.logger.Error("failed to send email via SES",
			slog.String("subject", subject),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("subject", subject),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
