package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// EmailService sends transactional emails.
type EmailService interface {
	SendWelcome(ctx context.Context, toEmail, username string) error
}

// NoopEmailService is used when no email provider is configured.
type NoopEmailService struct{}

func (s *NoopEmailService) SendWelcome(ctx context.Context, toEmail, username string) error {
	log.Printf("[EmailService] noop send welcome to=%s", toEmail)
	return nil
}

// ResendEmailService sends emails via Resend REST API.
type ResendEmailService struct {
	from   string
	client *resend.Client
}

func NewResendEmailService(apiKey, from string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

func (s *ResendEmailService) SendWelcome(ctx context.Context, toEmail, username string) error {
	if toEmail == "" {
		return fmt.Errorf("toEmail is required")
	}
	name := strings.TrimSpace(username)
	if name == "" {
		name = "there"
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "Welcome to StudyQuiz",
		Text:    fmt.Sprintf("Hi %s, your account is ready. Generate your first quiz from any topic or study guide.", name),
		Html:    fmt.Sprintf("<p>Hi <strong>%s</strong>, your account is ready.</p><p>Generate your first quiz from any topic or study guide.</p>", name),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.client.Emails.SendWithOptions(ctx, params, &resend.SendEmailOptions{}); err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}
