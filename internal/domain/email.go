package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// WelcomeMessageEmailData holds data for the welcome email.
type WelcomeMessageEmailData struct {
	Email     string
	FirstName string
}

// InvitationEmailData holds data for the family invitation email.
type InvitationEmailData struct {
	Email       string
	InviterName string
	FamilyName  string
	Token       string
	AcceptURL   string
	ExpiresAt   time.Time
}

// Notifier delivers invitations to invitees.
type Notifier interface {
	SendInvitation(ctx context.Context, data *InvitationEmailData) error
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	Notifier
	SendWelcomeMessage(ctx context.Context, data *WelcomeMessageEmailData) error
}
