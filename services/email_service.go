package services

import (
	"fmt"
	"net/smtp"

	"github.com/bakeprint/bakeprint-api/config"
)

// EmailService sends the order lifecycle notifications. All sends are
// fire-and-forget from the caller's perspective: failures are logged by the
// caller and never roll back the state change that triggered them.
type EmailService interface {
	SendStageChangeEmail(to, orderNumber, newStage, comments string) error
	SendCompletionConfirmedEmail(to, orderNumber string) error
	SendUpdateRequestNotification(to, orderNumber, reason string) error
	SendUpdateRequestResponseEmail(to, orderNumber, status, note string) error
	SendCompletionReminderEmail(to, orderNumber string) error
}

var emailServiceInstance EmailService

// InitEmailService initializes the email service from configuration
func InitEmailService(cfg *config.Config) EmailService {
	emailServiceInstance = NewSMTPEmailService(cfg)
	return emailServiceInstance
}

// GetEmailService returns the initialized email service instance
func GetEmailService() EmailService {
	return emailServiceInstance
}

// SetEmailService sets the email service instance (primarily for testing)
func SetEmailService(service EmailService) {
	emailServiceInstance = service
}

// SMTPEmailService sends plain-text mail over SMTP
type SMTPEmailService struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPEmailService creates an SMTP-backed email service
func NewSMTPEmailService(cfg *config.Config) *SMTPEmailService {
	return &SMTPEmailService{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.EmailFrom,
	}
}

func (s *SMTPEmailService) send(to, subject, body string) error {
	if s.host == "" {
		return fmt.Errorf("SMTP_HOST is not configured")
	}

	msg := []byte("From: " + s.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	addr := s.host + ":" + s.port
	if err := smtp.SendMail(addr, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// SendStageChangeEmail notifies the baker that their order moved to a new stage
func (s *SMTPEmailService) SendStageChangeEmail(to, orderNumber, newStage, comments string) error {
	subject := fmt.Sprintf("Order %s is now %s", orderNumber, newStage)
	body := fmt.Sprintf("Your order %s has moved to %s.", orderNumber, newStage)
	if comments != "" {
		body += "\n\nNotes: " + comments
	}
	return s.send(to, subject, body)
}

// SendCompletionConfirmedEmail confirms the collection and payment details
func (s *SMTPEmailService) SendCompletionConfirmedEmail(to, orderNumber string) error {
	subject := fmt.Sprintf("Order %s: collection details confirmed", orderNumber)
	body := fmt.Sprintf("The collection and payment details for order %s have been confirmed. See you then!", orderNumber)
	return s.send(to, subject, body)
}

// SendUpdateRequestNotification tells the admin a baker wants to change
// confirmed details
func (s *SMTPEmailService) SendUpdateRequestNotification(to, orderNumber, reason string) error {
	subject := fmt.Sprintf("Order %s: change requested", orderNumber)
	body := fmt.Sprintf("The baker on order %s has asked to change their confirmed collection details.\n\nReason: %s", orderNumber, reason)
	return s.send(to, subject, body)
}

// SendUpdateRequestResponseEmail tells the baker how their request was resolved
func (s *SMTPEmailService) SendUpdateRequestResponseEmail(to, orderNumber, status, note string) error {
	subject := fmt.Sprintf("Order %s: change request %s", orderNumber, status)
	body := fmt.Sprintf("Your request to change the collection details on order %s was %s.", orderNumber, status)
	if note != "" {
		body += "\n\nNote from the team: " + note
	}
	return s.send(to, subject, body)
}

// SendCompletionReminderEmail nudges the baker to confirm outstanding details
func (s *SMTPEmailService) SendCompletionReminderEmail(to, orderNumber string) error {
	subject := fmt.Sprintf("Order %s is ready - please confirm collection details", orderNumber)
	body := fmt.Sprintf("Order %s has finished printing but its collection and payment details are still unconfirmed. Please log in and confirm them.", orderNumber)
	return s.send(to, subject, body)
}
