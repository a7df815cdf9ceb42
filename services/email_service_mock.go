package services

import (
	"errors"
	"sync"
)

var errSendFailed = errors.New("mock email send failed")

// SentEmail records one email captured by the mock
type SentEmail struct {
	To          string
	Kind        string
	OrderNumber string
	Detail      string
}

// MockEmailService is a recording implementation of EmailService for testing
type MockEmailService struct {
	mu   sync.Mutex
	sent []SentEmail
	Fail bool // when true, every send returns an error
}

// NewMockEmailService creates a new mock email service
func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

// SetAsMockForTesting sets this mock as the global email service instance
func (m *MockEmailService) SetAsMockForTesting() {
	SetEmailService(m)
}

// Sent returns a copy of every email recorded so far
func (m *MockEmailService) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentCount returns the number of recorded emails
func (m *MockEmailService) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *MockEmailService) record(e SentEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return errSendFailed
	}
	m.sent = append(m.sent, e)
	return nil
}

func (m *MockEmailService) SendStageChangeEmail(to, orderNumber, newStage, comments string) error {
	return m.record(SentEmail{To: to, Kind: "stage_change", OrderNumber: orderNumber, Detail: newStage})
}

func (m *MockEmailService) SendCompletionConfirmedEmail(to, orderNumber string) error {
	return m.record(SentEmail{To: to, Kind: "completion_confirmed", OrderNumber: orderNumber})
}

func (m *MockEmailService) SendUpdateRequestNotification(to, orderNumber, reason string) error {
	return m.record(SentEmail{To: to, Kind: "update_request", OrderNumber: orderNumber, Detail: reason})
}

func (m *MockEmailService) SendUpdateRequestResponseEmail(to, orderNumber, status, note string) error {
	return m.record(SentEmail{To: to, Kind: "update_request_response", OrderNumber: orderNumber, Detail: status})
}

func (m *MockEmailService) SendCompletionReminderEmail(to, orderNumber string) error {
	return m.record(SentEmail{To: to, Kind: "completion_reminder", OrderNumber: orderNumber})
}
