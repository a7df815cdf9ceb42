package services

import "sync"

// MockBroadcaster records every emitted event for assertions in tests
type MockBroadcaster struct {
	mu     sync.Mutex
	events []OrderEvent
}

// NewMockBroadcaster creates a new mock broadcaster
func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

// SetAsMockForTesting sets this mock as the global broadcaster instance
func (m *MockBroadcaster) SetAsMockForTesting() {
	SetBroadcaster(m)
}

// Events returns a copy of every recorded event
func (m *MockBroadcaster) Events() []OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderEvent, len(m.events))
	copy(out, m.events)
	return out
}

// EmitOrderUpdate records the event
func (m *MockBroadcaster) EmitOrderUpdate(event OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Close does nothing
func (m *MockBroadcaster) Close() {}
