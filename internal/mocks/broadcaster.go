package mocks

import (
	"sync"

	"github.com/blog-realtime-api/internal/service"
)

var _ service.Broadcaster = (*MockBroadcaster)(nil)

// Emission is one recorded broadcast
type Emission struct {
	Room    string
	Event   string
	Payload interface{}
}

// MockBroadcaster records every emitted event
type MockBroadcaster struct {
	mu        sync.Mutex
	Emissions []Emission
}

// NewMockBroadcaster creates an empty recorder
func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) Emit(room, event string, payload interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Emissions = append(m.Emissions, Emission{Room: room, Event: event, Payload: payload})
}

// Events returns a snapshot of the recorded emissions
func (m *MockBroadcaster) Events() []Emission {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Emission, len(m.Emissions))
	copy(out, m.Emissions)
	return out
}

// Last returns the most recent emission
func (m *MockBroadcaster) Last() (Emission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Emissions) == 0 {
		return Emission{}, false
	}
	return m.Emissions[len(m.Emissions)-1], true
}

// Reset clears the recording
func (m *MockBroadcaster) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Emissions = nil
}
