package llm

import (
	"context"
	"sync"
)

// MockClient implements Client for tests. It returns a configured reply or
// error and records every prompt it receives.
type MockClient struct {
	mu sync.Mutex

	response  string
	err       error
	available bool

	Prompts []string
}

// NewMockClient creates an available MockClient that replies with "".
func NewMockClient() *MockClient {
	return &MockClient{available: true}
}

// WithResponse configures the reply returned by Complete.
func (m *MockClient) WithResponse(response string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError configures the error returned by Complete.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithAvailable configures Available().
func (m *MockClient) WithAvailable(available bool) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
	return m
}

// Name implements Named.
func (m *MockClient) Name() string { return "mock" }

// Complete records prompt and returns the configured reply or error.
func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// Available implements Client.
func (m *MockClient) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// CallCount returns the number of Complete calls.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// Reset clears recorded prompts and configured behaviour.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = ""
	m.err = nil
	m.available = true
	m.Prompts = nil
}
