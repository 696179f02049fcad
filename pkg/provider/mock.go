package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockProvider returns deterministic responses for offline runs and tests.
// Responses are matched by substring of the prompt in registration order;
// queued errors are returned (one per call) before any response.
type MockProvider struct {
	mu              sync.Mutex
	rules           []mockRule
	defaultResponse string
	errs            []error
	calls           []Request
	chunkSize       int
}

type mockRule struct {
	marker   string
	response string
	err      error
}

// NewMockProvider creates a mock provider with a default response.
func NewMockProvider() *MockProvider {
	return &MockProvider{defaultResponse: "mock response:"}
}

// Respond registers response for prompts containing marker.
func (m *MockProvider) Respond(marker, response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{marker: marker, response: response})
	return m
}

// FailOn makes prompts containing marker fail with err.
func (m *MockProvider) FailOn(marker string, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{marker: marker, err: err})
	return m
}

// SetDefault replaces the fallback response. The prompt is appended to it.
func (m *MockProvider) SetDefault(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResponse = response
	return m
}

// FailWith queues errors returned by the next calls, in order.
func (m *MockProvider) FailWith(errs ...error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, errs...)
	return m
}

// StreamChunks makes StreamText emit deltas of n bytes. Zero emits one delta.
func (m *MockProvider) StreamChunks(n int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunkSize = n
	return m
}

// Name returns the provider identifier.
func (m *MockProvider) Name() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (m *MockProvider) Models() []string {
	return []string{"mock-1"}
}

// Calls returns a copy of every request received.
func (m *MockProvider) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

// CallCount returns the number of requests received.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// GenerateText returns the scripted response for the prompt.
func (m *MockProvider) GenerateText(ctx context.Context, req Request) (string, error) {
	if req.Model == "" {
		req.Model = "mock-1"
	}
	if err := req.validate(m.Name(), m.Models()); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", err
	}
	for _, r := range m.rules {
		if strings.Contains(req.Prompt, r.marker) {
			return r.response, r.err
		}
	}
	return fmt.Sprintf("%s\n%s", m.defaultResponse, req.Prompt), nil
}

// StreamText splits the scripted response into deltas.
func (m *MockProvider) StreamText(ctx context.Context, req Request, emit func(string)) (string, error) {
	text, err := m.GenerateText(ctx, req)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	size := m.chunkSize
	m.mu.Unlock()
	if size <= 0 {
		size = len(text)
	}
	for start := 0; start < len(text); start += size {
		end := min(start+size, len(text))
		if emit != nil {
			emit(text[start:end])
		}
	}
	return text, nil
}
