package events

import (
	"context"
	"log/slog"
	"sync"
)

// MockPublisher records published events in memory for tests.
type MockPublisher struct {
	mu     sync.Mutex
	logger *slog.Logger

	submitted []QuizSubmittedEvent
	resets    []SubmissionResetEvent
}

func NewMockPublisher(logger *slog.Logger) *MockPublisher {
	return &MockPublisher{logger: logger}
}

func (p *MockPublisher) PublishQuizSubmitted(ctx context.Context, event QuizSubmittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted = append(p.submitted, event)
	return nil
}

func (p *MockPublisher) PublishSubmissionReset(ctx context.Context, event SubmissionResetEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets = append(p.resets, event)
	return nil
}

func (p *MockPublisher) SubmittedEvents() []QuizSubmittedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]QuizSubmittedEvent(nil), p.submitted...)
}

func (p *MockPublisher) ResetEvents() []SubmissionResetEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SubmissionResetEvent(nil), p.resets...)
}

func (p *MockPublisher) ClearEvents() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted = nil
	p.resets = nil
}

func (p *MockPublisher) Close() error { return nil }
