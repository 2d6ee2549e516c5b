package events

import (
	"context"
	"sync"
)

// Publisher delivers asset events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Envelope) error { return nil }
func (NoopPublisher) Close() error                            { return nil }

// RecordingPublisher keeps every published envelope in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []Envelope
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, env Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, env)
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

func (p *RecordingPublisher) Events() []Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Envelope, len(p.events))
	copy(out, p.events)
	return out
}

// Types returns the event types in publish order.
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}
