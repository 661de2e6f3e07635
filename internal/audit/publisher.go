package audit

import (
	"context"
	"sync"
	"time"
)

// Publisher captures structured audit events. By default it appends
// synchronously; WithAsyncBuffer moves appends onto a background goroutine
// so the mutation path never waits on the sink. Close drains the buffer.
type Publisher struct {
	sink Appender

	inbox  chan Event
	done   chan struct{}
	closed sync.Once
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer buffers up to size events and appends them off the request
// path. A full buffer falls back to a synchronous append rather than
// dropping the event.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

func NewPublisher(sink Appender, opts ...PublisherOption) *Publisher {
	p := &Publisher{sink: sink, done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	if p.inbox == nil {
		return p.sink.Append(ctx, base)
	}
	select {
	case p.inbox <- base:
		return nil
	default:
		return p.sink.Append(ctx, base)
	}
}

// Close stops the background appender after flushing buffered events.
// No-op in synchronous mode.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox == nil {
			return
		}
		close(p.inbox)
		<-p.done
	})
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		// Sink errors here have no caller to return to; sinks log their own
		// failures.
		_ = p.sink.Append(context.Background(), event)
	}
}
