package execution

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SubscriberBuffer is how many entries a subscriber may fall behind before
// Emit starts dropping for it
const SubscriberBuffer = 200

// LogStream fans log entries out to any number of subscribers.
// Delivery is lossy: a subscriber whose buffer is full misses the entry,
// which is counted in Dropped and logged at debug level.
type LogStream struct {
	mu          sync.RWMutex
	subscribers []chan LogEntry
	closed      bool
	dropped     atomic.Uint64
	logger      *zap.Logger
}

// StreamOption configures a LogStream
type StreamOption func(*LogStream)

// WithStreamLogger sets the logger that reports dropped entries
func WithStreamLogger(logger *zap.Logger) StreamOption {
	return func(s *LogStream) { s.logger = logger }
}

// NewLogStream creates an empty stream
func NewLogStream(opts ...StreamOption) *LogStream {
	s := &LogStream{
		subscribers: make([]chan LogEntry, 0),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe returns a channel that receives every entry emitted from now on
func (s *LogStream) Subscribe() <-chan LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		ch := make(chan LogEntry)
		close(ch)
		return ch
	}

	ch := make(chan LogEntry, SubscriberBuffer)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe closes and removes a subscription
func (s *LogStream) Unsubscribe(ch <-chan LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			close(sub)
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			break
		}
	}
}

// Emit sends an entry to all subscribers without blocking.
// Entries are dropped for subscribers whose buffer is full.
func (s *LogStream) Emit(entry LogEntry) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	for _, sub := range s.subscribers {
		select {
		case sub <- entry:
		default:
			n := s.dropped.Add(1)
			s.logger.Debug("log entry dropped",
				zap.String("run", entry.RunID),
				zap.String("message", entry.Message),
				zap.Uint64("dropped", n))
		}
	}
}

// Dropped returns how many deliveries were skipped because a buffer was full
func (s *LogStream) Dropped() uint64 {
	return s.dropped.Load()
}

// Close closes the stream and all subscriber channels
func (s *LogStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for _, sub := range s.subscribers {
		close(sub)
	}
	s.subscribers = nil
}
