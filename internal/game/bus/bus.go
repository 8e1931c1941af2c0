// Package bus fans chat and system messages out to every subscribed session.
//
// Publish reads an immutable snapshot of the subscriber set through an atomic
// pointer, so publishers never wait on Subscribe or Unsubscribe.
package bus

import (
	"maps"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Recorder receives bus counters. *observability.Metrics satisfies it.
type Recorder interface {
	MessagePublished()
	MessageDropped()
}

type subscribers map[string]*Sink

// Bus is the single global fan-out point.
type Bus struct {
	writeMu  sync.Mutex // serialises snapshot replacement
	subs     atomic.Pointer[subscribers]
	capacity int
	recorder Recorder
	logger   *zap.Logger
}

// New creates an empty Bus whose sinks hold capacity pending messages.
//
// Precondition: logger must be non-nil. recorder may be nil.
func New(capacity int, recorder Recorder, logger *zap.Logger) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := &Bus{capacity: capacity, recorder: recorder, logger: logger}
	empty := subscribers{}
	b.subs.Store(&empty)
	return b
}

// NewSink creates a sink sized for this bus whose overflow drops are counted.
func (b *Bus) NewSink() *Sink {
	var onDrop func()
	if b.recorder != nil {
		onDrop = b.recorder.MessageDropped
	}
	return NewSink(b.capacity, onDrop)
}

// Subscribe adds sink under id, replacing any sink already held by id.
//
// Precondition: id must be non-empty; sink must be non-nil.
func (b *Bus) Subscribe(id string, sink *Sink) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	next := maps.Clone(*b.subs.Load())
	next[id] = sink
	b.subs.Store(&next)
	b.logger.Debug("bus subscribe", zap.String("id", id), zap.Int("subscribers", len(next)))
}

// Unsubscribe removes id. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	cur := *b.subs.Load()
	if _, ok := cur[id]; !ok {
		return
	}
	next := maps.Clone(cur)
	delete(next, id)
	b.subs.Store(&next)
	b.logger.Debug("bus unsubscribe", zap.String("id", id), zap.Int("subscribers", len(next)))
}

// Publish delivers text to every current subscriber and returns how many
// accepted it. Closed sinks are skipped.
//
// Postcondition: Never blocks.
func (b *Bus) Publish(text string) int {
	return b.PublishWhere(text, nil)
}

// PublishWhere publishes text once and delivers it to the subscribers whose
// id satisfies accept. A nil accept matches every subscriber.
//
// Postcondition: Never blocks.
func (b *Bus) PublishWhere(text string, accept func(id string) bool) int {
	if b.recorder != nil {
		b.recorder.MessagePublished()
	}
	delivered := 0
	for id, sink := range *b.subs.Load() {
		if accept != nil && !accept(id) {
			continue
		}
		if sink.Deliver(text) {
			delivered++
		}
	}
	return delivered
}

// Len returns the number of subscribers.
func (b *Bus) Len() int { return len(*b.subs.Load()) }
