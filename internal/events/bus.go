package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// BusConfig sizes a Bus's two lanes.
type BusConfig struct {
	// HighPriBuffer is the buffer size for non-droppable (lifecycle) events.
	HighPriBuffer int
	// LowPriBuffer is the buffer size for droppable (chunk/tool-stream) events.
	LowPriBuffer int
}

// DefaultBusConfig returns sensible lane sizes.
func DefaultBusConfig() BusConfig {
	return BusConfig{HighPriBuffer: 32, LowPriBuffer: 256}
}

// Bus is a single run's event stream: the executor publishes via Publish,
// one or more projectors drain Out(). Lifecycle events always make it
// through; chunk/tool-stream events are dropped when the low-priority lane
// is full, so a slow SSE client can never stall a super-step.
//
// Grounded on the teacher's agent.BackpressureSink two-lane merge pattern,
// generalized from plugin dispatch to thread-scoped run events.
type Bus struct {
	threadID string
	highPri  chan Event
	lowPri   chan Event
	merged   chan Event
	seq      uint64
	dropped  uint64
	closed   uint32
	closeMu  sync.Once
}

// NewBus creates a Bus for threadID and starts its merge loop. Callers must
// range over Out() until it is closed, and call Close when the run ends.
func NewBus(threadID string, cfg BusConfig) *Bus {
	if cfg.HighPriBuffer <= 0 {
		cfg.HighPriBuffer = 32
	}
	if cfg.LowPriBuffer <= 0 {
		cfg.LowPriBuffer = 256
	}
	b := &Bus{
		threadID: threadID,
		highPri:  make(chan Event, cfg.HighPriBuffer),
		lowPri:   make(chan Event, cfg.LowPriBuffer),
		merged:   make(chan Event, cfg.HighPriBuffer),
	}
	go b.mergeLoop()
	return b
}

// Out returns the channel projectors should drain.
func (b *Bus) Out() <-chan Event { return b.merged }

// Publish emits an event of the given type for agent (may be empty), with
// an optional payload. Thread-safe; non-blocking for droppable types.
func (b *Bus) Publish(t Type, agent string, data any) {
	if atomic.LoadUint32(&b.closed) == 1 {
		return
	}
	e := Event{
		Seq:       atomic.AddUint64(&b.seq, 1),
		ThreadID:  b.threadID,
		Type:      t,
		Agent:     agent,
		Data:      data,
		Timestamp: time.Now(),
	}
	if t.Droppable() {
		select {
		case b.lowPri <- e:
		default:
			atomic.AddUint64(&b.dropped, 1)
		}
		return
	}
	select {
	case b.highPri <- e:
	default:
		// High-priority lane full: block briefly rather than drop, since
		// lifecycle events must be delivered. The lane is sized generously
		// so this only triggers under sustained projector stalls.
		b.highPri <- e
	}
}

// DroppedCount returns how many droppable events have been discarded.
func (b *Bus) DroppedCount() uint64 { return atomic.LoadUint64(&b.dropped) }

// Close stops the bus and closes Out(). Safe to call multiple times.
func (b *Bus) Close() {
	b.closeMu.Do(func() {
		atomic.StoreUint32(&b.closed, 1)
		close(b.highPri)
		close(b.lowPri)
	})
}

func (b *Bus) mergeLoop() {
	defer close(b.merged)
	for {
		select {
		case e, ok := <-b.highPri:
			if !ok {
				b.drainLowPri()
				return
			}
			b.merged <- e
		default:
			select {
			case e, ok := <-b.highPri:
				if !ok {
					b.drainLowPri()
					return
				}
				b.merged <- e
			case e, ok := <-b.lowPri:
				if !ok {
					continue
				}
				b.merged <- e
			}
		}
	}
}

func (b *Bus) drainLowPri() {
	for e := range b.lowPri {
		b.merged <- e
	}
}
