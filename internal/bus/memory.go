// Package bus provides an in-process domain.SignalBus for single-instance
// runs without Redis.
package bus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

const (
	subscriberBuffer = 128
	defaultMaxLen    = 5000
)

type subscriber struct {
	ch  chan []byte
	ctx context.Context
}

// MemoryBus fans published payloads out to live subscribers and keeps a
// bounded per-stream history. Slow subscribers drop messages rather than
// block publishers. Stream IDs have the form "<seq>-0".
type MemoryBus struct {
	mu      sync.Mutex
	subs    map[string]map[*subscriber]struct{}
	streams map[string][]domain.StreamMessage
	seq     uint64
	maxLen  int
}

// NewMemoryBus creates a MemoryBus keeping up to maxLen entries per stream.
// maxLen <= 0 uses 5000.
func NewMemoryBus(maxLen int) *MemoryBus {
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &MemoryBus{
		subs:    make(map[string]map[*subscriber]struct{}),
		streams: make(map[string][]domain.StreamMessage),
		maxLen:  maxLen,
	}
}

// Publish delivers payload to current subscribers of channel and appends it
// to the stream of the same name.
func (b *MemoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs[channel] {
		if s.ctx.Err() != nil {
			continue
		}
		select {
		case s.ch <- payload:
		default:
		}
	}
	b.appendLocked(channel, payload)
	return nil
}

// Subscribe returns a channel of payloads published after the call. It is
// closed once ctx is cancelled.
func (b *MemoryBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	s := &subscriber{ch: make(chan []byte, subscriberBuffer), ctx: ctx}

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*subscriber]struct{})
	}
	b.subs[channel][s] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[channel], s)
		close(s.ch)
		b.mu.Unlock()
	}()
	return s.ch, nil
}

// Subscribers is the number of live subscriptions to channel.
func (b *MemoryBus) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}

// StreamAppend appends payload to stream, trimming the oldest entries.
func (b *MemoryBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appendLocked(stream, payload)
	return nil
}

func (b *MemoryBus) appendLocked(stream string, payload []byte) {
	b.seq++
	msgs := append(b.streams[stream], domain.StreamMessage{
		ID:      strconv.FormatUint(b.seq, 10) + "-0",
		Payload: payload,
	})
	if len(msgs) > b.maxLen {
		msgs = append([]domain.StreamMessage(nil), msgs[len(msgs)-b.maxLen:]...)
	}
	b.streams[stream] = msgs
}

// StreamRead returns up to count entries with IDs after lastID. "0" reads
// from the start.
func (b *MemoryBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	after, err := parseStreamID(lastID)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.StreamMessage
	for _, m := range b.streams[stream] {
		if count > 0 && len(out) >= count {
			break
		}
		id, _ := parseStreamID(m.ID)
		if id > after {
			out = append(out, m)
		}
	}
	return out, nil
}

func parseStreamID(id string) (uint64, error) {
	seq, _, _ := strings.Cut(id, "-")
	n, err := strconv.ParseUint(seq, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bus: invalid stream id %q", id)
	}
	return n, nil
}

var _ domain.SignalBus = (*MemoryBus)(nil)
