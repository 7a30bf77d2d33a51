package web

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"
)

// StateBroadcaster fans device snapshots out to websocket listeners.
// It keeps the most recent message so new subscribers get an immediate sample.
type StateBroadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan []byte
	nextID   int
	last     []byte
	haveLast bool
}

func NewStateBroadcaster() *StateBroadcaster {
	return &StateBroadcaster{
		subs: make(map[int]chan []byte),
	}
}

func (b *StateBroadcaster) Subscribe(buffer int) (int, <-chan []byte) {
	if b == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 4
	}
	ch := make(chan []byte, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	last := b.last
	have := b.haveLast
	b.mu.Unlock()
	if have {
		select {
		case ch <- last:
		default:
		}
	}
	return id, ch
}

func (b *StateBroadcaster) Unsubscribe(id int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish sends msg to every subscriber unless it equals the last message.
// Slow subscribers miss messages rather than block the publisher.
func (b *StateBroadcaster) Publish(msg []byte) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	if b.haveLast && bytes.Equal(b.last, msg) {
		b.mu.Unlock()
		return false
	}
	b.last = msg
	b.haveLast = true
	subs := make([]chan []byte, 0, len(b.subs))
	for _, ch := range b.subs {
		subs = append(subs, ch)
	}
	// Sends happen under the lock so Unsubscribe cannot close a channel
	// mid-send; they never block.
	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
		}
	}
	b.mu.Unlock()
	return true
}

// Run polls status every interval and publishes the device map when it
// changes, until ctx is done.
func (b *StateBroadcaster) Run(ctx context.Context, status *Status, interval time.Duration) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		b.publishStatus(status)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (b *StateBroadcaster) publishStatus(status *Status) {
	snap := status.Snapshot(time.Now().UTC())
	msg, err := json.Marshal(snap.Devices)
	if err != nil {
		return
	}
	b.Publish(msg)
}
