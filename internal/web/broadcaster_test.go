package web

import "testing"

func TestStateBroadcaster_DropsDuplicates(t *testing.T) {
	b := NewStateBroadcaster()
	id, ch := b.Subscribe(4)
	defer b.Unsubscribe(id)

	if !b.Publish([]byte(`{"a":1}`)) {
		t.Fatalf("first publish dropped")
	}
	if b.Publish([]byte(`{"a":1}`)) {
		t.Fatalf("duplicate publish sent")
	}
	if !b.Publish([]byte(`{"a":2}`)) {
		t.Fatalf("changed publish dropped")
	}
	if got := len(ch); got != 2 {
		t.Fatalf("queued=%d want 2", got)
	}
}

func TestStateBroadcaster_NewSubscriberGetsLast(t *testing.T) {
	b := NewStateBroadcaster()
	b.Publish([]byte("x"))

	id, ch := b.Subscribe(1)
	defer b.Unsubscribe(id)
	select {
	case msg := <-ch:
		if string(msg) != "x" {
			t.Fatalf("msg=%q want x", msg)
		}
	default:
		t.Fatalf("no replay of last message")
	}
}

func TestStateBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewStateBroadcaster()
	id, _ := b.Subscribe(1)
	defer b.Unsubscribe(id)

	for i := 0; i < 10; i++ {
		b.Publish([]byte{byte(i)})
	}
}
