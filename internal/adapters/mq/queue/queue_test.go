package queue

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func receive(t *testing.T, msgs <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg, ok := <-msgs:
		if !ok {
			t.Fatal("subscription closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func TestPubSubQueue_PublishSubscribe(t *testing.T) {
	q := NewPubSubQueue(WithBufferSize(8))
	defer q.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := q.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	entry := model.ActivityEntry{
		ID:         "entry-1",
		Actor:      "alice",
		Action:     "save",
		Collection: "teams",
		Timestamp:  time.Date(2026, 6, 3, 10, 0, 0, 0, time.UTC),
	}
	if !q.Publish(ctx, entry) {
		t.Fatal("expected publish to succeed")
	}

	msg := receive(t, msgs)
	msg.Ack()
	if msg.UUID != "entry-1" {
		t.Errorf("expected message uuid entry-1, got %s", msg.UUID)
	}
	if got := msg.Metadata.Get("action"); got != "save" {
		t.Errorf("expected action metadata save, got %q", got)
	}

	got, err := Decode(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Actor != "alice" || got.Collection != "teams" || !got.Timestamp.Equal(entry.Timestamp) {
		t.Errorf("decoded entry mismatch: %+v", got)
	}
}

func TestPubSubQueue_AssignsIDs(t *testing.T) {
	q := NewPubSubQueue()
	defer q.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := q.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !q.Publish(ctx, model.ActivityEntry{Actor: "bob", Action: "delete"}) {
		t.Fatal("expected publish to succeed")
	}
	msg := receive(t, msgs)
	msg.Ack()
	if msg.UUID == "" {
		t.Fatal("expected a generated uuid")
	}
	got, err := Decode(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != msg.UUID {
		t.Errorf("expected entry id %s, got %s", msg.UUID, got.ID)
	}
}

func TestPubSubQueue_Close(t *testing.T) {
	q := NewPubSubQueue()
	ctx := context.Background()

	if q.IsClosed() {
		t.Error("new queue should be open")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("queue should report closed")
	}
	if q.Publish(ctx, model.ActivityEntry{Action: "save"}) {
		t.Error("publish after close should fail")
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(message.NewMessage("x", []byte("not json")))
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestPubSubQueue_Topic(t *testing.T) {
	q := NewPubSubQueue(WithTopic("audit"))
	defer q.Close()
	if q.Topic() != "audit" {
		t.Errorf("expected topic audit, got %s", q.Topic())
	}
}
