package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func setupMiniredis(t *testing.T) (*RedisPublisher, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })

	pub, err := NewRedisPublisher(RedisPublisherConfig{
		RedisURL:      "redis://" + mr.Addr(),
		ChannelPrefix: "test:workflow",
	})
	if err != nil {
		t.Fatalf("NewRedisPublisher: %v", err)
	}
	t.Cleanup(func() { pub.Close() })

	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { raw.Close() })

	return pub, raw
}

func TestNewRedisPublisher(t *testing.T) {
	tests := []struct {
		name       string
		config     RedisPublisherConfig
		wantErr    bool
		wantStream string
	}{
		{
			name:       "default prefix",
			config:     RedisPublisherConfig{RedisURL: "redis://localhost:6379"},
			wantStream: "steg:workflow:stream",
		},
		{
			name:       "custom prefix",
			config:     RedisPublisherConfig{RedisURL: "redis://localhost:6379", ChannelPrefix: "acme"},
			wantStream: "acme:stream",
		},
		{
			name:    "invalid redis URL",
			config:  RedisPublisherConfig{RedisURL: "not-a-valid-url"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub, err := NewRedisPublisher(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Error("NewRedisPublisher() should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewRedisPublisher() error = %v", err)
			}
			defer pub.Close()

			if pub.StreamName() != tt.wantStream {
				t.Errorf("StreamName() = %v, want %v", pub.StreamName(), tt.wantStream)
			}
		})
	}
}

func TestPublishReachesChannelAndStream(t *testing.T) {
	pub, raw := setupMiniredis(t)
	ctx := context.Background()

	if err := pub.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	// Subscribe before publishing; Pub/Sub has no replay.
	pubsub := raw.Subscribe(ctx, "test:workflow:run-1")
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}

	ev := Event{
		RunID:     "run-1",
		Type:      TypeJobStatus,
		Phase:     "encode",
		RequestID: "r1",
		Status:    "Processing.",
		Attempt:   2,
	}
	if err := pub.Publish(ctx, ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	msg, err := pubsub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("failed to receive message: %v", err)
	}

	var got Event
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("failed to unmarshal event: %v", err)
	}
	if got.Version != "1.0" || got.Timestamp == "" {
		t.Errorf("version/timestamp not filled: %+v", got)
	}
	if got.RequestID != "r1" || got.Status != "Processing." || got.Attempt != 2 {
		t.Errorf("event = %+v", got)
	}

	entries, err := raw.XRange(ctx, "test:workflow:stream", "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 stream entry, got %d", len(entries))
	}
	if entries[0].Values["runId"] != "run-1" {
		t.Errorf("runId = %v, want run-1", entries[0].Values["runId"])
	}
	if entries[0].Values["type"] != TypeJobStatus {
		t.Errorf("type = %v, want %s", entries[0].Values["type"], TypeJobStatus)
	}
}

func TestPublishRejectsBadRunID(t *testing.T) {
	pub, raw := setupMiniredis(t)
	ctx := context.Background()

	for _, id := range []string{"", "a b", "x:y*"} {
		if err := pub.Publish(ctx, Event{RunID: id, Type: TypeRunStarted}); err == nil {
			t.Errorf("Publish(%q) should fail", id)
		}
	}

	n, err := raw.XLen(ctx, "test:workflow:stream").Result()
	if err != nil {
		t.Fatalf("XLen: %v", err)
	}
	if n != 0 {
		t.Errorf("stream length = %d, want 0", n)
	}
}
