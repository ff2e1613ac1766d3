// Package events publishes workflow progress to Redis so dashboards and
// other tools can follow a run as it happens.
//
// Every event goes to two places:
//
//	PUBLISH <prefix>:<runID>   live subscribers (no replay)
//	XADD    <prefix>:stream    durable log, trimmed to ~10k entries
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types.
const (
	TypeRunStarted    = "run_started"
	TypeStageStarted  = "stage_started"
	TypeStageFinished = "stage_finished"
	TypeJobSubmitted  = "job_submitted"
	TypeJobStatus     = "job_status"
	TypeJobFinished   = "job_finished"
	TypeRunFinished   = "run_finished"
)

// DefaultChannelPrefix is used when no prefix is configured.
const DefaultChannelPrefix = "steg:workflow"

const streamMaxLen = 10000

// runIDPattern keeps caller-supplied IDs out of the key namespace.
var runIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// Event is the payload published for each workflow step.
type Event struct {
	Version    string `json:"version"`
	Timestamp  string `json:"timestamp"`
	RunID      string `json:"runId"`
	Type       string `json:"type"`
	Phase      string `json:"phase,omitempty"`
	MediaID    string `json:"mediaId,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
	Status     string `json:"status,omitempty"`
	Attempt    int    `json:"attempt,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

// RedisPublisher sends workflow events to Redis Pub/Sub and a Stream.
type RedisPublisher struct {
	client     *redis.Client
	redisURL   string
	prefix     string
	streamName string

	debugFunc func(format string, args ...any)
}

// RedisPublisherConfig holds configuration for the publisher.
type RedisPublisherConfig struct {
	// RedisURL is the Redis connection URL, e.g. redis://localhost:6379/0
	RedisURL string

	// ChannelPrefix namespaces channels and the stream (default: steg:workflow)
	ChannelPrefix string

	// DebugFunc is an optional callback for debug logging
	DebugFunc func(format string, args ...any)
}

// NewRedisPublisher creates a publisher. It does not connect until the
// first Ping or Publish.
func NewRedisPublisher(cfg RedisPublisherConfig) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	prefix := cfg.ChannelPrefix
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}

	return &RedisPublisher{
		client:     redis.NewClient(opts),
		redisURL:   cfg.RedisURL,
		prefix:     prefix,
		streamName: prefix + ":stream",
		debugFunc:  cfg.DebugFunc,
	}, nil
}

func (p *RedisPublisher) debug(format string, args ...any) {
	if p.debugFunc != nil {
		p.debugFunc(format, args...)
	}
}

// Ping verifies the Redis connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	p.debug("events: pinging %s", p.redisURL)
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// Channel returns the Pub/Sub channel for a run.
func (p *RedisPublisher) Channel(runID string) string {
	return p.prefix + ":" + runID
}

// StreamName returns the Stream name.
func (p *RedisPublisher) StreamName() string {
	return p.streamName
}

// Publish sends one event. Version and Timestamp are filled in when empty.
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	if !runIDPattern.MatchString(ev.RunID) {
		return fmt.Errorf("invalid run ID %q", ev.RunID)
	}
	if ev.Version == "" {
		ev.Version = "1.0"
	}
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := p.Channel(ev.RunID)
	p.debug("events: %s %s -> %s", ev.Type, ev.Phase, channel)

	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to Pub/Sub: %w", err)
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamName,
		Values: map[string]any{
			"runId":     ev.RunID,
			"type":      ev.Type,
			"timestamp": ev.Timestamp,
			"payload":   string(payload),
		},
		MaxLen: streamMaxLen,
		Approx: true,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
