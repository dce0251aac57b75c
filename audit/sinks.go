// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/ku-polls/models"
)

// SlogSink writes events as structured log lines
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger.With("component", "audit")}
}

func (s *SlogSink) Name() string { return "slog" }

func (s *SlogSink) Write(ctx context.Context, e Event) error {
	switch e.Kind {
	case models.EventVote:
		s.logger.InfoContext(ctx, "vote recorded",
			"user", e.Username,
			"choice", e.ChoiceText,
			"question", e.QuestionText,
		)
	case models.EventLogin:
		s.logger.InfoContext(ctx, "user logged in", "user", e.Username, "ip", e.IP)
	case models.EventLoginFailed:
		s.logger.WarnContext(ctx, "invalid login", "user", e.Username, "ip", e.IP)
	case models.EventLogout:
		s.logger.InfoContext(ctx, "user logged out", "user", e.Username, "ip", e.IP)
	default:
		s.logger.InfoContext(ctx, "audit event", "kind", e.Kind, "user", e.Username, "ip", e.IP)
	}
	return nil
}

// RedisSink pushes events onto a capped Redis list, newest first
type RedisSink struct {
	client *redis.Client
	key    string
	max    int64
}

func NewRedisSink(client *redis.Client, key string, max int64) *RedisSink {
	return &RedisSink{client: client, key: key, max: max}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Write(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, payload)
	if s.max > 0 {
		pipe.LTrim(ctx, s.key, 0, s.max-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push audit event: %w", err)
	}
	return nil
}

// Publisher is the part of *amqp.Channel the AMQP sink uses
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes events as JSON messages to a queue
type AMQPSink struct {
	channel Publisher
	queue   string
	mu      sync.Mutex
}

func NewAMQPSink(ch Publisher, queue string) *AMQPSink {
	return &AMQPSink{channel: ch, queue: queue}
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Write(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}

	// amqp channels are not safe for concurrent publishing
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.channel.PublishWithContext(ctx,
		"",
		s.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    e.Time,
			Type:         e.Kind,
			Body:         payload,
		},
	)
}
