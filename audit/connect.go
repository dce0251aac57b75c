// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens a Redis client and checks it answers
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	slog.Info("Redis connected", "addr", addr)
	return rdb, nil
}

// DialAMQP connects to the broker, retrying a few times while it starts,
// and declares the durable audit queue.
func DialAMQP(url, queue string, attempts int, backoff time.Duration) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < attempts; i++ {
		if conn, err = amqp.Dial(url); err == nil {
			break
		}
		slog.Warn("failed to connect to AMQP broker, retrying", "attempt", i+1, "error", err)
		time.Sleep(backoff)
	}
	if conn == nil {
		return nil, nil, fmt.Errorf("could not connect to AMQP broker after %d attempts: %w", attempts, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	slog.Info("AMQP connected", "queue", queue)
	return conn, ch, nil
}
