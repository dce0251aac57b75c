package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/ku-polls/audit"
	"github.com/danielhkuo/ku-polls/cliparse"
	"github.com/danielhkuo/ku-polls/db"
	"github.com/danielhkuo/ku-polls/router"
)

const (
	auditBuffer    = 256
	auditRedisKey  = "ku-polls:audit"
	auditRedisKeep = 1000
)

func main() {
	// .env is optional; real environment variables take precedence
	cliparse.LoadEnv()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	// Audit trail: always logged, optionally mirrored to Redis and AMQP
	sinks := []audit.Sink{audit.NewSlogSink(slog.Default())}

	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := audit.ConnectRedis(ctx, cfg.RedisAddr)
		cancel()
		if err != nil {
			slog.Warn("redis unavailable, audit events will not be stored", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer client.Close()
			sinks = append(sinks, audit.NewRedisSink(client, auditRedisKey, auditRedisKeep))
			slog.Info("Audit events mirrored to redis", "addr", cfg.RedisAddr)
		}
	}

	if cfg.AMQPURL != "" {
		conn, ch, err := audit.DialAMQP(cfg.AMQPURL, cfg.AuditQueue, 5, 2*time.Second)
		if err != nil {
			slog.Warn("amqp unavailable, audit events will not be published", "error", err)
		} else {
			defer conn.Close()
			defer ch.Close()
			sinks = append(sinks, audit.NewAMQPSink(ch, cfg.AuditQueue))
			slog.Info("Audit events published to amqp", "queue", cfg.AuditQueue)
		}
	}

	auditLog := audit.NewLogger(auditBuffer, sinks...)
	defer auditLog.Close()

	// Create router
	mux, err := router.NewRouter(dbConn, cfg, auditLog)
	if err != nil {
		slog.Error("router setup failed", "error", err)
		os.Exit(1)
	}

	// Create server
	server := http.Server{
		Handler:           mux,
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		// Wait for Ctrl-C signal, then let in-flight requests finish
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server closed", "error", err)
		return
	}
	<-drained
	slog.Info("Server closed")
}
