// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

LoadEnv reads an optional .env file, then ParseFlags returns a Config:

	cliparse.LoadEnv()
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags and Environment Variables

Flags fall back to environment variables:

	-p               PORT            (default 8000)
	-d               DATABASE_URL    (required)
	-t               DATABASE_TYPE   (sqlite or postgres, default sqlite)
	-session-secret  SESSION_SECRET  (required)
	-session-ttl     SESSION_TTL     (default 24h)
	-admin-key       ADMIN_KEY       (required)
	-redis           REDIS_ADDR
	-amqp            AMQP_URL
	-audit-queue     AUDIT_QUEUE     (default poll-audit)

CLI flags take precedence over environment variables, which take precedence
over values from .env.
*/
package cliparse
