package server

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds the WebSocket server configuration.
type Config struct {
	// ReadLimit caps the size of one inbound message in bytes.
	// Default: 1 MiB.
	ReadLimit int64

	// QueueCapacity is the fixed number of outbound packet slots per
	// connection. Default: 64.
	QueueCapacity int

	// IdleTimeout closes a connection that has not sent anything for
	// this long. Connections parked on a slow application reply live
	// until it elapses. Default: 1 hour.
	IdleTimeout time.Duration

	// WriteTimeout bounds a single frame write. Default: 10 seconds.
	WriteTimeout time.Duration

	// DownloadTimeout bounds how long an HTTP download request waits
	// for the application to produce content. Default: 1 hour.
	DownloadTimeout time.Duration

	// CheckOrigin accepts or rejects the Origin header during upgrade.
	// Default: accept all, matching a server deployed behind its own
	// origin checks.
	CheckOrigin func(r *http.Request) bool

	// Logger receives connection lifecycle logs. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		ReadLimit:       1 << 20,
		QueueCapacity:   64,
		IdleTimeout:     time.Hour,
		WriteTimeout:    10 * time.Second,
		DownloadTimeout: time.Hour,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		c = d
	}
	out := *c
	if out.ReadLimit <= 0 {
		out.ReadLimit = d.ReadLimit
	}
	if out.QueueCapacity <= 0 {
		out.QueueCapacity = d.QueueCapacity
	}
	if out.IdleTimeout <= 0 {
		out.IdleTimeout = d.IdleTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.DownloadTimeout <= 0 {
		out.DownloadTimeout = d.DownloadTimeout
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return &out
}
