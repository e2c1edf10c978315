package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/andy6609/wired-chat/internal/admin"
	"github.com/andy6609/wired-chat/internal/chat"
)

func main() {
	cfg := chat.DefaultConfig()
	flag.IntVar(&cfg.Port, "port", cfg.Port, "chat listen port")
	flag.IntVar(&cfg.MaxClients, "max-clients", cfg.MaxClients, "max concurrent peers")
	flag.IntVar(&cfg.Backlog, "backlog", cfg.Backlog, "listen backlog")
	flag.IntVar(&cfg.MaxBuffer, "max-buffer", cfg.MaxBuffer, "max message size in bytes, terminator included")
	flag.IntVar(&cfg.MaxNameLen, "max-name", cfg.MaxNameLen, "max peer name length in bytes")
	flag.DurationVar(&cfg.PollTimeout, "timeout", cfg.PollTimeout, "readiness wait timeout")
	flag.DurationVar(&cfg.HandshakeTimeout, "handshake-timeout", cfg.HandshakeTimeout, "time allowed for a new peer to send its name")
	flag.BoolVar(&cfg.ExitOnIdle, "exit-on-idle", cfg.ExitOnIdle, "terminate when the readiness wait times out")
	flag.BoolVar(&cfg.CloseOnBadEvent, "close-on-bad-event", cfg.CloseOnBadEvent, "close a peer on unexpected revents instead of terminating")
	adminAddr := flag.String("admin-addr", ":9090", "health and metrics listen address, empty disables")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(flag.CommandLine.Output(), "invalid -log-level %q\n", *logLevel)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	srv, err := chat.NewServer(cfg, logger)
	if err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(exitCode(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if *adminAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		go func() {
			if err := admin.Serve(ctx, *adminAddr, admin.NewRouter(srv, logger), logger); err != nil {
				logger.Error("admin server failed", "error", err)
			}
		}()
	}

	err = srv.Run(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var e *chat.Error
	if errors.As(err, &e) {
		return e.Kind.ExitCode()
	}
	return 1
}
