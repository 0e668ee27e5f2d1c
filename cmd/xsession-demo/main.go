package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	xsession "github.com/fathomtrade/xsession"
	"github.com/fathomtrade/xsession/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML engine configuration file")
		verbose    = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: xsession-demo -config sessions.yaml")
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	data, err := os.ReadFile(*configPath)
	if err != nil {
		logger.Error("failed to read config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	cfg, err := xsession.ParseConfig(data)
	if err != nil {
		logger.Error("failed to parse config", "error", err)
		os.Exit(1)
	}

	engine, err := xsession.NewEngine(cfg,
		xsession.WithLogger(logger),
		xsession.WithMessageListener(func(s *xsession.ManagedSession, msgType string, body []byte) {
			logger.Debug("message received", "session", s.ID, "type", msgType, "bytes", len(body))
		}),
		xsession.WithSessionStateListener(func(s *xsession.ManagedSession, from, to string) {
			logger.Info("session state changed", "session", s.ID, "from", from, "to", to)
		}),
	)
	if err != nil {
		logger.Error("failed to construct engine", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		engine.Stop()
		cancel()
	}()

	logger.Info("starting engine", "sessions", len(cfg.Sessions))
	if err := engine.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Error("engine stopped with error", "error", err)
		os.Exit(1)
	}
}
