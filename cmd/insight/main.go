// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command insight starts the PersonaInsight analysis API server.
//
// Usage:
//
//	go run ./cmd/insight serve
//	go run ./cmd/insight serve --config /etc/insight/insight.yaml --debug
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8089/health
//
//	# Ask a question
//	curl -X POST http://localhost:8089/v1/insight/query \
//	  -H "Content-Type: application/json" \
//	  -H "X-API-Key: $INSIGHT_API_KEY" \
//	  -d '{"question": "How many urban personas are there per region?"}'
//
//	# Cache effectiveness
//	curl http://localhost:8089/v1/insight/cache/stats -H "X-API-Key: $INSIGHT_API_KEY"
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/PersonaInsight/pkg/logging"
	"github.com/AleutianAI/PersonaInsight/services/insight"
	"github.com/AleutianAI/PersonaInsight/services/insight/config"
)

func main() {
	root := &cobra.Command{
		Use:   "insight",
		Short: "PersonaInsight analysis workflow service",
	}
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
		logDir     string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the insight API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, debug, logDir, logLevel)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug mode")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "Directory for JSON log files")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Minimum log level (debug|info|warn|error)")
	return cmd
}

func runServe(configPath string, debug bool, logDir, logLevel string) error {
	if debug {
		logLevel = "debug"
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger, err := logging.New(logging.Config{
		Level:   logging.ParseLevel(logLevel),
		LogDir:  logDir,
		Service: "insight",
	})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Close()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := insight.NewService(ctx, cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	defer svc.Close()

	router := gin.New()
	router.Use(gin.Recovery())
	if debug {
		router.Use(gin.Logger())
	}
	insight.RegisterRoutes(router, svc.Handlers, cfg.APIKey)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("insight server listening", "addr", cfg.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
	}

	logger.Info("insight server stopped")
	return nil
}
