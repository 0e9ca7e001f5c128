// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/LeeDigitalWorks/zapup/pkg/api"
	"github.com/LeeDigitalWorks/zapup/pkg/debug"
	"github.com/LeeDigitalWorks/zapup/pkg/logger"
	"github.com/LeeDigitalWorks/zapup/pkg/upload"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload token and lifecycle HTTP API",
	Long: `Serve the HTTP API issuing upload tokens and promoting or removing
objects. A debug server exposes /metrics, /health, /ready and pprof.
With --sweep_interval the process also sweeps expired temporary objects.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.Int("http_port", 8080, "HTTP API port")
	f.Int("debug_port", 8085, "Debug/metrics HTTP port")
	f.String("route_prefix", "", "Prefix mounted in front of every API route, e.g. /v1")
	f.StringSlice("cors_origins", []string{"*"}, "Allowed CORS origins")
	f.Duration("sweep_interval", 0, "Interval between temporary object sweeps (0 = disabled)")
	f.Bool("ensure_bucket", false, "Create the bucket on startup if it is missing")

	viper.BindPFlags(f)
}

func runServe(cmd *cobra.Command, args []string) error {
	fl := NewFlagLoader(cmd)
	// The server runs until signalled; the one-shot timeout does not apply.
	ctx, cancel := commandContext(0)
	defer cancel()

	s, err := buildStack(ctx, fl)
	if err != nil {
		return err
	}
	defer s.Close()

	if fl.Bool("ensure_bucket") {
		if _, err := s.manager.EnsureBucket(ctx); err != nil {
			return err
		}
	}

	bucket := s.settings.Bucket
	debug.SetReadyCheck(func(ctx context.Context) error {
		ok, err := s.store.BucketExists(ctx, bucket)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("bucket %s does not exist", bucket)
		}
		return nil
	})
	debug.RegisterHandler("/version", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(VersionInfo())
	}))

	debugServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", fl.Int("debug_port")),
		Handler:           debug.NewMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", debugServer.Addr).Msg("Debug server listening")
		if err := debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Debug server failed")
		}
	}()
	defer debugServer.Close()

	sweeper := upload.NewSweeper(ctx, s.manager, upload.SweeperConfig{
		Interval: fl.Duration("sweep_interval"),
		Jitter:   0.1,
	})
	sweeper.Start()
	defer sweeper.Stop()

	server := api.NewServer(s.issuer, s.manager, api.Config{
		RoutePrefix:    fl.String("route_prefix"),
		AllowedOrigins: fl.StringSlice("cors_origins"),
	})

	debug.SetReady()
	defer debug.SetNotReady()

	if err := server.ListenAndServe(ctx, fmt.Sprintf(":%d", fl.Int("http_port"))); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info().Msg("Shut down")
	return nil
}
