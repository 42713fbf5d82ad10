// Command ridesecure runs the detection fusion engine: "serve" exposes
// it over HTTP, "replay" processes a recorded observation stream, and
// "token" mints a credential for the protected configuration endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/singharyan006/ride-secure/internal/api"
	"github.com/singharyan006/ride-secure/internal/config"
	"github.com/singharyan006/ride-secure/internal/monitoring"
	"github.com/singharyan006/ride-secure/internal/replay"
	"github.com/singharyan006/ride-secure/internal/security"
	"github.com/singharyan006/ride-secure/internal/version"
	"github.com/singharyan006/ride-secure/internal/vision"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "replay":
		err = runReplay(os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	case "version":
		fmt.Println(version.String())
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ridesecure: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ridesecure <serve|replay|token|version> [flags]")
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (optional)")
	listen := fs.String("listen", "", "listen address override")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Server.Addr = *listen
	}
	log := monitoring.NewLogger(cfg.LogLevel)

	srv, err := api.NewServer(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (optional)")
	input := fs.String("in", "", "observation stream (jsonl), - for stdin")
	output := fs.String("csv", "", "violation export path (optional)")
	fs.Parse(args)

	if *input == "" {
		return fmt.Errorf("replay: -in is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log := monitoring.NewLogger(cfg.LogLevel)

	in := os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	opts := replay.Options{
		VideoName: cfg.Session.VideoName,
		FPS:       cfg.Session.FPS,
	}
	if *output != "" {
		if err := security.ValidateExportPath(*output); err != nil {
			return err
		}
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer f.Close()
		opts.Export = f
	}

	fp, err := vision.NewFusionPipeline(cfg.PipelineConfig(), vision.FusionDeps{Log: log})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := replay.NewRunner(fp, log).Run(ctx, in, opts)
	if err != nil {
		return err
	}

	log.Info().
		Int("frames", res.Frames).
		Int("violations", res.Violations).
		Float64("rate_per_minute", res.Summary.ViolationRatePerMinute).
		Msg("replay complete")
	return nil
}

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (optional)")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if cfg.Server.JWTSecret == "" {
		return fmt.Errorf("token: no jwt secret configured")
	}

	token, err := api.IssueToken(cfg.Server.JWTSecret, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
