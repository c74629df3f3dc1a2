package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hlspiped/internal/api"
	"hlspiped/internal/config"
	"hlspiped/internal/logger"
	"hlspiped/internal/metrics"
	"hlspiped/internal/pipeline"
	"hlspiped/internal/sink"
	"hlspiped/internal/transform"
	"hlspiped/internal/transport"
)

const shutdownTimeout = 5 * time.Second

func main() {
	listenAddr := flag.String("l", ":8080", "HTTP listen address")
	logLevel := flag.String("L", "info", "Log level (error, warn, info, debug)")
	logFormat := flag.String("F", "json", "Log format (json, text)")
	configFile := flag.String("c", "hlspiped.json", "Path to the pipeline config file")
	outputFile := flag.String("o", "", "Optional file to also emit segments to")
	flag.Parse()

	_ = config.LoadEnv()

	log := logger.New(*logLevel, *logFormat)
	log.Infof("Starting hlspiped...")

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	log.Infof("Configuration loaded: manifest=%s", cfg.ManifestURL)

	met := metrics.New()
	client := transport.NewClient(log, cfg.UserAgent, cfg.ProxyPrefix)

	var engine transform.Engine
	if cfg.FFmpegPath != "" {
		engine = transform.NewFFmpegEngine(log, cfg.FFmpegPath, cfg.FFmpegArgs)
	} else {
		log.Infof("No transform binary configured, segments pass through unchanged")
		engine = transform.PassthroughEngine{}
	}

	ctrl := pipeline.New(cfg, log, met, client, engine)

	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			log.Errorf("Failed to open output file: %v", err)
			os.Exit(1)
		}
		defer f.Close()
		ctrl.Connect(sink.NewWriterSink(f))
		log.Infof("Emitting segments to %s", *outputFile)
	}

	if err := ctrl.Start(); err != nil {
		log.Errorf("Failed to start pipeline: %v", err)
		os.Exit(1)
	}

	router := api.New(ctrl, met, client, log)
	server := &http.Server{
		Addr:    *listenAddr,
		Handler: router,
	}

	go func() {
		log.Infof("Server starting on %s", *listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Could not listen on %s: %v", *listenAddr, err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Infof("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	ctrl.Stop()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Server shutdown failed: %v", err)
		os.Exit(1)
	}

	log.Infof("Exited gracefully")
}
