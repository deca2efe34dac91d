// Package main provides the explain-replay CLI tool for reconstructing
// query-plan spans from Postgres log output offline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arloliu/sqltrace"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	mode := os.Args[1]
	switch mode {
	case "replay":
		runReplay(os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
	default:
		_, _ = fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", mode)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`explain-replay - rebuild query-plan spans from Postgres logs

Reads auto_explain output from a Postgres log file (or stdin), recovers the
trace context embedded in each logged statement's SQL comment, and exports
the reconstructed spans.

Usage:
  explain-replay replay [flags]

Flags:
  --file         Log file to read (default: stdin)
  --format       Input format: jsonlog or raw (default: jsonlog)
  --endpoint     OTLP endpoint (default: localhost:4317)
  --http         Use HTTP instead of gRPC
  --insecure     Skip TLS verification (default: true)
  --console      Print spans to stdout instead of exporting via OTLP
  --service-name Override service name

Environment Variables:
  OTEL_EXPORTER_OTLP_ENDPOINT   OTLP endpoint
  OTEL_EXPORTER_OTLP_INSECURE   Skip TLS verification
  OTEL_SERVICE_NAME             Default service name

Examples:
  explain-replay replay --file /var/log/postgresql/postgresql.json
  cat notice.txt | explain-replay replay --format raw --console`)
}

func runReplay(args []string) {
	cfg := newConfig()
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	cfg.bindFlags(fs)

	if err := fs.Parse(args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return
	}

	cfg.applyEnvOverrides()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := executeReplay(ctx, cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// executeReplay sets up the exporter pipeline and streams log records
// through the auto_explain handler.
func executeReplay(ctx context.Context, cfg *Config) error {
	exporterType := "otlp"
	if cfg.Console {
		exporterType = "console"
	}

	protocol := "grpc"
	if cfg.UseHTTP {
		protocol = "http"
	}

	tp, err := sqltrace.NewTracerProvider(ctx, &sqltrace.Config{
		ServiceName: cfg.ServiceName,
		Exporter: &sqltrace.ExporterConfig{
			Type:     exporterType,
			Endpoint: cfg.Endpoint,
			Protocol: protocol,
			Insecure: cfg.Insecure,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create tracer provider: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	sqltrace.SetTracer(tp.Tracer("explain-replay"))

	in := os.Stdin
	if cfg.File != "" {
		f, err := os.Open(cfg.File)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		in = f
	}

	processed, err := replay(ctx, in, cfg.Format)
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d log records\n", processed)

	return nil
}
