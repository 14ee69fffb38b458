package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/internal/export"
	"github.com/GoSim-25-26J-441/pacing-core/internal/paced"
	"github.com/GoSim-25-26J-441/pacing-core/internal/runner"
	"github.com/GoSim-25-26J-441/pacing-core/internal/storage"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/config"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/logger"
	"github.com/kr/pretty"
	"google.golang.org/grpc"
)

func main() {
	var configPath, envPath, scenarioPath, outPath, format string
	var printConfig bool

	flag.StringVar(&configPath, "config", "", "daemon config file (defaults apply when empty)")
	flag.StringVar(&envPath, "env", ".env", "dotenv file with PACED_* overrides")
	flag.StringVar(&scenarioPath, "scenario", "", "run this scenario once, print its summary and exit")
	flag.StringVar(&outPath, "out", "", "with -scenario: write the trace to this file")
	flag.StringVar(&format, "format", "", "with -out: csv or fit (default: from the file extension)")
	flag.BoolVar(&printConfig, "print-config", false, "print the effective config and exit")
	flag.Parse()

	cfg, err := loadConfig(configPath, envPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.SetDefault(logger.NewWithFormat(cfg.LogFormat, cfg.LogLevel, os.Stderr))

	if printConfig {
		shown := *cfg
		if shown.Maps.APIKey != "" {
			shown.Maps.APIKey = "<redacted>"
		}
		pretty.Println(shown)
		return
	}

	if scenarioPath != "" {
		if err := runOnce(cfg, scenarioPath, outPath, format); err != nil {
			logger.Error("scenario failed", "scenario", scenarioPath, "error", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(cfg); err != nil {
		logger.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path, envPath string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	env, err := config.ReadEnv(envPath)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(&cfg, env); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runOnce(cfg *config.Config, scenarioPath, outPath, format string) error {
	sc, err := config.LoadScenario(scenarioPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now().UTC()
	out, err := runner.RunScenario(ctx, sc, runner.Options{MapsAPIKey: cfg.Maps.APIKey}, nil)
	if err != nil && (out == nil || out.Result == nil) {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out.Summary); encErr != nil {
		return encErr
	}
	if err != nil {
		return err
	}

	if outPath == "" {
		return nil
	}
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(outPath), ".")
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	file, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := export.Write(file, f, out.Result.Trace.Records(), out.Summary, started); err != nil {
		file.Close()
		return err
	}
	logger.Info("trace written", "path", outPath, "format", f)
	return file.Close()
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archive, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()

	store := paced.NewRunStore()
	executor := paced.NewRunExecutor(store,
		paced.WithArchive(archive),
		paced.WithNotifier(paced.NewNotifier(cfg.Notifier)),
		paced.WithRunnerOptions(runner.Options{MapsAPIKey: cfg.Maps.APIKey}),
	)
	api := paced.NewAPI(store, executor)

	// TODO: configure TLS and authentication before exposing the gRPC port outside a trusted network.
	grpcServer := grpc.NewServer()
	paced.RegisterPacingServiceServer(grpcServer, paced.NewPacingGRPCServer(api))

	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen for gRPC on %s: %w", cfg.Server.GRPCAddr, err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           paced.NewHTTPServer(api).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("gRPC server listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr, "storage", cfg.Storage.Driver)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.GracefulStop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	executor.Shutdown()
	return nil
}
