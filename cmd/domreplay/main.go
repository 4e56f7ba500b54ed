// CLAUDE:SUMMARY CLI entry point for domreplay — steps replay, single-descriptor resolve, report server, MCP stdio modes.
// Command domreplay replays recorded browser step sequences, relocating
// each step's element before acting on it.
//
// Usage:
//
//	domreplay -steps login.yaml                 # replay a steps file
//	domreplay -config domreplay.yaml -steps f   # with a config file
//	domreplay -serve :8086                      # report server only
//	domreplay -mcp                              # MCP server on stdio
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domreplay"
)

func main() {
	configPath := flag.String("config", "", "path to domreplay.yaml config file")
	stepsPath := flag.String("steps", "", "path to a YAML steps file to replay")
	overrideURL := flag.String("url", "", "override the steps file's page URL")
	serveAddr := flag.String("serve", "", "serve the run report API on this address")
	mcpStdio := flag.Bool("mcp", false, "serve MCP tools on stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *stepsPath, *overrideURL, *serveAddr, *mcpStdio); err != nil {
		logger.Error("domreplay: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, stepsPath, overrideURL, serveAddr string, mcpStdio bool) error {
	cfg := &domreplay.Config{}
	if configPath != "" {
		loaded, err := domreplay.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg = loaded
	}
	if serveAddr != "" {
		cfg.ReportAddr = serveAddr
	}

	if stepsPath == "" && cfg.ReportAddr == "" && !mcpStdio {
		fmt.Fprintln(os.Stderr, "usage: domreplay -steps <file> | -serve <addr> | -mcp")
		os.Exit(1)
	}

	rep := domreplay.New(cfg, logger)
	if err := rep.Start(ctx); err != nil {
		return err
	}
	defer rep.Close()

	if cfg.ReportAddr != "" {
		srv := &http.Server{Addr: cfg.ReportAddr, Handler: rep.ReportHandler()}
		go func() {
			logger.Info("report server starting", "addr", cfg.ReportAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("report server", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	if mcpStdio {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "domreplay",
			Version: "1.0.0",
		}, nil)
		rep.RegisterMCP(mcpSrv)
		logger.Info("MCP server starting", "transport", "stdio")
		return mcpSrv.Run(ctx, &mcp.StdioTransport{})
	}

	if stepsPath != "" {
		sf, err := domreplay.LoadStepsFile(stepsPath)
		if err != nil {
			return err
		}
		if overrideURL != "" {
			sf.URL = overrideURL
		}

		res, err := rep.Run(ctx, sf)
		if err != nil {
			return err
		}

		out, _ := json.MarshalIndent(map[string]any{
			"run_id":  res.RunID,
			"summary": res.Summary,
		}, "", "  ")
		os.Stdout.Write(out)
		os.Stdout.Write([]byte("\n"))

		if !res.Summary.Success {
			return fmt.Errorf("run %s: %d of %d steps failed", res.RunID, res.Summary.Failed, res.Summary.Total)
		}
		return nil
	}

	// Serve-only mode: block until signal.
	<-ctx.Done()
	return nil
}
