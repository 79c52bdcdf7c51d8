// Command memescope crawls short-video feeds for crypto chatter.
//
// Usage:
//
//	memescope -config memescope.yaml                 # one crawl run, then exit
//	memescope -config memescope.yaml -serve :8090    # HTTP API, runs on demand
//	memescope -config memescope.yaml -mcp            # MCP tools over stdio
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/nquill/memescope/crawl"
)

func main() {
	configPath := flag.String("config", "", "path to memescope.yaml config file")
	serveAddr := flag.String("serve", "", "listen address for the HTTP API (empty = run once and exit)")
	mcpStdio := flag.Bool("mcp", false, "serve MCP tools over stdio instead of crawling")
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *serveAddr, *mcpStdio); err != nil {
		logger.Error("memescope: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, serveAddr string, mcpStdio bool) error {
	if configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: memescope -config <file> [-serve <addr>] [-mcp]")
		os.Exit(1)
	}

	cfg, err := crawl.LoadConfigFile(configPath)
	if err != nil {
		return err
	}

	svc, err := crawl.New(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	if mcpStdio {
		srv := mcp.NewServer(&mcp.Implementation{
			Name:    "memescope",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(srv)
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	if serveAddr != "" {
		httpSrv := &http.Server{Addr: serveAddr, Handler: svc.Handler()}
		go func() {
			<-ctx.Done()
			httpSrv.Shutdown(context.Background())
		}()
		logger.Info("http listening", "addr", serveAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}

	report, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("done",
		"terms_crawled", report.TermsCrawled,
		"terms_skipped", report.TermsSkipped,
		"items", report.Items,
		"mentions", report.Mentions)
	return nil
}
