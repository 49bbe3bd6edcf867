package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/v0xg/pagescope/internal/browser"
	"github.com/v0xg/pagescope/internal/tools"
)

const version = "0.1.0"

var (
	navTimeout time.Duration
	logLevel   string
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "pagescope",
		Short: "Expose live webpage inspection to AI assistants over MCP",
		Long: `pagescope drives a Chrome instance and serves three MCP tools on stdio:
accessibility-tree snapshots with uid-tagged interactive elements,
JavaScript evaluation in page context, and viewport screenshots.

Set PAGESCOPE_HEADLESS=true to hide the browser window; any other value
(or unset) launches it visibly.`,
		Args: cobra.NoArgs,
		RunE: run,
	}

	rootCmd.Flags().DurationVar(&navTimeout, "nav-timeout", 30*time.Second, "Timeout for page navigations")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// Logs go to stderr; stdout belongs to the MCP transport.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := browser.New(logger)
	defer b.Close()

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "pagescope",
		Version: version,
	}, nil)
	ts := tools.New(b, tools.Config{NavTimeout: navTimeout, Logger: logger})
	ts.Register(srv)

	logger.Info("pagescope: serving MCP on stdio", "version", version, "nav_timeout", navTimeout)
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
