// Package tools registers the pagescope MCP tools and validates their
// arguments before any browser work happens. Failures become "Error: "
// text payloads with the MCP error flag; the process never crashes on
// a tool call.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/v0xg/pagescope/internal/browser"
	"github.com/v0xg/pagescope/internal/snapshot"
)

// Browser is the surface of the shared browser the tools rely on.
// *browser.Browser satisfies it; tests substitute fakes.
type Browser interface {
	Connect(ctx context.Context) error
	Navigate(ctx context.Context, rawURL string, timeout time.Duration) error
	AXTree(ctx context.Context) (*snapshot.Node, error)
	Eval(ctx context.Context, script string) (any, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// Config configures the toolset.
type Config struct {
	// NavTimeout bounds each navigation. Default: 30s.
	NavTimeout time.Duration

	Logger *slog.Logger
}

// Toolset exposes browser inspection over MCP.
type Toolset struct {
	browser    Browser
	navTimeout time.Duration
	log        *slog.Logger
}

// New creates a Toolset around a browser.
func New(b Browser, cfg Config) *Toolset {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Toolset{browser: b, navTimeout: cfg.NavTimeout, log: cfg.Logger}
}

// Register registers all pagescope tools on an MCP server.
func (t *Toolset) Register(srv *mcp.Server) {
	t.registerSnapshotTool(srv)
	t.registerEvaluateTool(srv)
	t.registerScreenshotTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
		IsError: true,
	}
}

// validateURL checks an optional url argument at the schema boundary.
func validateURL(raw string) error {
	if raw == "" {
		return nil
	}
	if navErr := browser.CheckTarget(raw); navErr != nil {
		return navErr
	}
	return nil
}

// --- take_snapshot ---

type snapshotReq struct {
	URL     string `json:"url,omitempty"`
	Verbose bool   `json:"verbose,omitempty"`
}

func (t *Toolset) registerSnapshotTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "take_snapshot",
		Description: "Capture the accessibility tree of the current page as an indented text report. " +
			"Interactive elements are tagged with uid_N identifiers. " +
			"Optionally navigates to a URL first. " +
			"With verbose=true every element with a role is tagged and descriptive attributes are kept.",
		InputSchema: inputSchema(map[string]any{
			"url":     map[string]any{"type": "string", "description": "Absolute http(s) URL to load before the snapshot"},
			"verbose": map[string]any{"type": "boolean", "description": "Keep descriptive attributes and tag every roled element"},
		}, nil),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r snapshotReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return errResult(fmt.Errorf("invalid arguments: %w", err)), nil
		}
		if err := validateURL(r.URL); err != nil {
			return errResult(err), nil
		}

		text, err := t.takeSnapshot(ctx, r.URL, r.Verbose)
		if err != nil {
			t.log.Warn("take_snapshot failed", "url", r.URL, "error", err)
			return errResult(err), nil
		}
		return textResult(text), nil
	})
}

func (t *Toolset) takeSnapshot(ctx context.Context, rawURL string, verbose bool) (string, error) {
	if err := t.browser.Connect(ctx); err != nil {
		return "", err
	}
	if rawURL != "" {
		if err := t.browser.Navigate(ctx, rawURL, t.navTimeout); err != nil {
			return "", err
		}
	}
	root, err := t.browser.AXTree(ctx)
	if err != nil {
		return "", err
	}
	return snapshot.Render(root, verbose), nil
}

// --- evaluate_script ---

type evaluateReq struct {
	Script string `json:"script"`
	URL    string `json:"url,omitempty"`
}

func (t *Toolset) registerEvaluateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "evaluate_script",
		Description: "Run JavaScript in the context of the loaded page and return the result as pretty-printed JSON. " +
			"Optionally navigates to a URL first. The script runs with full page privileges.",
		InputSchema: inputSchema(map[string]any{
			"script": map[string]any{"type": "string", "description": "JavaScript expression or function body to evaluate"},
			"url":    map[string]any{"type": "string", "description": "Absolute http(s) URL to load before evaluating"},
		}, []string{"script"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r evaluateReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return errResult(fmt.Errorf("invalid arguments: %w", err)), nil
		}
		if r.Script == "" {
			return errResult(fmt.Errorf("script is required")), nil
		}
		if err := validateURL(r.URL); err != nil {
			return errResult(err), nil
		}

		text, err := t.evaluateScript(ctx, r.Script, r.URL)
		if err != nil {
			t.log.Warn("evaluate_script failed", "error", err)
			return errResult(err), nil
		}
		return textResult(text), nil
	})
}

func (t *Toolset) evaluateScript(ctx context.Context, script, rawURL string) (string, error) {
	if err := t.browser.Connect(ctx); err != nil {
		return "", err
	}
	if rawURL != "" {
		if err := t.browser.Navigate(ctx, rawURL, t.navTimeout); err != nil {
			return "", err
		}
	}
	value, err := t.browser.Eval(ctx, script)
	if err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize result: %w", err)
	}
	return "Script executed successfully. Result:\n" + string(out), nil
}

// --- take_screenshot ---

type screenshotReq struct {
	URL      string `json:"url,omitempty"`
	MaxWidth int    `json:"max_width,omitempty"`
}

func (t *Toolset) registerScreenshotTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "take_screenshot",
		Description: "Capture a PNG screenshot of the current page viewport, optionally scaled down to a maximum width. " +
			"Optionally navigates to a URL first.",
		InputSchema: inputSchema(map[string]any{
			"url":       map[string]any{"type": "string", "description": "Absolute http(s) URL to load before the screenshot"},
			"max_width": map[string]any{"type": "integer", "description": "Scale the image down to this width, preserving aspect ratio"},
		}, nil),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r screenshotReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return errResult(fmt.Errorf("invalid arguments: %w", err)), nil
		}
		if err := validateURL(r.URL); err != nil {
			return errResult(err), nil
		}
		if r.MaxWidth < 0 {
			return errResult(fmt.Errorf("max_width must be positive")), nil
		}

		data, err := t.takeScreenshot(ctx, r.URL, r.MaxWidth)
		if err != nil {
			t.log.Warn("take_screenshot failed", "url", r.URL, "error", err)
			return errResult(err), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.ImageContent{Data: data, MIMEType: "image/png"}},
		}, nil
	})
}

func (t *Toolset) takeScreenshot(ctx context.Context, rawURL string, maxWidth int) ([]byte, error) {
	if err := t.browser.Connect(ctx); err != nil {
		return nil, err
	}
	if rawURL != "" {
		if err := t.browser.Navigate(ctx, rawURL, t.navTimeout); err != nil {
			return nil, err
		}
	}
	data, err := t.browser.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	if maxWidth > 0 {
		return scaleDown(data, uint(maxWidth))
	}
	return data, nil
}
