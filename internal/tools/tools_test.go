package tools

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/v0xg/pagescope/internal/snapshot"
)

var testImpl = &mcp.Implementation{Name: "pagescope-test", Version: "0.0.1"}

// fakeBrowser satisfies Browser without launching anything.
type fakeBrowser struct {
	connectErr error
	navErr     error
	tree       *snapshot.Node
	treeErr    error
	evalResult any
	evalErr    error
	shot       []byte
	shotErr    error

	connects  int
	navigated []string
	evaluated []string
}

func (f *fakeBrowser) Connect(context.Context) error { f.connects++; return f.connectErr }

func (f *fakeBrowser) Navigate(_ context.Context, rawURL string, _ time.Duration) error {
	f.navigated = append(f.navigated, rawURL)
	return f.navErr
}

func (f *fakeBrowser) AXTree(context.Context) (*snapshot.Node, error) {
	return f.tree, f.treeErr
}

func (f *fakeBrowser) Eval(_ context.Context, script string) (any, error) {
	f.evaluated = append(f.evaluated, script)
	return f.evalResult, f.evalErr
}

func (f *fakeBrowser) Screenshot(context.Context) ([]byte, error) {
	return f.shot, f.shotErr
}

func mcpSession(t *testing.T, fake *fakeBrowser) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testImpl, nil)
	New(fake, Config{}).Register(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return result
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty content")
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

// --- take_snapshot ---

func TestTakeSnapshot_SingleLink(t *testing.T) {
	fake := &fakeBrowser{tree: &snapshot.Node{Role: "link", Name: "Skip to content"}}
	session := mcpSession(t, fake)

	result := callTool(t, session, "take_snapshot", map[string]any{})
	if result.IsError {
		t.Fatalf("unexpected error: %s", textOf(t, result))
	}
	text := textOf(t, result)

	if !strings.Contains(text, "Accessibility Snapshot (1 interactive elements)") {
		t.Errorf("header missing:\n%s", text)
	}
	if !strings.Contains(text, `[uid_1] link "Skip to content"`) {
		t.Errorf("uid line missing:\n%s", text)
	}
	if fake.connects != 1 {
		t.Errorf("connects = %d, want 1", fake.connects)
	}
	if len(fake.navigated) != 0 {
		t.Errorf("navigated without url argument: %v", fake.navigated)
	}
}

func TestTakeSnapshot_NavigatesWhenURLGiven(t *testing.T) {
	fake := &fakeBrowser{tree: &snapshot.Node{Role: "link", Name: "Home"}}
	session := mcpSession(t, fake)

	result := callTool(t, session, "take_snapshot", map[string]any{"url": "https://example.com"})
	if result.IsError {
		t.Fatalf("unexpected error: %s", textOf(t, result))
	}
	if len(fake.navigated) != 1 || fake.navigated[0] != "https://example.com" {
		t.Errorf("navigated = %v", fake.navigated)
	}
}

func TestTakeSnapshot_NoTreeSentinel(t *testing.T) {
	fake := &fakeBrowser{tree: nil}
	session := mcpSession(t, fake)

	result := callTool(t, session, "take_snapshot", map[string]any{})
	if result.IsError {
		t.Fatalf("absent tree is not an error: %s", textOf(t, result))
	}
	if got := textOf(t, result); got != snapshot.NoTreeSentinel {
		t.Errorf("got %q, want exactly the sentinel", got)
	}
}

func TestTakeSnapshot_RejectsNonHTTPURL(t *testing.T) {
	fake := &fakeBrowser{}
	session := mcpSession(t, fake)

	result := callTool(t, session, "take_snapshot", map[string]any{"url": "ftp://example.com"})
	if !result.IsError {
		t.Fatal("expected error flag")
	}
	text := textOf(t, result)
	if !strings.HasPrefix(text, "Error: ") || !strings.Contains(text, `"ftp"`) {
		t.Errorf("message must be Error-prefixed and name the scheme: %q", text)
	}
	if fake.connects != 0 {
		t.Error("browser touched despite validation failure")
	}
}

func TestTakeSnapshot_NavigationErrorReported(t *testing.T) {
	fake := &fakeBrowser{navErr: errors.New("navigation to https://x timed out after 30s")}
	session := mcpSession(t, fake)

	result := callTool(t, session, "take_snapshot", map[string]any{"url": "https://x.example"})
	if !result.IsError {
		t.Fatal("expected error flag")
	}
	if text := textOf(t, result); !strings.Contains(text, "timed out") {
		t.Errorf("navigation error lost: %q", text)
	}
}

func TestTakeSnapshot_VerboseTagsEverything(t *testing.T) {
	fake := &fakeBrowser{tree: &snapshot.Node{
		Role: "RootWebArea",
		Children: []*snapshot.Node{
			{Role: "heading", Name: "Title"},
		},
	}}
	session := mcpSession(t, fake)

	result := callTool(t, session, "take_snapshot", map[string]any{"verbose": true})
	text := textOf(t, result)
	if !strings.Contains(text, "Accessibility Snapshot (2 interactive elements)") {
		t.Errorf("verbose count wrong:\n%s", text)
	}
	if !strings.Contains(text, `[uid_2] heading "Title"`) {
		t.Errorf("heading untagged in verbose mode:\n%s", text)
	}
}

// --- evaluate_script ---

func TestEvaluateScript_Expression(t *testing.T) {
	fake := &fakeBrowser{evalResult: float64(2)}
	session := mcpSession(t, fake)

	result := callTool(t, session, "evaluate_script", map[string]any{"script": "1+1"})
	if result.IsError {
		t.Fatalf("unexpected error: %s", textOf(t, result))
	}
	got := textOf(t, result)
	want := "Script executed successfully. Result:\n2"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if len(fake.evaluated) != 1 || fake.evaluated[0] != "1+1" {
		t.Errorf("evaluated = %v", fake.evaluated)
	}
}

func TestEvaluateScript_ObjectResult(t *testing.T) {
	fake := &fakeBrowser{evalResult: map[string]any{"title": "Demo"}}
	session := mcpSession(t, fake)

	result := callTool(t, session, "evaluate_script", map[string]any{"script": "({title: document.title})"})
	got := textOf(t, result)
	if !strings.Contains(got, "\"title\": \"Demo\"") {
		t.Errorf("result not pretty-printed: %q", got)
	}
}

func TestEvaluateScript_NullResult(t *testing.T) {
	fake := &fakeBrowser{evalResult: nil}
	session := mcpSession(t, fake)

	result := callTool(t, session, "evaluate_script", map[string]any{"script": "void 0"})
	if got := textOf(t, result); got != "Script executed successfully. Result:\nnull" {
		t.Errorf("got %q", got)
	}
}

func TestEvaluateScript_RequiresScript(t *testing.T) {
	fake := &fakeBrowser{}
	session := mcpSession(t, fake)

	result := callTool(t, session, "evaluate_script", map[string]any{})
	if !result.IsError {
		t.Fatal("expected error flag")
	}
	if text := textOf(t, result); !strings.Contains(text, "script is required") {
		t.Errorf("got %q", text)
	}
	if fake.connects != 0 {
		t.Error("browser touched despite validation failure")
	}
}

func TestEvaluateScript_ExecutionErrorPropagates(t *testing.T) {
	fake := &fakeBrowser{evalErr: errors.New("ReferenceError: foo is not defined")}
	session := mcpSession(t, fake)

	result := callTool(t, session, "evaluate_script", map[string]any{"script": "foo()"})
	if !result.IsError {
		t.Fatal("expected error flag")
	}
	if text := textOf(t, result); !strings.Contains(text, "ReferenceError: foo is not defined") {
		t.Errorf("delegate error must propagate unmodified: %q", text)
	}
}

func TestConnectErrorReported(t *testing.T) {
	fake := &fakeBrowser{connectErr: errors.New("browser connection failed: no chrome binary")}
	session := mcpSession(t, fake)

	for _, tool := range []string{"take_snapshot", "evaluate_script", "take_screenshot"} {
		args := map[string]any{}
		if tool == "evaluate_script" {
			args["script"] = "1"
		}
		result := callTool(t, session, tool, args)
		if !result.IsError {
			t.Errorf("%s: expected error flag", tool)
			continue
		}
		if text := textOf(t, result); !strings.Contains(text, "no chrome binary") {
			t.Errorf("%s: got %q", tool, text)
		}
	}
}

// --- take_screenshot ---

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestTakeScreenshot_ReturnsImage(t *testing.T) {
	fake := &fakeBrowser{shot: encodePNG(t, 64, 32)}
	session := mcpSession(t, fake)

	result := callTool(t, session, "take_screenshot", map[string]any{})
	if result.IsError {
		t.Fatalf("unexpected error: %s", textOf(t, result))
	}
	ic, ok := result.Content[0].(*mcp.ImageContent)
	if !ok {
		t.Fatalf("expected ImageContent, got %T", result.Content[0])
	}
	if ic.MIMEType != "image/png" {
		t.Errorf("mime = %q", ic.MIMEType)
	}
	if len(ic.Data) == 0 {
		t.Error("empty image data")
	}
}

func TestTakeScreenshot_ScalesDown(t *testing.T) {
	fake := &fakeBrowser{shot: encodePNG(t, 200, 100)}
	session := mcpSession(t, fake)

	result := callTool(t, session, "take_screenshot", map[string]any{"max_width": 100})
	ic, ok := result.Content[0].(*mcp.ImageContent)
	if !ok {
		t.Fatalf("expected ImageContent, got %T", result.Content[0])
	}
	img, _, err := image.Decode(bytes.NewReader(ic.Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("scaled to %dx%d, want 100x50", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestScaleDown_PassThroughWhenNarrow(t *testing.T) {
	data := encodePNG(t, 50, 50)
	out, err := scaleDown(data, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Error("narrow image must pass through untouched")
	}
}
