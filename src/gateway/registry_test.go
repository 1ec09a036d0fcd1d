package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/config"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/store"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/transport"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

const (
	cleanSVG  = `<svg xmlns="http://www.w3.org/2000/svg" width="4" height="4"><rect width="4" height="4"/></svg>`
	scriptSVG = `<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script><rect onclick="steal()" width="1" height="1"/></svg>`
)

func testService(t *testing.T) *Service {
	t.Helper()
	cfg := config.Default()
	cfg.Quarantine.Dir = filepath.Join(t.TempDir(), "quarantine")
	cfg.Quarantine.Root = t.TempDir()
	svc, err := NewService(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

// connect registers the tools on a fresh upstream and returns a client
// session talking to it over in-memory transports.
func connect(t *testing.T, ctx context.Context, svc *Service) *mcp.ClientSession {
	t.Helper()

	upstream := transport.NewUpstream(config.UpstreamConfig{Transport: config.TransportStdio}, testLogger())
	if n := NewRegistry(upstream, svc, testLogger()).Register(); n != 6 {
		t.Fatalf("registered %d tools, want 6", n)
	}

	srvTransport, clientTransport := mcp.NewInMemoryTransports()
	go func() {
		_ = upstream.Server.Run(ctx, srvTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func call(t *testing.T, ctx context.Context, s *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := s.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool %s: %v", name, err)
	}
	return res
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result content")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want *TextContent", res.Content[0])
	}
	return tc.Text
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool error: %s", textOf(t, res))
	}
	var out T
	if err := json.Unmarshal([]byte(textOf(t, res)), &out); err != nil {
		t.Fatalf("decoding %q: %v", textOf(t, res), err)
	}
	return out
}

func TestRegistry_listsTools(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := connect(t, ctx, testService(t))

	var names []string
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			t.Fatalf("listing tools: %v", err)
		}
		names = append(names, tool.Name)
	}
	want := []string{"check_svg", "sanitize_svg", "scan_results", "scan_statistics", "scan_svg", "set_scan_status"}
	got := strings.Join(sortedCopy(names), ",")
	if got != strings.Join(want, ",") {
		t.Errorf("tools = %s, want %s", got, strings.Join(want, ","))
	}
}

func TestRegistry_sanitize(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := connect(t, ctx, testService(t))

	out := decode[SanitizeOutput](t, call(t, ctx, session, "sanitize_svg", map[string]any{
		"content": scriptSVG,
		"policy":  "strict",
	}))
	if out.Verdict != "modify" {
		t.Errorf("verdict = %q, want modify", out.Verdict)
	}
	if strings.Contains(out.Content, "script") || strings.Contains(out.Content, "onclick") {
		t.Errorf("content still dangerous: %s", out.Content)
	}
	if len(out.Removed) < 2 {
		t.Errorf("removed = %+v, want script and onclick", out.Removed)
	}
}

func TestRegistry_sanitizeDefaultPolicy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := connect(t, ctx, testService(t))

	out := decode[SanitizeOutput](t, call(t, ctx, session, "sanitize_svg", map[string]any{"content": cleanSVG}))
	if out.Policy != config.DefaultPolicy {
		t.Errorf("policy = %q, want %q", out.Policy, config.DefaultPolicy)
	}
	if out.Verdict != "pass" {
		t.Errorf("verdict = %q, want pass", out.Verdict)
	}
}

func TestRegistry_sanitizeErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := connect(t, ctx, testService(t))

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"unknown policy", map[string]any{"content": cleanSVG, "policy": "lenient"}, "unknown policy"},
		{"not svg", map[string]any{"content": "<html/>"}, "blocked"},
		{"malformed", map[string]any{"content": "<svg><g></svg>"}, "blocked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, ctx, session, "sanitize_svg", tt.args)
			if !res.IsError {
				t.Fatalf("expected IsError, got %s", textOf(t, res))
			}
			if !strings.Contains(textOf(t, res), tt.want) {
				t.Errorf("error = %q, want substring %q", textOf(t, res), tt.want)
			}
		})
	}
}

func TestRegistry_scanCachesAndQueries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := connect(t, ctx, testService(t))

	args := map[string]any{"subjectId": "42", "path": "/uploads/x.svg", "content": scriptSVG}
	first := decode[ScanOutput](t, call(t, ctx, session, "scan_svg", args))
	if first.Cached {
		t.Error("first scan cached")
	}
	if first.Record.Severity != "critical" {
		t.Errorf("severity = %q, want critical", first.Record.Severity)
	}

	second := decode[ScanOutput](t, call(t, ctx, session, "scan_svg", args))
	if !second.Cached || second.Record.ID != first.Record.ID {
		t.Errorf("second scan = %+v, want cached record %d", second, first.Record.ID)
	}

	decode[ScanOutput](t, call(t, ctx, session, "scan_svg", map[string]any{"subjectId": "43", "content": cleanSVG}))

	res := decode[ResultsOutput](t, call(t, ctx, session, "scan_results", map[string]any{"severity": "critical"}))
	if len(res.Results) != 1 || res.Results[0].SubjectID != "42" {
		t.Errorf("results = %+v, want subject 42 only", res.Results)
	}

	stats := decode[StatisticsOutput](t, call(t, ctx, session, "scan_statistics", map[string]any{}))
	if stats.Total != 2 || stats.BySeverity["critical"] != 1 || stats.BySeverity["low"] != 1 {
		t.Errorf("statistics = %+v", stats)
	}
}

func TestRegistry_scanResultsRejectsBadFilter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := connect(t, ctx, testService(t))

	for _, args := range []map[string]any{
		{"severity": "catastrophic"},
		{"status": "archived"},
		{"orderBy": "hash"},
	} {
		if res := call(t, ctx, session, "scan_results", args); !res.IsError {
			t.Errorf("args %v: expected IsError", args)
		}
	}
}

func TestRegistry_check(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := testService(t)
	session := connect(t, ctx, svc)

	type verdict struct {
		Safe     bool   `json:"safe"`
		Severity string `json:"severity"`
	}
	got := decode[verdict](t, call(t, ctx, session, "check_svg", map[string]any{"content": scriptSVG}))
	if got.Safe || got.Severity != "critical" {
		t.Errorf("verdict = %+v, want unsafe critical", got)
	}

	stats, err := svc.Store.Statistics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 0 {
		t.Errorf("check stored %d records, want 0", stats.Total)
	}
}

func TestRegistry_setStatusQuarantines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := testService(t)
	session := connect(t, ctx, svc)

	path := filepath.Join(svc.Config.Quarantine.Root, "evil.svg")
	if err := os.WriteFile(path, []byte(scriptSVG), 0o644); err != nil {
		t.Fatal(err)
	}
	decode[ScanOutput](t, call(t, ctx, session, "scan_svg", map[string]any{"subjectId": "7", "path": "evil.svg", "content": scriptSVG}))

	rec := decode[RecordView](t, call(t, ctx, session, "set_scan_status", map[string]any{
		"subjectId": "7",
		"status":    "quarantined",
	}))
	if rec.Status != string(store.StatusQuarantined) {
		t.Errorf("status = %q, want quarantined", rec.Status)
	}
	if !strings.HasPrefix(rec.Notes, "Moved to: "+svc.Config.Quarantine.Dir) {
		t.Errorf("notes = %q", rec.Notes)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file not moved: %v", err)
	}

	res := call(t, ctx, session, "set_scan_status", map[string]any{"subjectId": "7", "status": "quarantined"})
	if !res.IsError {
		t.Error("repeated transition should fail")
	}

	rec = decode[RecordView](t, call(t, ctx, session, "set_scan_status", map[string]any{
		"subjectId": "7",
		"status":    "resolved",
		"notes":     "<b>false positive</b>",
	}))
	if rec.Notes != "false positive" {
		t.Errorf("notes = %q, want scrubbed text", rec.Notes)
	}
}

func TestRegistry_setStatusLeavesFilesOutsideRoot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := testService(t)
	session := connect(t, ctx, svc)

	victim := filepath.Join(t.TempDir(), "unrelated.conf")
	if err := os.WriteFile(victim, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	decode[ScanOutput](t, call(t, ctx, session, "scan_svg", map[string]any{"subjectId": "9", "path": victim, "content": scriptSVG}))

	for _, status := range []string{"deleted", "quarantined"} {
		res := call(t, ctx, session, "set_scan_status", map[string]any{"subjectId": "9", "status": status})
		if !res.IsError {
			t.Errorf("%s: expected an error result", status)
		}
	}
	if _, err := os.Stat(victim); err != nil {
		t.Errorf("file outside root touched: %v", err)
	}
}
