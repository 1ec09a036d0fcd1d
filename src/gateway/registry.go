// Package gateway builds the scanning service from configuration and
// exposes it as MCP tools.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/sanitizer"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/scan"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/store"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/transport"
)

const defaultResultLimit = 50

// Registry adds the service's tools to an upstream server. Handler errors
// reach the client as IsError results.
type Registry struct {
	upstream *transport.Upstream
	svc      *Service
	logger   *slog.Logger
}

func NewRegistry(upstream *transport.Upstream, svc *Service, logger *slog.Logger) *Registry {
	return &Registry{
		upstream: upstream,
		svc:      svc,
		logger:   logger.With("area", "registry"),
	}
}

// Register adds every tool and returns how many were added.
func (r *Registry) Register() int {
	srv := r.upstream.Server

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "sanitize_svg",
		Description: "Rewrite an SVG document under a policy tier (strict, basic, advanced) and return the cleaned markup with a list of removals.",
	}, r.sanitize)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "scan_svg",
		Description: "Run every threat detector over an SVG document, classify its severity and store the result. Unchanged content within the freshness window returns the cached record.",
	}, r.scan)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "check_svg",
		Description: "Quick upload-time check for script, PHP, event handler and eval patterns. Nothing is stored.",
	}, r.check)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "scan_results",
		Description: "List stored scan records filtered by severity, status or subject.",
	}, r.results)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "scan_statistics",
		Description: "Count stored scan records by severity and status.",
	}, r.statistics)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "set_scan_status",
		Description: "Mark a subject quarantined, deleted, resolved or active. With a path, quarantine moves the file and delete removes it.",
	}, r.setStatus)

	return 6
}

type SanitizeInput struct {
	Content string `json:"content" jsonschema:"the SVG markup"`
	Policy  string `json:"policy,omitempty" jsonschema:"policy tier; defaults to the configured tier"`
}

type SanitizeOutput struct {
	Verdict string              `json:"verdict"`
	Policy  string              `json:"policy"`
	Content string              `json:"content"`
	Removed []sanitizer.Removal `json:"removed"`
	Width   float64             `json:"width,omitempty"`
	Height  float64             `json:"height,omitempty"`
}

func (r *Registry) sanitize(_ context.Context, _ *mcp.CallToolRequest, in SanitizeInput) (*mcp.CallToolResult, SanitizeOutput, error) {
	pol := in.Policy
	if pol == "" {
		pol = r.svc.Config.Policy.Default
	}
	res, err := r.svc.Sanitizer.Sanitize([]byte(in.Content), pol)
	if err != nil {
		r.logger.Warn("sanitize blocked", "policy", pol, "err", err)
		return nil, SanitizeOutput{}, fmt.Errorf("blocked: %w", err)
	}
	out := SanitizeOutput{
		Verdict: res.Verdict.String(),
		Policy:  res.Policy,
		Content: string(res.Content),
		Removed: res.Removed,
		Width:   res.Width,
		Height:  res.Height,
	}
	if out.Removed == nil {
		out.Removed = []sanitizer.Removal{}
	}
	return nil, out, nil
}

// RecordView is a store.Record with the timestamp rendered as RFC 3339.
type RecordView struct {
	ID             int64            `json:"id"`
	SubjectID      string           `json:"subjectId"`
	Path           string           `json:"path"`
	Size           int64            `json:"size"`
	Hash           string           `json:"hash"`
	Findings       []threat.Finding `json:"findings"`
	Severity       string           `json:"severity"`
	ScannedAt      string           `json:"scannedAt"`
	ScannerVersion string           `json:"scannerVersion"`
	Status         string           `json:"status"`
	Notes          string           `json:"notes"`
}

func viewOf(rec store.Record) RecordView {
	findings := rec.Findings
	if findings == nil {
		findings = []threat.Finding{}
	}
	return RecordView{
		ID:             rec.ID,
		SubjectID:      rec.SubjectID,
		Path:           rec.Path,
		Size:           rec.Size,
		Hash:           rec.Hash,
		Findings:       findings,
		Severity:       string(rec.Severity),
		ScannedAt:      rec.ScannedAt.UTC().Format(time.RFC3339),
		ScannerVersion: rec.ScannerVersion,
		Status:         string(rec.Status),
		Notes:          rec.Notes,
	}
}

type ScanInput struct {
	SubjectID string `json:"subjectId" jsonschema:"stable identifier of the document, e.g. an attachment id or path"`
	Path      string `json:"path,omitempty" jsonschema:"file path or reference stored with the record"`
	Content   string `json:"content" jsonschema:"the SVG markup"`
	Force     bool   `json:"force,omitempty" jsonschema:"rescan even if a fresh cached result exists"`
}

type ScanOutput struct {
	Record RecordView `json:"record"`
	Cached bool       `json:"cached"`
}

func (r *Registry) scan(ctx context.Context, _ *mcp.CallToolRequest, in ScanInput) (*mcp.CallToolResult, ScanOutput, error) {
	if in.SubjectID == "" {
		return nil, ScanOutput{}, fmt.Errorf("subjectId is required")
	}
	res, err := r.svc.Scanner.Scan(ctx, scan.Subject{ID: in.SubjectID, Path: in.Path}, []byte(in.Content), scan.Options{Force: in.Force})
	if err != nil {
		if res.Record.Hash == "" {
			return nil, ScanOutput{}, err
		}
		// The verdict stands even though it was not persisted.
		r.logger.Warn("scan result not stored", "subject", in.SubjectID, "err", err)
	}
	return nil, ScanOutput{Record: viewOf(res.Record), Cached: res.Cached}, nil
}

type CheckInput struct {
	Content string `json:"content" jsonschema:"the SVG markup"`
}

func (r *Registry) check(_ context.Context, _ *mcp.CallToolRequest, in CheckInput) (*mcp.CallToolResult, scan.Verdict, error) {
	v, err := r.svc.Scanner.Check([]byte(in.Content))
	if err != nil {
		return nil, scan.Verdict{}, err
	}
	if v.Findings == nil {
		v.Findings = []threat.Finding{}
	}
	return nil, v, nil
}

type ResultsInput struct {
	Severity  string `json:"severity,omitempty" jsonschema:"low, medium, high or critical"`
	Status    string `json:"status,omitempty" jsonschema:"active, quarantined, deleted or resolved"`
	SubjectID string `json:"subjectId,omitempty"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum records to return; default 50"`
	Offset    int    `json:"offset,omitempty"`
	OrderBy   string `json:"orderBy,omitempty" jsonschema:"scanned_at, severity, size, subject_id or id"`
	Ascending bool   `json:"ascending,omitempty" jsonschema:"sort ascending; default is newest or most severe first"`
}

type ResultsOutput struct {
	Results []RecordView `json:"results"`
}

func (r *Registry) results(ctx context.Context, _ *mcp.CallToolRequest, in ResultsInput) (*mcp.CallToolResult, ResultsOutput, error) {
	f, err := FilterFrom(in.Severity, in.Status, in.SubjectID, in.OrderBy, in.Limit, in.Offset, !in.Ascending)
	if err != nil {
		return nil, ResultsOutput{}, err
	}
	recs, err := r.svc.Store.Query(ctx, f)
	if err != nil {
		return nil, ResultsOutput{}, err
	}
	out := ResultsOutput{Results: make([]RecordView, 0, len(recs))}
	for _, rec := range recs {
		out.Results = append(out.Results, viewOf(rec))
	}
	return nil, out, nil
}

// FilterFrom validates user-supplied query parameters.
func FilterFrom(severity, status, subjectID, orderBy string, limit, offset int, desc bool) (store.Filter, error) {
	f := store.Filter{SubjectID: subjectID, Limit: limit, Offset: offset, Desc: desc}
	if severity != "" {
		sev, err := threat.ParseSeverity(severity)
		if err != nil {
			return store.Filter{}, err
		}
		f.Severity = sev
	}
	if status != "" {
		f.Status = store.Status(status)
		if !f.Status.Valid() {
			return store.Filter{}, fmt.Errorf("unknown status %q", status)
		}
	}
	switch store.OrderField(orderBy) {
	case "":
		f.OrderBy = store.OrderScannedAt
	case store.OrderScannedAt, store.OrderSeverity, store.OrderSize, store.OrderSubject, store.OrderID:
		f.OrderBy = store.OrderField(orderBy)
	default:
		return store.Filter{}, fmt.Errorf("cannot order by %q", orderBy)
	}
	if f.Limit <= 0 {
		f.Limit = defaultResultLimit
	}
	if f.Offset < 0 {
		return store.Filter{}, fmt.Errorf("offset must not be negative")
	}
	return f, nil
}

type StatisticsInput struct{}

type StatisticsOutput struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"bySeverity"`
	ByStatus   map[string]int `json:"byStatus"`
	Recent     int            `json:"recent"`
}

func (r *Registry) statistics(ctx context.Context, _ *mcp.CallToolRequest, _ StatisticsInput) (*mcp.CallToolResult, StatisticsOutput, error) {
	st, err := r.svc.Store.Statistics(ctx)
	if err != nil {
		return nil, StatisticsOutput{}, err
	}
	out := StatisticsOutput{
		Total:      st.Total,
		BySeverity: make(map[string]int, len(st.BySeverity)),
		ByStatus:   make(map[string]int, len(st.ByStatus)),
		Recent:     st.Recent,
	}
	for k, v := range st.BySeverity {
		out.BySeverity[string(k)] = v
	}
	for k, v := range st.ByStatus {
		out.ByStatus[string(k)] = v
	}
	return nil, out, nil
}

type SetStatusInput struct {
	SubjectID string `json:"subjectId"`
	Status    string `json:"status" jsonschema:"quarantined, deleted, resolved or active"`
	Notes     string `json:"notes,omitempty"`
}

func (r *Registry) setStatus(ctx context.Context, _ *mcp.CallToolRequest, in SetStatusInput) (*mcp.CallToolResult, RecordView, error) {
	rec, err := r.svc.SetStatus(ctx, in.SubjectID, store.Status(in.Status), in.Notes)
	if err != nil {
		return nil, RecordView{}, err
	}
	return nil, viewOf(rec), nil
}
