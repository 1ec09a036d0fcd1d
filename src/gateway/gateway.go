package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/batch"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/config"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/detect"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/policy"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/quarantine"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/sanitizer"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/scan"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/store"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/svgdoc"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/transport"
)

// Service holds every component built from one Config. The CLI and the
// MCP gateway share it.
type Service struct {
	Config     config.Config
	Catalog    *policy.Catalog
	Sanitizer  *sanitizer.Sanitizer
	Store      store.Store
	Scanner    *scan.Scanner
	Batch      *batch.Orchestrator
	Quarantine *quarantine.Manager

	logger *slog.Logger
}

// DocumentLimits converts the configured limits for the parser.
func DocumentLimits(cfg config.LimitsConfig) svgdoc.Limits {
	return svgdoc.Limits{MaxBytes: cfg.MaxDocumentBytes, MaxDepth: cfg.MaxDepth}
}

// DecodeLimits converts the configured limits for the encoded-content
// detector.
func DecodeLimits(cfg config.LimitsConfig) detect.Limits {
	return detect.Limits{
		MaxEncodedRun:  cfg.MaxEncodedRun,
		MaxEncodedRuns: cfg.MaxEncodedRuns,
		MaxDecodeDepth: cfg.MaxDecodeDepth,
	}
}

// NewService resolves the policy catalog, opens the store and wires the
// scanner, orchestrator and quarantine manager. The default policy must
// exist; an unknown name is a startup error.
func NewService(cfg config.Config, logger *slog.Logger) (*Service, error) {
	catalog := policy.NewCatalog()
	if cfg.Policy.Pack != "" {
		if err := catalog.LoadPack(cfg.Policy.Pack); err != nil {
			return nil, fmt.Errorf("policy pack: %w", err)
		}
	}
	if _, err := catalog.Lookup(cfg.Policy.Default); err != nil {
		return nil, fmt.Errorf("default policy: %w", err)
	}

	st, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}

	docLimits := DocumentLimits(cfg.Limits)
	scanner := scan.New(logger, st, detect.DefaultEngine(DecodeLimits(cfg.Limits)), docLimits, cfg.Cache.Freshness.Std())

	return &Service{
		Config:     cfg,
		Catalog:    catalog,
		Sanitizer:  sanitizer.New(catalog, docLimits),
		Store:      st,
		Scanner:    scanner,
		Batch:      batch.New(logger, scanner),
		Quarantine: quarantine.New(logger, st, cfg.Quarantine.Dir, cfg.Quarantine.Root),
		logger:     logger.With("area", "service"),
	}, nil
}

// SetStatus applies an operator decision. Quarantine and delete act on
// the file stored with the subject's latest record.
func (s *Service) SetStatus(ctx context.Context, subjectID string, status store.Status, notes string) (store.Record, error) {
	switch {
	case status == store.StatusQuarantined:
		return s.Quarantine.Quarantine(ctx, subjectID, notes)
	case status == store.StatusDeleted:
		return s.Quarantine.Delete(ctx, subjectID, notes)
	case status == store.StatusResolved:
		return s.Quarantine.Resolve(ctx, subjectID, notes)
	case status.Valid():
		return s.Store.SetStatus(ctx, subjectID, status, notes)
	default:
		return store.Record{}, fmt.Errorf("%w: unknown status %q", store.ErrInvalidTransition, status)
	}
}

func (s *Service) Close() error {
	return s.Store.Close()
}

// Gateway serves the Service's tools to MCP clients.
type Gateway struct {
	svc    *Service
	logger *slog.Logger
}

func New(svc *Service, logger *slog.Logger) *Gateway {
	return &Gateway{svc: svc, logger: logger}
}

// Run registers the tools and serves until SIGINT/SIGTERM or ctx
// cancellation.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	upstream := transport.NewUpstream(g.svc.Config.Upstream, g.logger)
	count := NewRegistry(upstream, g.svc, g.logger).Register()
	g.logger.Info("tools registered", "total", count, "transport", g.svc.Config.Upstream.Transport)

	err := upstream.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
