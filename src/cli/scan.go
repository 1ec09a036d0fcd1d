package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/batch"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/notify"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/report"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/source"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/store"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatSARIF = "sarif"
)

const (
	// ExitThreshold is the exit code when --fail-on is met.
	ExitThreshold = 2
	// ExitUnverified is the exit code when --fail-on is set and some
	// subjects were not scanned, either because they failed or because
	// the run stopped early.
	ExitUnverified = 4
)

type scanFlags struct {
	bucket    string
	prefix    string
	region    string
	profile   string
	force     bool
	batchSize int
	workers   int
	format    string
	failOn    string
	notify    bool
}

func (a *app) scanCommand() *cobra.Command {
	var f scanFlags
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Scan every SVG under a directory or S3 prefix",
		Long: `Scan walks a directory (or lists an S3 bucket with --s3-bucket) and runs
the full detector set over each SVG, in chunks bounded by the selected
profile's time and memory budgets. Unchanged files within the freshness
window reuse their stored result unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScan(cmd, args, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.bucket, "s3-bucket", "", "scan an S3 bucket instead of a directory")
	fl.StringVar(&f.prefix, "s3-prefix", "", "key prefix within the bucket")
	fl.StringVar(&f.region, "region", "", "AWS region (overrides config)")
	fl.StringVar(&f.profile, "profile", "full", `budget profile: "full" or "scheduled"`)
	fl.BoolVar(&f.force, "force", false, "ignore cached results")
	fl.IntVar(&f.batchSize, "batch-size", 0, "subjects per chunk (overrides profile)")
	fl.IntVar(&f.workers, "workers", 0, "concurrent scans per chunk (overrides profile)")
	fl.StringVarP(&f.format, "format", "o", formatTable, "output format: table, json or sarif")
	fl.StringVar(&f.failOn, "fail-on", "", "exit with code 2 if any file is at or above this severity")
	fl.BoolVar(&f.notify, "notify", false, "send a Slack alert when the notify threshold is met")
	return cmd
}

func (a *app) runScan(cmd *cobra.Command, args []string, f scanFlags) error {
	var failOn threat.Severity
	if f.failOn != "" {
		sev, err := threat.ParseSeverity(f.failOn)
		if err != nil {
			return err
		}
		failOn = sev
	}
	if err := checkFormat(f.format); err != nil {
		return err
	}

	svc, err := a.service()
	if err != nil {
		return err
	}
	defer svc.Close()
	cfg := svc.Config
	ctx := cmd.Context()

	maxBytes := int64(cfg.Limits.MaxDocumentBytes)
	var src source.Source
	switch {
	case f.bucket != "" || (len(args) == 0 && cfg.S3.Bucket != ""):
		bucket, prefix, region := firstNonEmpty(f.bucket, cfg.S3.Bucket), firstNonEmpty(f.prefix, cfg.S3.Prefix), firstNonEmpty(f.region, cfg.S3.Region)
		s3src, err := source.NewS3(ctx, region, bucket, prefix, maxBytes)
		if err != nil {
			return err
		}
		src = s3src
	case len(args) == 1:
		src = source.Dir{Root: args[0], MaxBytes: maxBytes}
	default:
		return errors.New("scan needs a directory or --s3-bucket")
	}

	subjects, err := src.List(ctx)
	if err != nil {
		return err
	}

	opts := batch.FromConfig(cfg.Profile(f.profile))
	if f.force {
		opts.Force = true
	}
	if f.batchSize > 0 {
		opts.BatchSize = f.batchSize
	}
	if f.workers > 0 {
		opts.Workers = f.workers
	}

	sum := svc.Batch.Run(ctx, subjects, src, opts)

	if err := writeSummary(cmd.OutOrStdout(), f.format, sum); err != nil {
		return err
	}

	if f.notify && cfg.Notify.Slack.WebhookURL != "" {
		threshold, err := threat.ParseSeverity(cfg.Notify.Threshold)
		if err != nil {
			return err
		}
		slack := notify.NewSlack(a.logger, cfg.Notify.Slack.WebhookURL, cfg.Notify.Slack.Channel, cfg.Notify.Slack.Username)
		if _, err := notify.Dispatch(ctx, slack, sum, threshold); err != nil {
			a.logger.Error("notification failed", "err", err)
		}
	}

	if failOn != "" && notify.ShouldNotify(sum, failOn) {
		return &ExitError{
			Code: ExitThreshold,
			Err:  fmt.Errorf("%d file(s) at or above %s", len(notify.Notable(sum, failOn)), failOn),
		}
	}
	if failOn != "" {
		if err := unverified(sum); err != nil {
			return &ExitError{Code: ExitUnverified, Err: err}
		}
	}
	return nil
}

// unverified reports subjects the run could not vouch for. A failed or
// skipped file is never treated as clean.
func unverified(sum batch.Summary) error {
	switch {
	case len(sum.Errors) > 0:
		return fmt.Errorf("%d file(s) could not be scanned: %s", len(sum.Errors), sum.Errors[0])
	case sum.StoppedEarly:
		return fmt.Errorf("%d of %d file(s) not scanned: %s", sum.Eligible-sum.Attempted, sum.Eligible, sum.StopReason)
	}
	return nil
}

func writeSummary(w io.Writer, format string, sum batch.Summary) error {
	switch format {
	case formatJSON:
		return report.JSON(w, sum)
	case formatSARIF:
		recs := make([]store.Record, 0, len(sum.Flagged))
		for _, fl := range sum.Flagged {
			recs = append(recs, store.Record{SubjectID: fl.SubjectID, Path: fl.Path, Findings: fl.Findings, Severity: fl.Severity})
		}
		return report.SARIF(w, recs)
	default:
		return report.SummaryTable(w, sum)
	}
}

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatSARIF:
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
