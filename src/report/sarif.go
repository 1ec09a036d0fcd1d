package report

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/scan"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/store"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

const informationURI = "https://github.com/Easy-Infra-Ltd/easy-svg-guard"

// SARIF writes recs as a SARIF 2.1.0 log with one rule per finding type
// and one result per finding.
func SARIF(w io.Writer, recs []store.Record) error {
	log, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("creating SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI("easy-svg-guard", informationURI)
	version := scan.Version
	run.Tool.Driver.Version = &version
	for _, rec := range recs {
		for _, f := range rec.Findings {
			rule := run.AddRule(string(f.Type)).
				WithDescription(f.Description).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{
					Level: sarifLevel(f.Severity),
				})

			location := sarif.NewLocation().WithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewArtifactLocation().WithUri(rec.Path)),
			)
			msg := f.Description
			if f.Pattern != "" {
				msg += ": " + f.Pattern
			}
			result := sarif.NewRuleResult(rule.ID).
				WithMessage(sarif.NewTextMessage(msg)).
				WithLevel(sarifLevel(f.Severity)).
				WithLocations([]*sarif.Location{location})
			run.AddResult(result)
		}
	}
	log.AddRun(run)
	return log.PrettyWrite(w)
}

func sarifLevel(s threat.Severity) string {
	switch s {
	case threat.SeverityCritical, threat.SeverityHigh:
		return "error"
	case threat.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
