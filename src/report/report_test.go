package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/batch"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/store"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

func init() {
	pterm.DisableStyling()
}

func records() []store.Record {
	return []store.Record{
		{
			ID:        1,
			SubjectID: "uploads/evil.svg",
			Path:      "uploads/evil.svg",
			Size:      120,
			Findings: []threat.Finding{
				threat.NewFinding(threat.TypeScriptTag, threat.SeverityCritical, "Script element", "<script>"),
				threat.NewFinding(threat.TypeJSEventHandler, threat.SeverityHigh, "Event handler", "onload="),
			},
			Severity:  threat.SeverityCritical,
			Status:    store.StatusActive,
			ScannedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:        2,
			SubjectID: "uploads/also-evil.svg",
			Path:      "uploads/also-evil.svg",
			Findings: []threat.Finding{
				threat.NewFinding(threat.TypeScriptTag, threat.SeverityCritical, "Script element", "<script>"),
			},
			Severity:  threat.SeverityCritical,
			Status:    store.StatusQuarantined,
			ScannedAt: time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC),
		},
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, records()[0]))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "critical", got["severity"])
	assert.Equal(t, "uploads/evil.svg", got["subjectId"])
}

func TestSummaryTable(t *testing.T) {
	sum := batch.Summary{
		RunID:        "run-xyz",
		Eligible:     3,
		Scanned:      2,
		Flagged:      []batch.Flagged{{SubjectID: "uploads/evil.svg", Severity: threat.SeverityCritical, Findings: records()[0].Findings}},
		Errors:       []string{"broken.svg: reading: permission denied"},
		StoppedEarly: true,
		StopReason:   "time budget of 5m0s exceeded",
	}

	var buf bytes.Buffer
	require.NoError(t, SummaryTable(&buf, sum))
	out := buf.String()
	assert.Contains(t, out, "run-xyz")
	assert.Contains(t, out, "uploads/evil.svg")
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "time budget of 5m0s exceeded")
	assert.Contains(t, out, "permission denied")
}

func TestSummaryTable_Clean(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SummaryTable(&buf, batch.Summary{RunID: "r", Scanned: 4}))
	assert.Contains(t, buf.String(), "No threats found.")
}

func TestRecordsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RecordsTable(&buf, records()))
	out := buf.String()
	assert.Contains(t, out, "uploads/also-evil.svg")
	assert.Contains(t, out, "quarantined")
	assert.Contains(t, out, "2025-03-01 10:00")

	buf.Reset()
	require.NoError(t, RecordsTable(&buf, nil))
	assert.Contains(t, buf.String(), "No scan results.")
}

func TestStatisticsTable(t *testing.T) {
	st := store.Statistics{
		Total:      5,
		BySeverity: map[threat.Severity]int{threat.SeverityCritical: 2, threat.SeverityLow: 3},
		ByStatus:   map[store.Status]int{store.StatusActive: 5},
		Recent:     4,
	}
	var buf bytes.Buffer
	require.NoError(t, StatisticsTable(&buf, st))
	out := buf.String()
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "last 7 days")
	assert.Contains(t, out, "resolved")
}

type sarifLog struct {
	Version string `json:"version"`
	Runs    []struct {
		Tool struct {
			Driver struct {
				Name  string `json:"name"`
				Rules []struct {
					ID string `json:"id"`
				} `json:"rules"`
			} `json:"driver"`
		} `json:"tool"`
		Results []struct {
			RuleID    string `json:"ruleId"`
			Level     string `json:"level"`
			Locations []struct {
				PhysicalLocation struct {
					ArtifactLocation struct {
						URI string `json:"uri"`
					} `json:"artifactLocation"`
				} `json:"physicalLocation"`
			} `json:"locations"`
		} `json:"results"`
	} `json:"runs"`
}

func TestSARIF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SARIF(&buf, records()))

	var log sarifLog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)

	run := log.Runs[0]
	assert.Equal(t, "easy-svg-guard", run.Tool.Driver.Name)
	assert.Len(t, run.Tool.Driver.Rules, 2, "one rule per finding type")
	require.Len(t, run.Results, 3)
	assert.Equal(t, "script_tag", run.Results[0].RuleID)
	assert.Equal(t, "error", run.Results[0].Level)
	assert.Equal(t, "uploads/also-evil.svg", run.Results[2].Locations[0].PhysicalLocation.ArtifactLocation.URI)
}

func TestSarifLevel(t *testing.T) {
	assert.Equal(t, "error", sarifLevel(threat.SeverityHigh))
	assert.Equal(t, "warning", sarifLevel(threat.SeverityMedium))
	assert.Equal(t, "note", sarifLevel(threat.SeverityLow))
}
