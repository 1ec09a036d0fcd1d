// Package report renders scan results for terminals, machines and code
// scanning dashboards.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/batch"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/store"
	"github.com/Easy-Infra-Ltd/easy-svg-guard/src/threat"
)

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func severityLabel(s threat.Severity) string {
	label := strings.ToUpper(string(s))
	switch s {
	case threat.SeverityCritical, threat.SeverityHigh:
		return pterm.FgRed.Sprint(label)
	case threat.SeverityMedium:
		return pterm.FgYellow.Sprint(label)
	default:
		return pterm.FgBlue.Sprint(label)
	}
}

func renderTable(w io.Writer, data [][]string) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// SummaryTable writes the run totals followed by the flagged subjects.
func SummaryTable(w io.Writer, sum batch.Summary) error {
	totals := [][]string{
		{"Run", "Eligible", "Scanned", "Cached", "Errors", "Findings", "Chunks", "Duration"},
		{
			sum.RunID,
			strconv.Itoa(sum.Eligible),
			strconv.Itoa(sum.Scanned),
			strconv.Itoa(sum.Cached),
			strconv.Itoa(len(sum.Errors)),
			strconv.Itoa(sum.Findings),
			strconv.Itoa(sum.Chunks),
			sum.Duration.Round(1e6).String(),
		},
	}
	if err := renderTable(w, totals); err != nil {
		return err
	}
	if sum.StoppedEarly {
		fmt.Fprintln(w, pterm.Warning.Sprint("Stopped early: "+sum.StopReason))
	}

	if len(sum.Flagged) == 0 {
		fmt.Fprintln(w, pterm.Success.Sprint("No threats found."))
	} else {
		data := [][]string{{"Severity", "Subject", "Findings", "Top finding"}}
		for _, f := range sum.Flagged {
			top := ""
			if len(f.Findings) > 0 {
				top = f.Findings[0].Description
			}
			data = append(data, []string{
				severityLabel(f.Severity),
				pterm.FgCyan.Sprint(f.SubjectID),
				strconv.Itoa(len(f.Findings)),
				top,
			})
		}
		if err := renderTable(w, data); err != nil {
			return err
		}
	}

	for _, e := range sum.Errors {
		fmt.Fprintln(w, pterm.Error.Sprint(e))
	}
	for _, warn := range sum.Warnings {
		fmt.Fprintln(w, pterm.Warning.Sprint(warn))
	}
	return nil
}

// RecordsTable writes one row per stored record.
func RecordsTable(w io.Writer, recs []store.Record) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, pterm.Info.Sprint("No scan results."))
		return err
	}
	data := [][]string{{"ID", "Severity", "Status", "Subject", "Findings", "Size", "Scanned"}}
	for _, r := range recs {
		data = append(data, []string{
			strconv.FormatInt(r.ID, 10),
			severityLabel(r.Severity),
			string(r.Status),
			r.SubjectID,
			strconv.Itoa(len(r.Findings)),
			strconv.FormatInt(r.Size, 10),
			r.ScannedAt.Format("2006-01-02 15:04"),
		})
	}
	return renderTable(w, data)
}

// StatisticsTable writes counts by severity and by status.
func StatisticsTable(w io.Writer, st store.Statistics) error {
	data := [][]string{{"Group", "Value", "Count"}}
	for _, s := range threat.Severities() {
		data = append(data, []string{"severity", severityLabel(s), strconv.Itoa(st.BySeverity[s])})
	}
	for _, s := range store.Statuses() {
		data = append(data, []string{"status", string(s), strconv.Itoa(st.ByStatus[s])})
	}
	data = append(data,
		[]string{"recent", "last 7 days", strconv.Itoa(st.Recent)},
		[]string{"total", "", strconv.Itoa(st.Total)},
	)
	return renderTable(w, data)
}
