package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/retype/internal/pipeline"
)

// fileSummary is one row of a batch report.
type fileSummary struct {
	File     string           `json:"file"`
	Output   string           `json:"output,omitempty"`
	Error    string           `json:"error,omitempty"`
	Report   *pipeline.Report `json:"report,omitempty"`
	Accepted int              `json:"accepted"`
	Skipped  int              `json:"skipped"`
	Degraded int              `json:"degraded"`
}

func summarize(r *Result) []fileSummary {
	rows := make([]fileSummary, len(r.Files))
	for i, file := range r.Files {
		row := fileSummary{File: file}
		if i < len(r.Outputs) {
			row.Output = r.Outputs[i]
		}
		if i < len(r.Errors) && r.Errors[i] != nil {
			row.Error = r.Errors[i].Error()
		}
		if i < len(r.Results) && r.Results[i] != nil {
			rep := r.Results[i].Report
			row.Report = &rep
			row.Accepted = rep.Stats.Accepted
			row.Skipped = rep.Stats.SkippedTotal()
			row.Degraded = rep.Stats.Degraded
		}
		rows[i] = row
	}
	return rows
}

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(r *Result, format string) (string, error) {
	rows := summarize(r)
	switch format {
	case "json":
		return formatJSON(rows)
	case "csv":
		return formatCSV(rows)
	default: // text
		return formatText(rows), nil
	}
}

// formatJSON formats results as JSON.
func formatJSON(rows []fileSummary) (string, error) {
	obj := struct {
		Documents []fileSummary `json:"documents"`
	}{Documents: rows}

	bts, err := json.MarshalIndent(obj, "", "  ")
	return string(bts), err
}

// formatCSV formats results as CSV.
func formatCSV(rows []fileSummary) (string, error) {
	records := [][]string{{"file", "output", "accepted", "skipped", "degraded", "error"}}
	for _, row := range rows {
		records = append(records, []string{
			row.File,
			row.Output,
			strconv.Itoa(row.Accepted),
			strconv.Itoa(row.Skipped),
			strconv.Itoa(row.Degraded),
			row.Error,
		})
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.WriteAll(records); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// formatText formats results as human-readable text.
func formatText(rows []fileSummary) string {
	var sb strings.Builder
	for _, row := range rows {
		if row.Error != "" {
			sb.WriteString(fmt.Sprintf("# %s\nerror: %s\n\n", row.File, row.Error))
			continue
		}
		sb.WriteString(fmt.Sprintf("# %s -> %s\n", row.File, row.Output))
		sb.WriteString(fmt.Sprintf("segments: %d accepted, %d skipped, %d degraded\n\n",
			row.Accepted, row.Skipped, row.Degraded))
	}
	return sb.String()
}
