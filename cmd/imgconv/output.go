package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"imgconv/internal/queue"
	"imgconv/internal/workflow"
)

type itemReport struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	InputBytes  int64  `json:"input_bytes"`
	OutputBytes int64  `json:"output_bytes,omitempty"`
	SavedTo     string `json:"saved_to,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
	Error       string `json:"error,omitempty"`
}

type rejectionReport struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type archiveReport struct {
	Path     string `json:"path"`
	Files    int    `json:"files"`
	Fallback bool   `json:"fallback,omitempty"`
}

type convertReport struct {
	Format     string            `json:"format"`
	Quality    float64           `json:"quality"`
	Converted  int               `json:"converted"`
	Failed     int               `json:"failed"`
	DurationMS int64             `json:"duration_ms"`
	Items      []itemReport      `json:"items"`
	Rejected   []rejectionReport `json:"rejected,omitempty"`
	Archive    *archiveReport    `json:"archive,omitempty"`
}

// encode writes the report as indented JSON, the --json form of a run.
func (r convertReport) encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func newConvertReport(settings workflow.Settings, summary workflow.BatchSummary, rejected []workflow.Rejection) convertReport {
	report := convertReport{
		Format:     string(settings.Format),
		Quality:    settings.Quality,
		Converted:  summary.Converted,
		Failed:     summary.Failed,
		DurationMS: summary.Duration.Milliseconds(),
		Items:      []itemReport{},
	}
	for _, r := range rejected {
		reason := ""
		if r.Err != nil {
			reason = r.Err.Error()
		}
		report.Rejected = append(report.Rejected, rejectionReport{Name: r.Name, Type: r.Type, Reason: reason})
	}
	return report
}

func newItemReport(item *queue.Item) itemReport {
	report := itemReport{
		ID:         item.ID,
		Name:       item.Name,
		Status:     string(item.Status),
		InputBytes: item.Size,
		Error:      item.ErrorMessage,
	}
	if item.HasOutput() {
		report.OutputBytes = item.Output.Size()
	}
	return report
}

var statusCaser = cases.Title(language.Und)

func statusLabel(status string) string {
	return statusCaser.String(status)
}

func renderItemTable(items []itemReport, colorize bool) string {
	headers := []string{"ID", "File", "Status", "Input", "Output", "Result"}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		output := "-"
		if item.OutputBytes > 0 {
			output = formatSize(item.OutputBytes)
		}
		result := item.SavedTo
		if item.Error != "" {
			result = item.Error
		} else if item.Fallback {
			result += " (downloads)"
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Name,
			statusLabel(item.Status),
			formatSize(item.InputBytes),
			output,
			result,
		})
	}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
	var colors cellColor
	if colorize {
		colors = func(row, column int, value string) text.Colors {
			if column != 2 {
				return nil
			}
			switch queue.Status(items[row].Status) {
			case queue.StatusDone:
				return text.Colors{text.FgGreen}
			case queue.StatusError:
				return text.Colors{text.FgRed}
			case queue.StatusConverting:
				return text.Colors{text.FgYellow}
			default:
				return nil
			}
		}
	}
	return renderTable(headers, rows, aligns, colors)
}

func summaryLine(report convertReport) string {
	line := fmt.Sprintf("Converted %d of %d to %s at quality %.2f in %s",
		report.Converted, report.Converted+report.Failed, report.Format, report.Quality,
		(time.Duration(report.DurationMS) * time.Millisecond).Round(time.Millisecond))
	if report.Archive != nil {
		line += fmt.Sprintf("; archive %s (%d files)", report.Archive.Path, report.Archive.Files)
	}
	return line
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
