package main

import (
	"fmt"
	"showservice/internal/model"
	"sort"
	"strconv"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}

func formatPage(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func formatEstimate(n int) string {
	if n < 0 {
		return "unknown"
	}
	return strconv.Itoa(n)
}

func renderImportRuns(runs []*model.ImportRun) string {
	if len(runs) == 0 {
		return "No imports recorded"
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		started := run.StartTime
		rows = append(rows, []string{
			run.ImportID,
			string(run.Status),
			strconv.Itoa(run.StartPage),
			fmt.Sprintf("%d/%s", run.CompletedPages, formatEstimate(run.EstimatedPages)),
			strconv.Itoa(run.FailedPages),
			formatPage(run.LastProcessedPage),
			formatTime(&started),
			formatTime(run.EndTime),
		})
	}

	return renderTable(
		[]string{"Import", "Status", "Start", "Completed", "Failed", "Last Page", "Started", "Ended"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderRetrySummary(summary model.RetrySummary) string {
	return renderTable(
		[]string{"Operation", "Window", "Found", "Requeued", "Failed", "Skipped"},
		[][]string{{
			string(summary.OperationType),
			fmt.Sprintf("%dh", summary.MaxAgeHours),
			strconv.Itoa(summary.Found),
			strconv.Itoa(summary.Requeued),
			strconv.Itoa(summary.Failed),
			strconv.Itoa(summary.Skipped),
		}},
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderDeadLetterStats(stats model.DeadLetterStatistics) string {
	names := make([]string, 0, len(stats.Queues))
	for name := range stats.Queues {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		q := stats.Queues[name]
		messages := strconv.Itoa(q.MessageCount)
		if q.Error != "" {
			messages = "error: " + q.Error
		}
		rows = append(rows, []string{name, messages, strconv.Itoa(q.Consumers)})
	}

	return renderTable(
		[]string{"Queue", "Messages", "Consumers"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	)
}

func renderHealth(summary model.HealthSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Overall: %s\n", summary.OverallHealth)
	fmt.Fprintf(&b, "Checked: %s\n", formatTime(&summary.LastCheck))
	fmt.Fprintf(&b, "Active imports: %d\n", summary.ActiveImports)
	fmt.Fprintf(&b, "Failed operations (24h): %d\n", summary.FailedOperations)
	fmt.Fprintf(&b, "Data freshness: %s\n", summary.DataFreshness)

	if len(summary.Dependencies) > 0 {
		names := make([]string, 0, len(summary.Dependencies))
		for name := range summary.Dependencies {
			names = append(names, name)
		}
		sort.Strings(names)

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			rows = append(rows, []string{name, summary.Dependencies[name]})
		}
		b.WriteString(renderTable([]string{"Dependency", "Status"}, rows, nil))
		b.WriteString("\n")
	}

	if len(summary.UnhealthyMetrics) > 0 {
		rows := make([][]string, 0, len(summary.UnhealthyMetrics))
		for _, m := range summary.UnhealthyMetrics {
			threshold := "-"
			if m.Threshold != nil {
				threshold = strconv.FormatFloat(*m.Threshold, 'f', 2, 64)
			}
			rows = append(rows, []string{m.Name, strconv.FormatFloat(m.Value, 'f', 2, 64), threshold})
		}
		b.WriteString(renderTable(
			[]string{"Unhealthy Metric", "Value", "Threshold"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight},
		))
	}

	return strings.TrimRight(b.String(), "\n")
}
