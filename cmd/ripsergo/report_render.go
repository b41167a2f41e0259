package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ripsergo/internal/ripser"
)

const unboundedLabel = "∞"

// localeTag derives the display language from LC_ALL, LC_MESSAGES or LANG,
// falling back to English.
func localeTag() language.Tag {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			continue
		}
		if value == "C" || value == "POSIX" {
			return language.English
		}
		value, _, _ = strings.Cut(value, ".")
		value, _, _ = strings.Cut(value, "@")
		tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
		if err != nil {
			return language.English
		}
		return tag
	}
	return language.English
}

type countFormatter struct {
	printer *message.Printer
}

func newCountFormatter(tag language.Tag) countFormatter {
	return countFormatter{printer: message.NewPrinter(tag)}
}

func (f countFormatter) count(n int) string {
	return f.printer.Sprintf("%d", n)
}

func formatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 1) {
		return unboundedLabel
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func kindTitle(kind ripser.Kind) string {
	return cases.Title(language.English).String(kind.String())
}

func summaryRows(report ripser.Report, counts countFormatter) [][]string {
	rows := make([][]string, 0, len(report.Diagram))
	for _, dim := range report.Diagram.Dimensions() {
		intervals := report.Diagram[dim]
		unbounded := 0
		longest := 0.0
		for _, iv := range intervals {
			if iv.Unbounded() {
				unbounded++
				continue
			}
			longest = max(longest, iv.Persistence())
		}
		rows = append(rows, []string{
			strconv.Itoa(dim),
			counts.count(len(intervals)),
			counts.count(unbounded),
			formatValue(longest),
		})
	}
	return rows
}

func renderReport(w io.Writer, title string, report ripser.Report, showIntervals bool, counts countFormatter) {
	summary := renderTable(tableSpec{
		title:   fmt.Sprintf("%s: %s points, range [%s, %s]", title, counts.count(report.Points), formatValue(report.Min), formatValue(report.Max)),
		headers: []string{"Dim", "Intervals", "Unbounded", "Longest finite"},
		rows:    summaryRows(report, counts),
		aligns:  []columnAlignment{alignRight, alignRight, alignRight, alignRight},
		footer:  []string{"", counts.count(report.Diagram.Count()), "", ""},
	})
	fmt.Fprintln(w, summary)
	if !showIntervals || report.Diagram.Count() == 0 {
		return
	}

	rows := make([][]string, 0, report.Diagram.Count())
	for _, dim := range report.Diagram.Dimensions() {
		for _, iv := range report.Diagram[dim] {
			rows = append(rows, []string{
				strconv.Itoa(dim),
				formatValue(iv.Birth),
				formatValue(iv.Death),
				formatValue(iv.Persistence()),
			})
		}
	}
	fmt.Fprintln(w, renderTable(tableSpec{
		headers: []string{"Dim", "Birth", "Death", "Persistence"},
		rows:    rows,
		aligns:  []columnAlignment{alignRight, alignRight, alignRight, alignRight},
	}))
}
