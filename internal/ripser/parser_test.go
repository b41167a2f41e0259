package ripser_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"ripsergo/internal/ripser"
)

const sampleOutput = "distance matrix with 10 points\n" +
	"value range: [0.012, 1.414]\n" +
	"persistence intervals in dim 0:\n" +
	" [0,0.32)\n" +
	" [0,0.41)\n" +
	"persistence intervals in dim 1:\n" +
	" [0.5,0.9)\n" +
	" [0.6, )\n" +
	"\n"

func TestParseReportSample(t *testing.T) {
	report, err := ripser.ParseReport(sampleOutput)
	if err != nil {
		t.Fatalf("ParseReport returned error: %v", err)
	}
	if report.Points != 10 {
		t.Fatalf("expected 10 points, got %d", report.Points)
	}
	if report.Min != 0.012 || report.Max != 1.414 {
		t.Fatalf("unexpected value range [%v,%v]", report.Min, report.Max)
	}
	want := ripser.Diagram{
		0: {{Birth: 0, Death: 0.32}, {Birth: 0, Death: 0.41}},
		1: {{Birth: 0.5, Death: 0.9}, {Birth: 0.6, Death: math.NaN()}},
	}
	if !report.Diagram.Equal(want) {
		t.Fatalf("unexpected diagram: %#v", report.Diagram)
	}
	if !report.Diagram[1][1].Unbounded() {
		t.Fatal("expected last dim 1 interval to be unbounded")
	}
	if got := report.Diagram.Dimensions(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("unexpected dimensions %v", got)
	}
}

func TestParseIsIdempotent(t *testing.T) {
	first, err := ripser.Parse(sampleOutput)
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}
	second, err := ripser.Parse(sampleOutput)
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("parses differ: %#v vs %#v", first, second)
	}
}

func TestParseDeathSentinels(t *testing.T) {
	raw := "distance matrix with 3 points\n" +
		"value range: [0,2]\n" +
		"persistence intervals in dim 0:\n" +
		" [0, )\n" +
		" [0,inf)\n" +
		" [0,∞)\n" +
		" [0,1.5)\n"
	diagram, err := ripser.Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	intervals := diagram[0]
	if len(intervals) != 4 {
		t.Fatalf("expected 4 intervals, got %d", len(intervals))
	}
	for i := 0; i < 3; i++ {
		if !intervals[i].Unbounded() {
			t.Fatalf("interval %d: expected NaN death, got %v", i, intervals[i].Death)
		}
	}
	if intervals[3].Death != 1.5 {
		t.Fatalf("expected finite death 1.5, got %v", intervals[3].Death)
	}
	for _, iv := range intervals {
		if math.IsInf(iv.Death, 0) {
			t.Fatalf("infinite death leaked through: %v", iv)
		}
	}
}

func TestParseStopsAtFirstBlankLine(t *testing.T) {
	raw := "distance matrix with 3 points\n" +
		"value range: [0,1]\n" +
		"persistence intervals in dim 0:\n" +
		" [0,1)\n" +
		"\n" +
		"persistence intervals in dim 1:\n" +
		"this is not an interval\n"
	diagram, err := ripser.Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(diagram) != 1 || len(diagram[0]) != 1 {
		t.Fatalf("expected only dim 0 with one interval, got %#v", diagram)
	}
}

func TestParseHandlesCRLFAndEmptySections(t *testing.T) {
	raw := "distance matrix with 2 points\r\n" +
		"value range: [0,1]\r\n" +
		"persistence intervals in dim 0:\r\n" +
		" [0, )\r\n" +
		"persistence intervals in dim 1:\r\n"
	diagram, err := ripser.Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	intervals, ok := diagram[1]
	if !ok {
		t.Fatal("expected dim 1 key for an empty section")
	}
	if len(intervals) != 0 {
		t.Fatalf("expected empty dim 1, got %v", intervals)
	}
	if len(diagram[0]) != 1 || !diagram[0][0].Unbounded() {
		t.Fatalf("unexpected dim 0: %v", diagram[0])
	}
}

func TestParseHeaderOnlyYieldsEmptyDiagram(t *testing.T) {
	report, err := ripser.ParseReport("distance matrix with 1 points\nvalue range: [0,0]\n")
	if err != nil {
		t.Fatalf("ParseReport returned error: %v", err)
	}
	if report.Points != 1 || len(report.Diagram) != 0 {
		t.Fatalf("unexpected report %#v", report)
	}
}

func TestParseMalformedInput(t *testing.T) {
	header := "distance matrix with 3 points\nvalue range: [0,1]\n"
	tests := []struct {
		name    string
		raw     string
		line    int
		content string
		target  error
	}{
		{name: "empty", raw: "", line: 1, content: ""},
		{name: "short count line", raw: "distance matrix\nvalue range: [0,1]\n", line: 1, content: "distance matrix"},
		{name: "non numeric count", raw: "distance matrix with many points\nvalue range: [0,1]\n", line: 1, content: "distance matrix with many points"},
		{name: "missing range", raw: "distance matrix with 3 points\nvalue range: 0 to 1\n", line: 2, content: "value range: 0 to 1"},
		{name: "truncated header", raw: "distance matrix with 3 points", line: 2, content: ""},
		{name: "header without dimension", raw: header + "persistence intervals in dim :\n", line: 3, content: "persistence intervals in dim :"},
		{name: "header without colon", raw: header + "persistence intervals in dim 0\n", line: 3, content: "persistence intervals in dim 0"},
		{name: "interval before header", raw: header + " [0,1)\n", line: 3, content: " [0,1)"},
		{name: "no comma", raw: header + "persistence intervals in dim 0:\n [0 1)\n", line: 4, content: " [0 1)"},
		{name: "two commas", raw: header + "persistence intervals in dim 0:\n [0,1)\n [0,1,2)\n", line: 5, content: " [0,1,2)"},
		{name: "bad birth", raw: header + "persistence intervals in dim 0:\n [x,1)\n", line: 4, content: " [x,1)"},
		{
			name:    "repeated dimension",
			raw:     header + "persistence intervals in dim 0:\n [0,1)\npersistence intervals in dim 0:\n",
			line:    5,
			content: "persistence intervals in dim 0:",
			target:  ripser.ErrDuplicateDimension,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ripser.ParseReport(tc.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ripser.ErrParse) {
				t.Fatalf("expected parse error, got %v", err)
			}
			var perr *ripser.Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ripser.Error, got %T", err)
			}
			if perr.Line != tc.line {
				t.Fatalf("expected line %d, got %d (%v)", tc.line, perr.Line, err)
			}
			if perr.Content != tc.content {
				t.Fatalf("expected content %q, got %q", tc.content, perr.Content)
			}
			if tc.target != nil && !errors.Is(err, tc.target) {
				t.Fatalf("expected %v in chain, got %v", tc.target, err)
			}
			if errors.Is(err, ripser.ErrExternalTool) || errors.Is(err, ripser.ErrTimeout) {
				t.Fatalf("parse error matched another kind: %v", err)
			}
			if tc.line > 0 && tc.content != "" && !strings.Contains(err.Error(), tc.content) {
				t.Fatalf("message %q does not quote the offending line", err.Error())
			}
		})
	}
}
