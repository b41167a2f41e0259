package ripser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const sectionPrefix = "persistence intervals in dim"

type parseState int

const (
	stateCount parseState = iota
	stateRange
	stateBody
	stateSection
)

// Parse returns only the diagram from a ripser report.
func Parse(raw string) (Diagram, error) {
	report, err := ParseReport(raw)
	if err != nil {
		return nil, err
	}
	return report.Diagram, nil
}

// ParseReport parses ripser's stdout. The first line carries the point count
// and the second the value range; dimension sections follow until the first
// blank line or the end of input. Section headers with no intervals yield an
// empty slice. A death that is empty or not a finite number becomes NaN.
func ParseReport(raw string) (Report, error) {
	lines := strings.Split(raw, "\n")
	report := Report{Diagram: Diagram{}}
	state := stateCount
	dim := 0

	for i, line := range lines {
		lineNo := i + 1
		line = strings.TrimSuffix(line, "\r")

		switch state {
		case stateCount:
			points, err := parsePointCount(line)
			if err != nil {
				return Report{}, parseError(lineNo, line, err)
			}
			report.Points = points
			state = stateRange
			continue
		case stateRange:
			lo, hi, err := parseValueRange(line)
			if err != nil {
				return Report{}, parseError(lineNo, line, err)
			}
			report.Min, report.Max = lo, hi
			state = stateBody
			continue
		}

		if strings.TrimSpace(line) == "" {
			return report, nil
		}
		if strings.HasPrefix(line, sectionPrefix) {
			next, err := parseSectionHeader(line)
			if err != nil {
				return Report{}, parseError(lineNo, line, err)
			}
			if _, seen := report.Diagram[next]; seen {
				return Report{}, parseError(lineNo, line, fmt.Errorf("%w: dim %d", ErrDuplicateDimension, next))
			}
			report.Diagram[next] = []Interval{}
			dim = next
			state = stateSection
			continue
		}
		if state != stateSection {
			return Report{}, parseError(lineNo, line, errors.New("interval before any dimension header"))
		}
		iv, err := parseInterval(line)
		if err != nil {
			return Report{}, parseError(lineNo, line, err)
		}
		report.Diagram[dim] = append(report.Diagram[dim], iv)
	}

	if state == stateCount || state == stateRange {
		return Report{}, parseError(len(lines)+1, "", errors.New("output ended before the header was complete"))
	}
	return report, nil
}

func parsePointCount(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return 0, errors.New("expected point count as the fourth field")
	}
	points, err := strconv.Atoi(fields[3])
	if err != nil {
		return 0, fmt.Errorf("point count %q is not an integer", fields[3])
	}
	if points < 0 {
		return 0, fmt.Errorf("point count %d is negative", points)
	}
	return points, nil
}

func parseValueRange(line string) (float64, float64, error) {
	open := strings.IndexByte(line, '[')
	end := strings.LastIndexByte(line, ']')
	if open < 0 || end < open {
		return 0, 0, errors.New("expected value range in brackets")
	}
	parts := strings.Split(line[open+1:end], ",")
	if len(parts) != 2 {
		return 0, 0, errors.New("expected value range as [min,max]")
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("range minimum %q is not a number", strings.TrimSpace(parts[0]))
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("range maximum %q is not a number", strings.TrimSpace(parts[1]))
	}
	return lo, hi, nil
}

func parseSectionHeader(line string) (int, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, sectionPrefix))
	digits, ok := strings.CutSuffix(rest, ":")
	if !ok || digits == "" {
		return 0, errors.New("section header missing dimension")
	}
	dim, err := strconv.Atoi(digits)
	if err != nil || dim < 0 {
		return 0, fmt.Errorf("section dimension %q is not a non-negative integer", digits)
	}
	return dim, nil
}

func parseInterval(line string) (Interval, error) {
	body := strings.Trim(line, " \t[]()")
	parts := strings.Split(body, ",")
	if len(parts) != 2 {
		return Interval{}, errors.New("expected interval as [birth,death)")
	}
	birthText := strings.TrimSpace(parts[0])
	birth, err := strconv.ParseFloat(birthText, 64)
	if err != nil || math.IsInf(birth, 0) || math.IsNaN(birth) {
		return Interval{}, fmt.Errorf("birth %q is not a finite number", birthText)
	}
	death, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || math.IsInf(death, 0) {
		death = math.NaN()
	}
	return Interval{Birth: birth, Death: death}, nil
}
