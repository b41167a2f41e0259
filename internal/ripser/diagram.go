package ripser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// Interval is one persistence pair. Death is NaN for a feature that never
// dies within the computed filtration.
type Interval struct {
	Birth float64
	Death float64
}

// Unbounded reports whether the interval has no finite death.
func (iv Interval) Unbounded() bool {
	return math.IsNaN(iv.Death)
}

// Persistence returns death minus birth, or +Inf for unbounded intervals.
func (iv Interval) Persistence() float64 {
	if iv.Unbounded() {
		return math.Inf(1)
	}
	return iv.Death - iv.Birth
}

// MarshalJSON encodes the interval as [birth, death] with null for an
// unbounded death.
func (iv Interval) MarshalJSON() ([]byte, error) {
	if iv.Unbounded() {
		return fmt.Appendf(nil, "[%s,null]", formatJSONFloat(iv.Birth)), nil
	}
	return fmt.Appendf(nil, "[%s,%s]", formatJSONFloat(iv.Birth), formatJSONFloat(iv.Death)), nil
}

// UnmarshalJSON accepts the [birth, death] form written by MarshalJSON.
func (iv *Interval) UnmarshalJSON(data []byte) error {
	var pair []*float64
	if err := json.Unmarshal(bytes.TrimSpace(data), &pair); err != nil {
		return fmt.Errorf("decode interval: %w", err)
	}
	if len(pair) != 2 || pair[0] == nil {
		return fmt.Errorf("decode interval: expected [birth, death], got %s", data)
	}
	iv.Birth = *pair[0]
	iv.Death = math.NaN()
	if pair[1] != nil {
		iv.Death = *pair[1]
	}
	return nil
}

func formatJSONFloat(v float64) string {
	out, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(out)
}

// Diagram maps a homology dimension to its intervals in output order.
type Diagram map[int][]Interval

// Dimensions returns the dimensions present in ascending order.
func (d Diagram) Dimensions() []int {
	dims := make([]int, 0, len(d))
	for dim := range d {
		dims = append(dims, dim)
	}
	slices.Sort(dims)
	return dims
}

// Count returns the total number of intervals across all dimensions.
func (d Diagram) Count() int {
	total := 0
	for _, intervals := range d {
		total += len(intervals)
	}
	return total
}

// Equal compares two diagrams treating unbounded deaths as equal.
func (d Diagram) Equal(other Diagram) bool {
	if len(d) != len(other) {
		return false
	}
	for dim, intervals := range d {
		theirs, ok := other[dim]
		if !ok {
			return false
		}
		if !slices.EqualFunc(intervals, theirs, func(a, b Interval) bool {
			if a.Birth != b.Birth {
				return false
			}
			if a.Unbounded() || b.Unbounded() {
				return a.Unbounded() && b.Unbounded()
			}
			return a.Death == b.Death
		}) {
			return false
		}
	}
	return true
}

// Report is the full result of one ripser run: the header values and the
// diagram.
type Report struct {
	Points  int     `json:"points"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Diagram Diagram `json:"diagram"`
}
