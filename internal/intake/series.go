package intake

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cclenergy/solarquote/pkg/models"
)

// Cost series form fields. Costs are comma-separated numbers.
const (
	FieldBeforeCosts = "before_costs"
	FieldAfterCosts  = "after_costs"
	FieldBeforeTotal = "before_total"
	FieldAfterTotal  = "after_total"
	FieldYears       = "years"
)

// ErrInvalidNumber is returned when a cost value cannot be parsed.
var ErrInvalidNumber = errors.New("invalid number")

// ChartRequest is the typed form of a cost series as sent in JSON bodies and
// quote files. Totals default to the sum of their series when omitted, and
// years default to consecutive labels from the configured start year.
type ChartRequest struct {
	Years       []string  `json:"years,omitempty"        yaml:"years,omitempty"        toml:"years,omitempty"`
	BeforeCosts []float64 `json:"before_costs"           yaml:"before_costs"           toml:"before_costs"`
	AfterCosts  []float64 `json:"after_costs"            yaml:"after_costs"            toml:"after_costs"`
	BeforeTotal *float64  `json:"before_total,omitempty" yaml:"before_total,omitempty" toml:"before_total,omitempty"`
	AfterTotal  *float64  `json:"after_total,omitempty"  yaml:"after_total,omitempty"  toml:"after_total,omitempty"`
}

// Series resolves defaults and returns the cost series. Lengths are not
// checked here; the chart renderer rejects malformed series.
func (c ChartRequest) Series(startYear int) models.CostSeries {
	s := models.CostSeries{
		Years:  c.Years,
		Before: c.BeforeCosts,
		After:  c.AfterCosts,
	}
	if len(s.Years) == 0 {
		s.Years = models.YearLabels(startYear, models.SeriesLength)
	}
	if c.BeforeTotal != nil {
		s.BeforeTotal = *c.BeforeTotal
	} else {
		s.BeforeTotal = models.Sum(s.Before)
	}
	if c.AfterTotal != nil {
		s.AfterTotal = *c.AfterTotal
	} else {
		s.AfterTotal = models.Sum(s.After)
	}
	return s
}

// Empty reports whether no series data was supplied at all.
func (c ChartRequest) Empty() bool {
	return len(c.BeforeCosts) == 0 && len(c.AfterCosts) == 0
}

// ParseChartForm reads the cost series fields of a form submission.
// ok is false when neither cost field is present, meaning no chart.
func ParseChartForm(values map[string][]string) (req ChartRequest, ok bool, err error) {
	get := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	before, after := get(FieldBeforeCosts), get(FieldAfterCosts)
	if before == "" && after == "" {
		return ChartRequest{}, false, nil
	}

	if req.BeforeCosts, err = ParseNumberList(before); err != nil {
		return ChartRequest{}, true, fmt.Errorf("%s: %w", FieldBeforeCosts, err)
	}
	if req.AfterCosts, err = ParseNumberList(after); err != nil {
		return ChartRequest{}, true, fmt.Errorf("%s: %w", FieldAfterCosts, err)
	}
	if req.BeforeTotal, err = parseOptional(get(FieldBeforeTotal)); err != nil {
		return ChartRequest{}, true, fmt.Errorf("%s: %w", FieldBeforeTotal, err)
	}
	if req.AfterTotal, err = parseOptional(get(FieldAfterTotal)); err != nil {
		return ChartRequest{}, true, fmt.Errorf("%s: %w", FieldAfterTotal, err)
	}
	if years := get(FieldYears); years != "" {
		for _, y := range strings.Split(years, ",") {
			req.Years = append(req.Years, strings.TrimSpace(y))
		}
	}
	return req, true, nil
}

// ParseNumberList parses "1000, 1050.5, -200" into numbers.
// Empty input yields an empty slice.
func ParseNumberList(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := parseNumber(p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseOptional(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseNumber(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "$"), 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidNumber, s)
	}
	return v, nil
}
