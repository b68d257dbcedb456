// Package estimator defines the duration-prediction collaborator consumed by
// the constraint model builder. The prediction model itself is external; this
// package holds the capability interface plus a table-driven baseline used
// when no external model is wired in.
package estimator

import (
	"context"
	"fmt"
	"strings"
)

// Attributes carries the patient attributes the estimator may consult.
type Attributes struct {
	ASAScore int
	AgeYears int
}

// Estimate is a predicted surgery duration with confidence bounds.
type Estimate struct {
	Minutes    int     `json:"minutes"`
	LowerBound int     `json:"lower_bound"`
	UpperBound int     `json:"upper_bound"`
	Confidence float64 `json:"confidence"`
}

// MissingDataError reports which required attributes were absent. Callers
// treat it as "surgery unschedulable" rather than a failure.
type MissingDataError struct {
	Fields []string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing prediction data: %s", strings.Join(e.Fields, ", "))
}

// Estimator is the duration-prediction contract.
type Estimator interface {
	Estimate(ctx context.Context, attrs Attributes, surgeryType string) (Estimate, error)
}

// TableEstimator predicts durations from a per-surgery-type base table,
// adjusted upward for higher ASA classes. It is deterministic, which keeps
// repeated solver runs reproducible.
type TableEstimator struct {
	base map[string]int
}

// DefaultBaseMinutes is the built-in duration table, in minutes.
var DefaultBaseMinutes = map[string]int{
	"appendectomy":          60,
	"cholecystectomy":       90,
	"hernia-repair":         75,
	"hip-replacement":       150,
	"knee-replacement":      135,
	"cabg":                  300,
	"craniotomy":            270,
	"cataract":              30,
	"laparotomy":            120,
	"spinal-fusion":         240,
	"mastectomy":            120,
	"thyroidectomy":         105,
}

func NewTableEstimator(base map[string]int) *TableEstimator {
	if base == nil {
		base = DefaultBaseMinutes
	}
	return &TableEstimator{base: base}
}

// Estimate returns the table duration adjusted +10% per ASA class above 2,
// with ±20% bounds. Unknown surgery types and missing ASA scores produce a
// MissingDataError.
func (t *TableEstimator) Estimate(_ context.Context, attrs Attributes, surgeryType string) (Estimate, error) {
	var missing []string
	if surgeryType == "" {
		missing = append(missing, "surgery_type")
	}
	if attrs.ASAScore < 1 || attrs.ASAScore > 5 {
		missing = append(missing, "asa_score")
	}
	if len(missing) > 0 {
		return Estimate{}, &MissingDataError{Fields: missing}
	}

	base, ok := t.base[surgeryType]
	if !ok {
		return Estimate{}, &MissingDataError{Fields: []string{"surgery_type"}}
	}

	minutes := base
	if attrs.ASAScore > 2 {
		minutes += base * (attrs.ASAScore - 2) / 10
	}

	return Estimate{
		Minutes:    minutes,
		LowerBound: minutes * 8 / 10,
		UpperBound: minutes * 12 / 10,
		Confidence: 0.8,
	}, nil
}
