package domain

import (
	"fmt"
	"math"
)

// Dimensions lists the rubric dimensions in canonical order.
var Dimensions = []string{"accuracy", "completeness", "relevance", "clarity", "reasoning"}

// Score is a validated five-dimension rubric score produced by the judge.
// Average is always recomputed from the dimensions; any average supplied by
// the judge model is discarded to guard against malformed responses.
type Score struct {
	Accuracy     float64 `json:"accuracy" validate:"required,min=1,max=5"`
	Completeness float64 `json:"completeness" validate:"required,min=1,max=5"`
	Relevance    float64 `json:"relevance" validate:"required,min=1,max=5"`
	Clarity      float64 `json:"clarity" validate:"required,min=1,max=5"`
	Reasoning    float64 `json:"reasoning" validate:"required,min=1,max=5"`
	Average      float64 `json:"average"`
	Comment      string  `json:"comment"`
}

// NewScore builds a Score from the five dimension values, validating that
// each lies within the 1-5 rubric range and recomputing the average. Values
// outside the range are rejected, never clamped.
func NewScore(accuracy, completeness, relevance, clarity, reasoning float64, comment string) (Score, error) {
	s := Score{
		Accuracy:     accuracy,
		Completeness: completeness,
		Relevance:    relevance,
		Clarity:      clarity,
		Reasoning:    reasoning,
		Comment:      comment,
	}
	for name, v := range map[string]float64{
		"accuracy":     accuracy,
		"completeness": completeness,
		"relevance":    relevance,
		"clarity":      clarity,
		"reasoning":    reasoning,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 1 || v > 5 {
			return Score{}, fmt.Errorf("dimension %s score %v outside [1,5]", name, v)
		}
	}
	s.Average = (accuracy + completeness + relevance + clarity + reasoning) / 5
	return s, nil
}

// DimensionValues returns the dimension scores in the canonical Dimensions
// order, for rendering and aggregation.
func (s Score) DimensionValues() []float64 {
	return []float64{s.Accuracy, s.Completeness, s.Relevance, s.Clarity, s.Reasoning}
}
