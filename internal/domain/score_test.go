package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScore(t *testing.T) {
	tests := []struct {
		name    string
		values  [5]float64
		wantAvg float64
		wantErr bool
	}{
		{
			name:    "uniform maximum",
			values:  [5]float64{5, 5, 5, 5, 5},
			wantAvg: 5,
		},
		{
			name:    "mixed values",
			values:  [5]float64{4, 4, 5, 4, 4},
			wantAvg: 4.2,
		},
		{
			name:    "low scores",
			values:  [5]float64{2, 3, 2, 3, 2},
			wantAvg: 2.4,
		},
		{
			name:    "fractional values",
			values:  [5]float64{3.5, 4.5, 3.5, 4.5, 4},
			wantAvg: 4,
		},
		{
			name:    "zero rejected",
			values:  [5]float64{0, 3, 3, 3, 3},
			wantErr: true,
		},
		{
			name:    "above range rejected",
			values:  [5]float64{3, 3, 6, 3, 3},
			wantErr: true,
		},
		{
			name:    "negative rejected",
			values:  [5]float64{3, 3, 3, -1, 3},
			wantErr: true,
		},
		{
			name:    "NaN rejected",
			values:  [5]float64{3, 3, 3, 3, math.NaN()},
			wantErr: true,
		},
		{
			name:    "infinity rejected",
			values:  [5]float64{math.Inf(1), 3, 3, 3, 3},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := NewScore(tt.values[0], tt.values[1], tt.values[2], tt.values[3], tt.values[4], "ok")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantAvg, score.Average, 1e-9)
			assert.Equal(t, "ok", score.Comment)
		})
	}
}

func TestNewScoreRecomputesAverage(t *testing.T) {
	score, err := NewScore(4, 4, 5, 4, 4, "")
	require.NoError(t, err)
	// The average is derived, never taken from judge output.
	assert.InDelta(t, 4.2, score.Average, 1e-9)
}

func TestDimensionValuesOrder(t *testing.T) {
	score, err := NewScore(1, 2, 3, 4, 5, "")
	require.NoError(t, err)

	values := score.DimensionValues()
	require.Len(t, values, len(Dimensions))
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, values)
}
