package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"energy-forecast-lab/internal/dataset"
	"energy-forecast-lab/internal/domain"
)

func partitions(trainRows, testRows int) *dataset.Partitions {
	return &dataset.Partitions{
		Train: dataset.Partition{Target: make([]float64, trainRows)},
		Test:  dataset.Partition{Target: make([]float64, testRows)},
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		trainRows int
		testRows  int
		status    domain.RunStatus
		err       error
	}{
		{"ready", 1080, 24, domain.RunStatusReady, nil},
		{"exactly minimum", DefaultMinTrainRows, 1, domain.RunStatusReady, nil},
		{"empty test", 1080, 0, domain.RunStatusNotReady, ErrForecastNotReady},
		{"short train", DefaultMinTrainRows - 1, 24, domain.RunStatusInsufficient, ErrInsufficientTraining},
		{"both fail", 0, 0, domain.RunStatusNotReady, ErrForecastNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Evaluate(partitions(tt.trainRows, tt.testRows), DefaultMinTrainRows)
			assert.Equal(t, tt.status, a.Status)
			assert.Len(t, a.Checks, 2)
			if tt.err == nil {
				assert.NoError(t, a.Err)
			} else {
				assert.ErrorIs(t, a.Err, tt.err)
			}
			assert.Equal(t, a.Err, Assess(partitions(tt.trainRows, tt.testRows), DefaultMinTrainRows))
		})
	}
}

func TestEvaluate_Checks(t *testing.T) {
	a := Evaluate(partitions(50, 24), DefaultMinTrainRows)

	assert.True(t, a.Checks[0].Pass)
	assert.Equal(t, "24", a.Checks[0].Actual)
	assert.False(t, a.Checks[1].Pass)
	assert.Equal(t, ">= 100", a.Checks[1].Threshold)
	assert.Equal(t, "50", a.Checks[1].Actual)
}

func TestEvaluate_NilPartitions(t *testing.T) {
	a := Evaluate(nil, DefaultMinTrainRows)
	assert.Equal(t, domain.RunStatusNotReady, a.Status)
}
